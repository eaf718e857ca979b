package server

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// Tick 推进一次模拟：鲨鱼与泡泡
func (w *World) Tick() {
	w.update(func(out *outbox) {
		now := w.now()
		dt := w.cfg.TickInterval.Seconds()
		if !w.lastTick.IsZero() {
			dt = now.Sub(w.lastTick).Seconds()
		}
		w.lastTick = now

		w.advanceSharkLocked(out, dt)
		w.advanceBubblesLocked(out, now, dt)
	})
}

// Run 单协程驱动主 Tick 以及聊天清理、金币发放两个慢速定时器，直到 ctx 取消
func (w *World) Run(ctx context.Context) error {
	w.mu.Lock()
	tickEvery, sweepEvery, grantEvery := w.cfg.TickInterval, w.cfg.ChatSweepInterval, w.cfg.CoinGrantInterval
	w.mu.Unlock()

	ticker := time.NewTicker(tickEvery)
	defer ticker.Stop()
	sweep := time.NewTicker(sweepEvery)
	defer sweep.Stop()
	grant := time.NewTicker(grantEvery)
	defer grant.Stop()

	Log.Infow("simulation started", "tick", tickEvery, "chatSweep", sweepEvery, "coinGrant", grantEvery)
	for {
		select {
		case <-ctx.Done():
			Log.Info("simulation stopped")
			return nil
		case <-ticker.C:
			start := time.Now()
			w.safely("tick", w.Tick)
			w.metrics.AddTick(time.Since(start).Nanoseconds())
		case <-sweep.C:
			w.safely("chat sweep", w.SweepChat)
		case <-grant.C:
			w.safely("coin grant", w.GrantCoins)
		}
	}
}

// safely 恢复单步中的 panic，记录并上报，循环继续
func (w *World) safely(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.metrics.IncTickPanics()
			Log.Errorw("recovered panic in simulation step", "step", step, "panic", r)
			sentry.CurrentHub().Recover(r)
		}
	}()
	fn()
}
