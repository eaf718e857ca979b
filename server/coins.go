package server

import (
	"context"
	"errors"
)

// ErrPenaltyTooSoon 同一玩家扣币过于频繁，被服务端间隔保护拦截
var ErrPenaltyTooSoon = errors.New("predator penalty applied too recently")

// GrantCoins 给每个在线玩家发放金币，只通知本人
func (w *World) GrantCoins() {
	w.update(func(out *outbox) {
		for conn, id := range w.conns {
			balance := w.coins[id] + w.cfg.Coins.Grant
			w.coins[id] = balance
			out.send(conn, coinBalanceMessage{Type: MsgCoinBalanceUpdate, CoinCount: balance})
		}
	})
}

// ApplyPredatorPenalty 客户端上报被鲨鱼撞到时扣币，余额不低于 0
func (w *World) ApplyPredatorPenalty(conn ConnID) error {
	var (
		err     error
		id      PlayerID
		balance int
	)
	w.update(func(out *outbox) {
		p, ok := w.boundPlayerLocked(conn)
		if !ok {
			err = ErrNotRegistered
			return
		}
		id = p.ID
		balance, err = w.applyPenaltyLocked(out, conn, id)
	})
	switch {
	case err == nil:
		w.metrics.IncPenaltiesApplied()
		Log.Infow("player collided with shark", "player", id, "coins", balance)
	case errors.Is(err, ErrPenaltyTooSoon):
		w.metrics.IncPenaltiesIgnored()
		Log.Debugw("penalty suppressed", "player", id)
	}
	return err
}

func (w *World) applyPenaltyLocked(out *outbox, conn ConnID, id PlayerID) (int, error) {
	now := w.now()
	if last, ok := w.lastPenalty[id]; ok && now.Sub(last) < w.cfg.Coins.PenaltyInterval {
		return w.coins[id], ErrPenaltyTooSoon
	}
	w.lastPenalty[id] = now
	balance := max(0, w.coins[id]-w.cfg.Coins.Penalty)
	w.coins[id] = balance
	out.send(conn, coinBalanceMessage{Type: MsgCoinBalanceUpdate, CoinCount: balance})
	return balance, nil
}

// CoinBalance 返回玩家余额
func (w *World) CoinBalance(id PlayerID) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.coins[id]
}

// CoinSnapshot 复制全部余额，用于持久化
func (w *World) CoinSnapshot() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := make(map[string]int, len(w.coins))
	for id, n := range w.coins {
		snap[string(id)] = n
	}
	return snap
}

// LoadCoins 启动时从外部存储恢复余额；失败只记录日志，以空账本启动
func (w *World) LoadCoins(ctx context.Context, store CoinStore) {
	balances, err := store.Load(ctx)
	if err != nil {
		Log.Errorw("load coins failed, starting with empty ledger", "err", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.coins = make(map[PlayerID]int, len(balances))
	for id, n := range balances {
		w.coins[PlayerID(id)] = max(0, n)
	}
	Log.Infow("loaded coin ledger", "entries", len(w.coins))
}

// SaveCoins 退出前写回外部存储
func (w *World) SaveCoins(ctx context.Context, store CoinStore) error {
	snap := w.CoinSnapshot()
	if err := store.Save(ctx, snap); err != nil {
		Log.Errorw("save coins failed", "err", err, "entries", len(snap))
		return err
	}
	Log.Infow("saved coin ledger", "entries", len(snap))
	return nil
}
