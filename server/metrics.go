package server

import (
	"sync/atomic"
)

// Metrics 记录模拟运行期的关键指标（用于监控与调试）
type Metrics struct {
	TickCount        int64 // 统计的 Tick 次数
	TotalTickNs      int64 // Tick 累计耗时（纳秒）
	TickPanics       int64 // 被恢复的 panic 次数
	BubblesSpawned   int64
	BubblesRejected  int64 // 冷却或容量限制被拒绝
	ChatMessages     int64
	SharkEvents      int64
	SharkConflicts   int64 // 事件进行中再次触发
	PenaltiesApplied int64
	PenaltiesIgnored int64 // 服务端间隔保护拦截
	InputsMalformed  int64
	FramesDropped    int64 // 发送队列满被丢弃
}

func (m *Metrics) IncBubblesSpawned()   { atomic.AddInt64(&m.BubblesSpawned, 1) }
func (m *Metrics) IncBubblesRejected()  { atomic.AddInt64(&m.BubblesRejected, 1) }
func (m *Metrics) IncChatMessages()     { atomic.AddInt64(&m.ChatMessages, 1) }
func (m *Metrics) IncSharkEvents()      { atomic.AddInt64(&m.SharkEvents, 1) }
func (m *Metrics) IncSharkConflicts()   { atomic.AddInt64(&m.SharkConflicts, 1) }
func (m *Metrics) IncPenaltiesApplied() { atomic.AddInt64(&m.PenaltiesApplied, 1) }
func (m *Metrics) IncPenaltiesIgnored() { atomic.AddInt64(&m.PenaltiesIgnored, 1) }
func (m *Metrics) IncInputsMalformed()  { atomic.AddInt64(&m.InputsMalformed, 1) }
func (m *Metrics) IncFramesDropped()    { atomic.AddInt64(&m.FramesDropped, 1) }
func (m *Metrics) IncTickPanics()       { atomic.AddInt64(&m.TickPanics, 1) }
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":        tick,
		"avg_tick_ms":       avgMs,
		"tick_panics":       atomic.LoadInt64(&m.TickPanics),
		"bubbles_spawned":   atomic.LoadInt64(&m.BubblesSpawned),
		"bubbles_rejected":  atomic.LoadInt64(&m.BubblesRejected),
		"chat_messages":     atomic.LoadInt64(&m.ChatMessages),
		"shark_events":      atomic.LoadInt64(&m.SharkEvents),
		"shark_conflicts":   atomic.LoadInt64(&m.SharkConflicts),
		"penalties_applied": atomic.LoadInt64(&m.PenaltiesApplied),
		"penalties_ignored": atomic.LoadInt64(&m.PenaltiesIgnored),
		"inputs_malformed":  atomic.LoadInt64(&m.InputsMalformed),
		"frames_dropped":    atomic.LoadInt64(&m.FramesDropped),
	}
}
