package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// Tunables 可在运行时调整的参数；POST 时只更新非空字段，时长单位为毫秒
type Tunables struct {
	BubbleCooldownMs    *int64 `json:"bubbleCooldownMs,omitempty"`
	BubbleTTLMs         *int64 `json:"bubbleTtlMs,omitempty"`
	MaxBubbles          *int   `json:"maxBubbles,omitempty"`
	MaxBubblesPerPlayer *int   `json:"maxBubblesPerPlayer,omitempty"`
	ChatTTLMs           *int64 `json:"chatTtlMs,omitempty"`
	CoinGrant           *int   `json:"coinGrant,omitempty"`
	CoinPenalty         *int   `json:"coinPenalty,omitempty"`
	PenaltyIntervalMs   *int64 `json:"penaltyIntervalMs,omitempty"`
}

func (t Tunables) valid() bool {
	for _, v := range []*int64{t.BubbleCooldownMs, t.BubbleTTLMs, t.ChatTTLMs, t.PenaltyIntervalMs} {
		if v != nil && *v < 0 {
			return false
		}
	}
	for _, v := range []*int{t.MaxBubbles, t.MaxBubblesPerPlayer, t.CoinGrant, t.CoinPenalty} {
		if v != nil && *v < 0 {
			return false
		}
	}
	return true
}

// Tunables 返回当前参数
func (w *World) Tunables() Tunables {
	w.mu.Lock()
	defer w.mu.Unlock()
	ms := func(d time.Duration) *int64 { v := d.Milliseconds(); return &v }
	i := func(n int) *int { return &n }
	return Tunables{
		BubbleCooldownMs:    ms(w.cfg.Bubble.Cooldown),
		BubbleTTLMs:         ms(w.cfg.Bubble.TTL),
		MaxBubbles:          i(w.cfg.Bubble.MaxBubbles),
		MaxBubblesPerPlayer: i(w.cfg.Bubble.MaxPerOwner),
		ChatTTLMs:           ms(w.cfg.Chat.TTL),
		CoinGrant:           i(w.cfg.Coins.Grant),
		CoinPenalty:         i(w.cfg.Coins.Penalty),
		PenaltyIntervalMs:   ms(w.cfg.Coins.PenaltyInterval),
	}
}

// ApplyTunables 部分更新参数，下一次 Tick/事件即生效
func (w *World) ApplyTunables(t Tunables) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ms := func(v int64) time.Duration { return time.Duration(v) * time.Millisecond }
	if t.BubbleCooldownMs != nil {
		w.cfg.Bubble.Cooldown = ms(*t.BubbleCooldownMs)
	}
	if t.BubbleTTLMs != nil {
		w.cfg.Bubble.TTL = ms(*t.BubbleTTLMs)
	}
	if t.MaxBubbles != nil {
		w.cfg.Bubble.MaxBubbles = *t.MaxBubbles
	}
	if t.MaxBubblesPerPlayer != nil {
		w.cfg.Bubble.MaxPerOwner = *t.MaxBubblesPerPlayer
	}
	if t.ChatTTLMs != nil {
		w.cfg.Chat.TTL = ms(*t.ChatTTLMs)
	}
	if t.CoinGrant != nil {
		w.cfg.Coins.Grant = *t.CoinGrant
	}
	if t.CoinPenalty != nil {
		w.cfg.Coins.Penalty = *t.CoinPenalty
	}
	if t.PenaltyIntervalMs != nil {
		w.cfg.Coins.PenaltyInterval = ms(*t.PenaltyIntervalMs)
	}
}

// HandleAdminConfig 提供运行参数的读取与更新（热更新基本规则）
// 配置了 SHARK_TRIGGER_KEY 时同样要求 Bearer token
// GET /admin/config  返回当前配置
// POST /admin/config 以 JSON 载荷更新部分字段
func (g *Gateway) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	if len(g.triggerKey) > 0 {
		if err := verifyPushToken(r.Header.Get("Authorization"), g.triggerKey); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, g.world.Tunables())
	case http.MethodPost:
		var body Tunables
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.valid() {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		g.world.ApplyTunables(body)
		writeJSON(w, map[string]any{"ok": true})
		Log.Infow("config updated", "config", g.world.Tunables())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出运行指标
// GET /metrics
func (g *Gateway) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"connections":  g.conns.Len(),
		"players":      len(g.world.ActivePlayers()),
		"bubbles":      g.world.BubbleCount(),
		"sharkRunning": g.world.SharkInProgress(),
		"metrics":      g.world.metrics.Snapshot(),
	}
	writeJSON(w, payload)
}

// HandleHealth 存活检查
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
