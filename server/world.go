package server

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/sasha-s/go-deadlock"
)

var (
	// ErrNotRegistered 连接尚未通过 playerInfo 绑定玩家身份
	ErrNotRegistered = errors.New("connection is not bound to a player")
	// ErrInvalidIdentity 注册时缺少玩家 ID
	ErrInvalidIdentity = errors.New("missing player id")
)

// Broadcaster 由传输层实现，核心只通过它向连接投递消息；实现必须非阻塞
type Broadcaster interface {
	Send(conn ConnID, msg []byte)
	Broadcast(msg []byte)
	BroadcastExcept(except ConnID, msg []byte)
	Close(conn ConnID)
}

// World 权威世界状态：玩家、泡泡、聊天、鲨鱼与金币
//
// 所有字段由 mu 保护。任何入口（Tick、定时器、连接事件）都通过 update
// 在持锁期间修改状态并把要发送的消息记到 outbox，解锁后再统一投递。
// sendMu 保证投递顺序与状态修改顺序一致；加锁顺序固定为 mu -> sendMu。
type World struct {
	mu     deadlock.Mutex
	sendMu deadlock.Mutex

	cfg       Config
	out       Broadcaster
	sanitizer Sanitizer
	metrics   *Metrics
	now       func() time.Time
	rng       *rand.Rand

	players map[PlayerID]*Player
	conns   map[ConnID]PlayerID // 活跃连接索引

	bubbles     *orderedmap.OrderedMap[string, *Bubble]
	ownerCounts map[PlayerID]int
	lastBubble  map[PlayerID]time.Time

	messages *orderedmap.OrderedMap[string, *ChatMessage]

	coins       map[PlayerID]int
	lastPenalty map[PlayerID]time.Time

	shark    *Shark
	lastTick time.Time
}

// NewWorld 创建世界；metrics 可为 nil
func NewWorld(cfg Config, out Broadcaster, sanitizer Sanitizer, metrics *Metrics) *World {
	seed := uint64(time.Now().UnixNano())
	return newWorld(cfg, out, sanitizer, metrics, time.Now, rand.New(rand.NewPCG(seed, rand.Uint64())))
}

func newWorld(cfg Config, out Broadcaster, sanitizer Sanitizer, metrics *Metrics, now func() time.Time, rng *rand.Rand) *World {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &World{
		cfg:         cfg,
		out:         out,
		sanitizer:   sanitizer,
		metrics:     metrics,
		now:         now,
		rng:         rng,
		players:     make(map[PlayerID]*Player),
		conns:       make(map[ConnID]PlayerID),
		bubbles:     orderedmap.NewOrderedMap[string, *Bubble](),
		ownerCounts: make(map[PlayerID]int),
		lastBubble:  make(map[PlayerID]time.Time),
		messages:    orderedmap.NewOrderedMap[string, *ChatMessage](),
		coins:       make(map[PlayerID]int),
		lastPenalty: make(map[PlayerID]time.Time),
		shark:       newShark(cfg.Shark, rng),
	}
}

// Metrics 返回运行指标
func (w *World) Metrics() *Metrics { return w.metrics }

// update 在锁内执行 fn，解锁后投递 fn 记录的消息
func (w *World) update(fn func(out *outbox)) {
	var out outbox
	func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		fn(&out)
		w.sendMu.Lock()
	}()
	defer w.sendMu.Unlock()
	w.flush(out)
}

// boundPlayerLocked 返回连接当前绑定的玩家
func (w *World) boundPlayerLocked(conn ConnID) (*Player, bool) {
	id, ok := w.conns[conn]
	if !ok {
		return nil, false
	}
	p, ok := w.players[id]
	return p, ok
}

type deliveryKind int

const (
	deliverTo deliveryKind = iota
	deliverAll
	deliverAllExcept
	deliverClose
)

type delivery struct {
	kind    deliveryKind
	conn    ConnID
	payload any
}

// outbox 持锁期间积累的待发送消息，按记录顺序投递
type outbox []delivery

func (o *outbox) send(conn ConnID, payload any) {
	*o = append(*o, delivery{kind: deliverTo, conn: conn, payload: payload})
}

func (o *outbox) broadcast(payload any) {
	*o = append(*o, delivery{kind: deliverAll, payload: payload})
}

func (o *outbox) broadcastExcept(conn ConnID, payload any) {
	*o = append(*o, delivery{kind: deliverAllExcept, conn: conn, payload: payload})
}

func (o *outbox) close(conn ConnID) {
	*o = append(*o, delivery{kind: deliverClose, conn: conn})
}

// flush 序列化并投递，单条失败不影响其他消息
func (w *World) flush(out outbox) {
	for _, d := range out {
		if d.kind == deliverClose {
			w.out.Close(d.conn)
			continue
		}
		b, err := json.Marshal(d.payload)
		if err != nil {
			Log.Errorw("marshal outbound message", "err", err)
			continue
		}
		switch d.kind {
		case deliverTo:
			w.out.Send(d.conn, b)
		case deliverAll:
			w.out.Broadcast(b)
		case deliverAllExcept:
			w.out.BroadcastExcept(d.conn, b)
		}
	}
}
