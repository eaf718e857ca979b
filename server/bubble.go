package server

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrBubbleCooldown      = errors.New("bubble cooldown not elapsed")
	ErrBubbleCapacity      = errors.New("bubble limit reached")
	ErrBubbleOwnerCapacity = errors.New("bubble limit per player reached")
)

// Bubble 服务端权威的泡泡
type Bubble struct {
	ID        string
	Pos       Vec2
	VY        float64
	Owner     PlayerID
	CreatedAt time.Time
}

// SpawnBubble 处理客户端的泡泡请求；被冷却或容量限制拒绝时返回对应错误
func (w *World) SpawnBubble(conn ConnID, pos Vec2) error {
	var err error
	w.update(func(out *outbox) {
		id, ok := w.conns[conn]
		if !ok {
			err = ErrNotRegistered
			return
		}
		err = w.spawnBubbleLocked(out, id, pos, w.now())
	})
	switch {
	case err == nil:
		w.metrics.IncBubblesSpawned()
	case !errors.Is(err, ErrNotRegistered):
		w.metrics.IncBubblesRejected()
	}
	return err
}

func (w *World) spawnBubbleLocked(out *outbox, owner PlayerID, pos Vec2, now time.Time) error {
	cfg := w.cfg.Bubble
	if last, ok := w.lastBubble[owner]; ok && now.Sub(last) < cfg.Cooldown {
		return ErrBubbleCooldown
	}
	if w.bubbles.Len() >= cfg.MaxBubbles {
		return ErrBubbleCapacity
	}
	if w.ownerCounts[owner] >= cfg.MaxPerOwner {
		return ErrBubbleOwnerCapacity
	}

	w.lastBubble[owner] = now
	b := &Bubble{
		ID:        ulid.Make().String(),
		Pos:       pos,
		VY:        cfg.Velocity,
		Owner:     owner,
		CreatedAt: now,
	}
	w.bubbles.Set(b.ID, b)
	w.ownerCounts[owner]++
	out.broadcast(bubbleSpawnedMessage{
		Type:      MsgBubbleSpawned,
		ID:        b.ID,
		X:         roundInt(b.Pos.X),
		Y:         roundInt(b.Pos.Y),
		OwnerID:   owner,
		CreatedAt: now.UnixMilli(),
	})
	return nil
}

// advanceBubblesLocked 积分竖直位置，移除超时或飘出屏幕的泡泡，其余批量广播
func (w *World) advanceBubblesLocked(out *outbox, now time.Time, dt float64) {
	if w.bubbles.Len() == 0 {
		return
	}
	cfg := w.cfg.Bubble
	updates := make([]BubblePosition, 0, w.bubbles.Len())
	for el := w.bubbles.Front(); el != nil; {
		next := el.Next()
		b := el.Value
		b.Pos.Y += b.VY * dt
		if now.Sub(b.CreatedAt) >= cfg.TTL || b.Pos.Y < cfg.OffscreenY {
			w.removeBubbleLocked(b)
			out.broadcast(idMessage{Type: MsgBubbleRemoved, ID: b.ID})
		} else {
			updates = append(updates, BubblePosition{ID: b.ID, X: roundInt(b.Pos.X), Y: roundInt(b.Pos.Y)})
		}
		el = next
	}
	if len(updates) > 0 {
		out.broadcast(bubblesUpdateMessage{Type: MsgBubblesUpdate, Bubbles: updates})
	}
}

func (w *World) removeBubbleLocked(b *Bubble) {
	w.bubbles.Delete(b.ID)
	if n := w.ownerCounts[b.Owner] - 1; n > 0 {
		w.ownerCounts[b.Owner] = n
	} else {
		delete(w.ownerCounts, b.Owner)
	}
}

// BubbleCount 当前存活泡泡数
func (w *World) BubbleCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bubbles.Len()
}

// Bubbles 按创建顺序返回存活泡泡的副本
func (w *World) Bubbles() []Bubble {
	w.mu.Lock()
	defer w.mu.Unlock()
	list := make([]Bubble, 0, w.bubbles.Len())
	for el := w.bubbles.Front(); el != nil; el = el.Next() {
		list = append(list, *el.Value)
	}
	return list
}
