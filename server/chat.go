package server

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// ChatMessage 一条聊天消息，创建后不再修改
type ChatMessage struct {
	ID              string    `json:"id"`
	SenderID        PlayerID  `json:"senderId"`
	SenderNickname  string    `json:"senderNickname"`
	SenderCharacter string    `json:"senderCharacter"`
	Text            string    `json:"text"`
	Timestamp       int64     `json:"timestamp"` // 毫秒
	createdAt       time.Time `json:"-"`
}

// SubmitChat 接收聊天内容：截断、过滤后广播给所有连接
func (w *World) SubmitChat(conn ConnID, raw string) error {
	text := truncateRunes(strings.TrimSpace(raw), w.chatMaxLength())
	if text == "" {
		return nil
	}
	censored := w.sanitizer.IsProfane(text)
	if censored {
		text = w.sanitizer.Clean(text)
	}

	var msg *ChatMessage
	w.update(func(out *outbox) {
		p, ok := w.boundPlayerLocked(conn)
		if !ok || p.Nickname == "" {
			return
		}
		now := w.now()
		msg = &ChatMessage{
			ID:              ulid.Make().String(),
			SenderID:        p.ID,
			SenderNickname:  p.Nickname,
			SenderCharacter: p.Character,
			Text:            text,
			Timestamp:       now.UnixMilli(),
			createdAt:       now,
		}
		w.messages.Set(msg.ID, msg)
		out.broadcast(chatReceivedMessage{Type: MsgChatReceived, ChatMessage: *msg})
	})
	if msg == nil {
		return ErrNotRegistered
	}
	w.metrics.IncChatMessages()
	Log.Infof("%s: %s", msg.SenderNickname, msg.Text)
	if censored {
		Log.Debugw("chat message censored", "player", msg.SenderID, "id", msg.ID)
	}
	return nil
}

func (w *World) chatMaxLength() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.Chat.MaxLength
}

// SweepChat 移除超过 TTL 的消息；消息按创建顺序存放，遇到未过期的即可停止
func (w *World) SweepChat() {
	w.update(func(out *outbox) {
		w.sweepChatLocked(out, w.now())
	})
}

func (w *World) sweepChatLocked(out *outbox, now time.Time) {
	ttl := w.cfg.Chat.TTL
	for el := w.messages.Front(); el != nil; {
		if now.Sub(el.Value.createdAt) <= ttl {
			return
		}
		next := el.Next()
		w.messages.Delete(el.Key)
		out.broadcast(idMessage{Type: MsgChatRemoved, ID: el.Key})
		el = next
	}
}

// Messages 按创建顺序返回当前消息
func (w *World) Messages() []ChatMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	list := make([]ChatMessage, 0, w.messages.Len())
	for el := w.messages.Front(); el != nil; el = el.Next() {
		list = append(list, *el.Value)
	}
	return list
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
