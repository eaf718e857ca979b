package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ID   ConnID
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClientConn(ws *websocket.Conn, queue int) *ClientConn {
	return &ClientConn{
		ID:   ConnID(uuid.NewString()),
		ws:   ws,
		send: make(chan []byte, queue),
		done: make(chan struct{}),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性，丢弃消息（防止阻塞 Tick）
		return false
	}
}

// Close 关闭底层连接并结束写协程，可重复调用
func (c *ClientConn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// Kick 发送关闭帧后断开
func (c *ClientConn) Kick(reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.Close()
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer c.Close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息并交给 Gateway 分发；返回即视为断线
func (c *ClientConn) readPump(g *Gateway, limit int64) {
	defer c.Close()
	c.ws.SetReadLimit(limit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.ClosePolicyViolation) {
				Log.Debugw("read error", "conn", c.ID, "err", err)
			}
			return
		}
		g.dispatch(c.ID, payload)
	}
}

// Gateway 把 WebSocket 连接与 HTTP 推送接入世界
type Gateway struct {
	world    *World
	conns    *ConnManager
	upgrader websocket.Upgrader

	readLimit  int64
	queueSize  int
	triggerKey []byte
}

func NewGateway(cfg Config, world *World, conns *ConnManager) *Gateway {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	// 客户端部署在独立域名下，默认允许所有来源；关闭后 CheckOrigin 为 nil，
	// 由 gorilla 做同源校验（无 Origin 头或 Origin 与 Host 一致）
	if cfg.AllowAllOrigins {
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return &Gateway{
		world:      world,
		conns:      conns,
		upgrader:   upgrader,
		readLimit:  cfg.MaxMessageBytes,
		queueSize:  cfg.SendQueueSize,
		triggerKey: []byte(cfg.SharkTriggerKey),
	}
}

// HandleWS WebSocket 接入：身份由随后的 playerInfo 消息提供
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("upgrade error", "err", err, "remote", r.RemoteAddr)
		return
	}

	client := NewClientConn(ws, g.queueSize)
	g.conns.Add(client)
	Log.Debugw("connection opened", "conn", client.ID, "remote", r.RemoteAddr)

	go client.writePump()
	go func() {
		client.readPump(g, g.readLimit)
		g.conns.Remove(client.ID)
		g.world.HandleDisconnect(client.ID)
		Log.Debugw("connection closed", "conn", client.ID)
	}()
}

// dispatch 解析一条入站消息；格式错误或缺字段的消息静默丢弃
func (g *Gateway) dispatch(conn ConnID, payload []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		g.world.metrics.IncInputsMalformed()
		return
	}

	var err error
	switch msg.Type {
	case MsgPlayerInfo:
		_, err = g.world.Register(conn, PlayerID(msg.UID), msg.Nickname, msg.Character)
	case MsgMove:
		dir, ok := ParseDirection(msg.Direction)
		if msg.Position == nil || !ok {
			g.world.metrics.IncInputsMalformed()
			return
		}
		err = g.world.UpdatePosition(conn, *msg.Position, dir)
	case MsgBubbleCreate:
		var pos Vec2
		if msg.X != nil {
			pos.X = *msg.X
		}
		if msg.Y != nil {
			pos.Y = *msg.Y
		}
		err = g.world.SpawnBubble(conn, pos)
	case MsgChatMessage:
		if msg.Text == nil {
			g.world.metrics.IncInputsMalformed()
			return
		}
		err = g.world.SubmitChat(conn, *msg.Text)
	case MsgSharkHit:
		err = g.world.ApplyPredatorPenalty(conn)
	default:
		g.world.metrics.IncInputsMalformed()
		return
	}
	if err != nil {
		Log.Debugw("inbound message ignored", "conn", conn, "type", msg.Type, "err", err)
	}
}
