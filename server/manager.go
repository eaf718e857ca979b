package server

import "sync"

// ConnManager 管理所有在线连接，实现 Broadcaster；投递均为非阻塞入队
type ConnManager struct {
	mu      sync.RWMutex
	conns   map[ConnID]*ClientConn
	metrics *Metrics
}

func NewConnManager(metrics *Metrics) *ConnManager {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &ConnManager{conns: make(map[ConnID]*ClientConn), metrics: metrics}
}

// Add 登记新连接
func (m *ConnManager) Add(c *ClientConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[c.ID] = c
}

// Remove 注销连接（不关闭）
func (m *ConnManager) Remove(id ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, id)
}

// Len 在线连接数
func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

func (m *ConnManager) Send(id ConnID, msg []byte) {
	m.mu.RLock()
	c, ok := m.conns[id]
	m.mu.RUnlock()
	if ok {
		m.enqueue(c, msg)
	}
}

func (m *ConnManager) Broadcast(msg []byte) {
	m.BroadcastExcept("", msg)
}

func (m *ConnManager) BroadcastExcept(except ConnID, msg []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, c := range m.conns {
		if id != except {
			m.enqueue(c, msg)
		}
	}
}

// Close 强制断开连接，例如同一玩家从新连接重新登录
func (m *ConnManager) Close(id ConnID) {
	m.mu.Lock()
	c, ok := m.conns[id]
	delete(m.conns, id)
	m.mu.Unlock()
	if ok {
		// Kick 会写关闭帧，放到协程里避免阻塞投递
		go c.Kick("replaced by a newer connection")
	}
}

// CloseAll 关闭全部连接（进程退出时）
func (m *ConnManager) CloseAll() {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[ConnID]*ClientConn)
	m.mu.Unlock()
	for _, c := range conns {
		c.Kick("server shutting down")
	}
}

func (m *ConnManager) enqueue(c *ClientConn, msg []byte) {
	if !c.Enqueue(msg) {
		m.metrics.IncFramesDropped()
	}
}
