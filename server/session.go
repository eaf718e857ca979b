package server

// Registration 注册后回给调用方的同步数据
type Registration struct {
	Position  Vec2
	Direction Direction
	CoinCount int
	Players   map[PlayerID]PlayerState // 当前所有活跃玩家（含自己）
}

// Register 把连接绑定到玩家身份
//
// 同一身份已有其他活跃连接时，旧连接被强制断开并移出活跃索引，
// 与新连接的安装在同一次加锁内完成。昵称或角色未变时保留上次的位置与朝向。
func (w *World) Register(conn ConnID, id PlayerID, nickname, character string) (Registration, error) {
	if conn == "" || id == "" {
		return Registration{}, ErrInvalidIdentity
	}
	nickname = w.sanitizer.Clean(nickname)

	var reg Registration
	w.update(func(out *outbox) {
		reg = w.registerLocked(out, conn, id, nickname, character)
	})
	Log.Infow("player joined", "player", id, "nickname", nickname, "conn", conn)
	return reg, nil
}

func (w *World) registerLocked(out *outbox, conn ConnID, id PlayerID, nickname, character string) Registration {
	// 该连接此前绑定的是另一个身份：把那个身份标记为离线
	if prevID, ok := w.conns[conn]; ok && prevID != id {
		if prev, ok := w.players[prevID]; ok && prev.Conn == conn {
			prev.Conn = ""
			out.broadcast(idMessage{Type: MsgPlayerLeft, ID: string(prevID)})
		}
	}

	pos, dir := w.cfg.SpawnPoint, w.cfg.SpawnDirection
	var staleConn ConnID
	if p, ok := w.players[id]; ok {
		if p.Character == character && p.Nickname == nickname {
			pos, dir = p.Position, p.Direction
		}
		staleConn = p.Conn
	}

	p := &Player{
		ID:        id,
		Conn:      conn,
		Position:  pos,
		Direction: dir,
		Nickname:  nickname,
		Character: character,
	}
	w.players[id] = p
	w.conns[conn] = id
	if _, ok := w.coins[id]; !ok {
		w.coins[id] = 0
	}

	if staleConn != "" && staleConn != conn {
		delete(w.conns, staleConn)
		out.close(staleConn)
		Log.Debugw("evicted stale connection", "player", id, "conn", staleConn)
	}

	reg := Registration{
		Position:  pos,
		Direction: dir,
		CoinCount: w.coins[id],
		Players:   w.activePlayersLocked(),
	}
	out.send(conn, initMessage{Type: MsgInit, PlayersMap: reg.Players, CoinCount: reg.CoinCount})
	out.broadcastExcept(conn, playerJoinedMessage{Type: MsgPlayerJoined, ID: id, PlayerState: p.state()})
	return reg
}

func (w *World) activePlayersLocked() map[PlayerID]PlayerState {
	players := make(map[PlayerID]PlayerState, len(w.conns))
	for _, id := range w.conns {
		if p, ok := w.players[id]; ok {
			players[id] = p.state()
		}
	}
	return players
}

// UpdatePosition 记录玩家位置与朝向并通知其他连接
func (w *World) UpdatePosition(conn ConnID, pos Vec2, dir Direction) error {
	err := ErrNotRegistered
	w.update(func(out *outbox) {
		p, ok := w.boundPlayerLocked(conn)
		if !ok {
			return
		}
		err = nil
		p.Position = pos
		p.Direction = dir
		out.broadcastExcept(conn, playerMovedMessage{Type: MsgPlayerMoved, ID: p.ID, Position: pos, Direction: dir})
	})
	return err
}

// HandleDisconnect 传输层检测到断线时调用；玩家记录保留以便重连
func (w *World) HandleDisconnect(conn ConnID) {
	w.update(func(out *outbox) {
		id, ok := w.conns[conn]
		if !ok {
			return
		}
		delete(w.conns, conn)
		p, ok := w.players[id]
		if !ok || p.Conn != conn {
			// 已被更新的连接取代
			return
		}
		p.Conn = ""
		out.broadcast(idMessage{Type: MsgPlayerLeft, ID: string(id)})
		Log.Infow("player left", "player", id, "nickname", p.Nickname, "conn", conn)
	})
}

// ActivePlayers 返回当前活跃玩家快照
func (w *World) ActivePlayers() map[PlayerID]PlayerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activePlayersLocked()
}

// Player 返回玩家记录副本（含离线玩家）
func (w *World) Player(id PlayerID) (Player, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}
