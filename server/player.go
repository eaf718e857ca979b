package server

// PlayerID 玩家持久身份，由客户端生成，跨重连保持不变
type PlayerID string

// ConnID 一条 WebSocket 连接的临时标识
type ConnID string

// Direction 鱼的朝向
type Direction string

const (
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// ParseDirection 解析客户端上报的朝向，非法值返回 false
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirLeft, DirRight:
		return Direction(s), true
	default:
		return "", false
	}
}

// Vec2 二维坐标/速度
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlayerState 广播给客户端的玩家公开状态
type PlayerState struct {
	Position  Vec2      `json:"position"`
	Nickname  string    `json:"nickname"`
	Character string    `json:"character"`
	Direction Direction `json:"direction"`
}

// Player 服务端权威的玩家记录；断线后只清空 Conn，记录本身保留到进程结束
type Player struct {
	ID        PlayerID
	Conn      ConnID // 为空表示当前没有活跃连接
	Position  Vec2
	Direction Direction
	Nickname  string
	Character string
}

// Active 是否有活跃连接
func (p *Player) Active() bool { return p.Conn != "" }

func (p *Player) state() PlayerState {
	return PlayerState{
		Position:  p.Position,
		Nickname:  p.Nickname,
		Character: p.Character,
		Direction: p.Direction,
	}
}
