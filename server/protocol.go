package server

// 入站消息类型
const (
	MsgPlayerInfo   = "playerInfo"
	MsgMove         = "move"
	MsgBubbleCreate = "bubbleCreate"
	MsgChatMessage  = "chatMessage"
	MsgSharkHit     = "playerSharkCollision"
)

// 出站消息类型
const (
	MsgInit              = "init"
	MsgPlayerJoined      = "playerJoined"
	MsgPlayerMoved       = "playerMoved"
	MsgPlayerLeft        = "playerLeft"
	MsgBubbleSpawned     = "bubbleSpawned"
	MsgBubblesUpdate     = "bubblesUpdate"
	MsgBubbleRemoved     = "bubbleRemoved"
	MsgChatReceived      = "chatMessageReceived"
	MsgChatRemoved       = "chatMessageRemoved"
	MsgSharkEventStart   = "sharkEventStart"
	MsgSharkPosition     = "sharkPosition"
	MsgSharkEventEnd     = "sharkEventEnd"
	MsgCoinBalanceUpdate = "coinBalanceUpdate"
)

// InboundMessage 客户端发来的 JSON 文本消息，字段按 type 取用
// 示例：{"type":"move","position":{"x":120,"y":140},"direction":"left"}
type InboundMessage struct {
	Type string `json:"type"`

	// playerInfo
	UID       string `json:"uid,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
	Character string `json:"character,omitempty"`

	// move
	Position  *Vec2  `json:"position,omitempty"`
	Direction string `json:"direction,omitempty"`

	// bubbleCreate
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`

	// chatMessage
	Text *string `json:"text,omitempty"`
}

type initMessage struct {
	Type       string                   `json:"type"`
	PlayersMap map[PlayerID]PlayerState `json:"playersMap"`
	CoinCount  int                      `json:"coinCount"`
}

type playerJoinedMessage struct {
	Type string   `json:"type"`
	ID   PlayerID `json:"id"`
	PlayerState
}

type playerMovedMessage struct {
	Type      string    `json:"type"`
	ID        PlayerID  `json:"id"`
	Position  Vec2      `json:"position"`
	Direction Direction `json:"direction"`
}

type idMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type bubbleSpawnedMessage struct {
	Type      string   `json:"type"`
	ID        string   `json:"id"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
	OwnerID   PlayerID `json:"ownerId"`
	CreatedAt int64    `json:"createdAt"`
}

// BubblePosition 批量位置更新中的单个泡泡
type BubblePosition struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
}

type bubblesUpdateMessage struct {
	Type    string           `json:"type"`
	Bubbles []BubblePosition `json:"bubbles"`
}

type chatReceivedMessage struct {
	Type string `json:"type"`
	ChatMessage
}

type pointMessage struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type typeOnlyMessage struct {
	Type string `json:"type"`
}

type coinBalanceMessage struct {
	Type      string `json:"type"`
	CoinCount int    `json:"coinCount"`
}
