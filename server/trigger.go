package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedPush    = errors.New("malformed push message")
	ErrUnauthorizedPush = errors.New("unauthorized push request")
)

const maxPushBody = 64 << 10

// pushEnvelope Pub/Sub push 订阅的请求体
type pushEnvelope struct {
	Message *struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// SharkEvent 解码后的事件内容
type SharkEvent struct {
	Event       string // data.event 的文本形式，仅用于日志
	Attributes  map[string]string
	MessageID   string
	PublishTime string
}

// decodePush 解析推送信封，data 必须是 base64 编码的 JSON 对象
func decodePush(r io.Reader) (SharkEvent, error) {
	var env pushEnvelope
	if err := json.NewDecoder(io.LimitReader(r, maxPushBody)).Decode(&env); err != nil {
		return SharkEvent{}, fmt.Errorf("%w: %v", ErrMalformedPush, err)
	}
	if env.Message == nil || env.Message.Data == "" {
		return SharkEvent{}, fmt.Errorf("%w: missing message.data", ErrMalformedPush)
	}
	raw, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return SharkEvent{}, fmt.Errorf("%w: data is not base64: %v", ErrMalformedPush, err)
	}
	// 负载内容不做约束，只要求是 JSON 对象
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return SharkEvent{}, fmt.Errorf("%w: data is not a JSON object: %v", ErrMalformedPush, err)
	}
	if data == nil {
		return SharkEvent{}, fmt.Errorf("%w: data is not a JSON object", ErrMalformedPush)
	}
	var event string
	if v, ok := data["event"]; ok {
		event = fmt.Sprintf("%v", v)
	}
	return SharkEvent{
		Event:       event,
		Attributes:  env.Message.Attributes,
		MessageID:   env.Message.MessageID,
		PublishTime: env.Message.PublishTime,
	}, nil
}

// verifyPushToken 校验 Authorization: Bearer <HS256 JWT>
func verifyPushToken(header string, key []byte) error {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return fmt.Errorf("%w: missing bearer token", ErrUnauthorizedPush)
	}
	_, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorizedPush, err)
	}
	return nil
}

// HandleSharkEvent POST /pubsub/shark-event
//
// 200 已开始；202 已有事件进行中；400 消息格式错误；401 鉴权失败；500 内部错误
func (g *Gateway) HandleSharkEvent(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			Log.Errorw("panic while processing shark event", "panic", rec)
			sentry.CurrentHub().Recover(rec)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if len(g.triggerKey) > 0 {
		if err := verifyPushToken(r.Header.Get("Authorization"), g.triggerKey); err != nil {
			Log.Warnw("rejected shark event trigger", "err", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	ev, err := decodePush(r.Body)
	if err != nil {
		Log.Warnw("invalid push message", "err", err)
		http.Error(w, "Invalid message format", http.StatusBadRequest)
		return
	}

	switch err := g.world.TriggerSharkEvent(); {
	case err == nil:
		Log.Infow("shark event triggered", "event", ev.Event, "publishTime", ev.PublishTime, "messageId", ev.MessageID, "attributes", ev.Attributes)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	case errors.Is(err, ErrEventInProgress):
		Log.Infow("shark event already ongoing, skipping", "event", ev.Event, "messageId", ev.MessageID)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("Event already in progress"))
	default:
		Log.Errorw("shark event trigger failed", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
