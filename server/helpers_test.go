package server

import (
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"
)

type frame struct {
	to     ConnID // 单播目标
	except ConnID // BroadcastExcept 排除的连接
	all    bool
	msg    map[string]any
}

func (f frame) typ() string {
	s, _ := f.msg["type"].(string)
	return s
}

// reaches 该帧是否会送达 conn
func (f frame) reaches(conn ConnID) bool {
	if f.all {
		return f.except != conn
	}
	return f.to == conn
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	frames []frame
	closed []ConnID
}

func (b *recordingBroadcaster) record(f frame, raw []byte) {
	if err := json.Unmarshal(raw, &f.msg); err != nil {
		panic(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, f)
}

func (b *recordingBroadcaster) Send(conn ConnID, msg []byte) {
	b.record(frame{to: conn}, msg)
}

func (b *recordingBroadcaster) Broadcast(msg []byte) {
	b.record(frame{all: true}, msg)
}

func (b *recordingBroadcaster) BroadcastExcept(except ConnID, msg []byte) {
	b.record(frame{all: true, except: except}, msg)
}

func (b *recordingBroadcaster) Close(conn ConnID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, conn)
}

func (b *recordingBroadcaster) ofType(typ string) []frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []frame
	for _, f := range b.frames {
		if f.typ() == typ {
			out = append(out, f)
		}
	}
	return out
}

func (b *recordingBroadcaster) closedConns() []ConnID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ConnID(nil), b.closed...)
}

func (b *recordingBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = nil
	b.closed = nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// passthroughSanitizer 原样返回，"darn" 视为脏词
type passthroughSanitizer struct{}

func (passthroughSanitizer) Clean(text string) string {
	if text == "darn" {
		return "****"
	}
	return text
}

func (passthroughSanitizer) IsProfane(text string) bool { return text == "darn" }

// tb 同时覆盖 *testing.T 与 *rapid.T
type tb interface {
	Helper()
	Fatalf(format string, args ...any)
}

type testWorld struct {
	*World
	out   *recordingBroadcaster
	clock *fakeClock
}

func newTestWorld(t tb) *testWorld {
	t.Helper()
	return newTestWorldWithConfig(t, DefaultConfig())
}

func newTestWorldWithConfig(t tb, cfg Config) *testWorld {
	t.Helper()
	out := &recordingBroadcaster{}
	clock := newFakeClock()
	w := newWorld(cfg, out, passthroughSanitizer{}, nil, clock.Now, rand.New(rand.NewPCG(1, 2)))
	return &testWorld{World: w, out: out, clock: clock}
}

func (tw *testWorld) mustRegister(t tb, conn ConnID, id PlayerID, nickname, character string) Registration {
	t.Helper()
	reg, err := tw.Register(conn, id, nickname, character)
	if err != nil {
		t.Fatalf("register %s on %s: %v", id, conn, err)
	}
	return reg
}

// tick 前进 d 后推进一次
func (tw *testWorld) tick(d time.Duration) {
	tw.clock.Advance(d)
	tw.Tick()
}
