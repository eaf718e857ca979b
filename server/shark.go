package server

import (
	"errors"
	"math"
	"math/rand/v2"
)

// ErrEventInProgress 上一次鲨鱼事件尚未结束
var ErrEventInProgress = errors.New("shark event already in progress")

// 运动模式名称，与客户端调试面板一致
const (
	ModeDefault   = "default"
	ModeRandomY   = "randomYVelocity"
	ModeRandomXY  = "randomXandYVelocity"
	ModeSignwave  = "signwave"
	ModeLoopDloop = "loopDloop"
	ModeTeleportY = "teleportY"
)

const (
	modeSwitchChance  = 0.3
	cruiseRollAfter   = 15 // default 模式越过左边界后每 16 个 tick 掷一次骰子
	reassignEvery     = 4  // 随机速度模式的重设间隔
	minRandomXSpeed   = 100.0
	edgeTop           = 1.0
	edgeBottomMargin  = 10.0
	signwaveMargin    = 50.0
	loopRunUpTicks    = 15
	loopMinSpeed      = 500.0
	loopRadius        = 50.0
	loopAngleStep     = 0.15
	loopExitSpeed     = 100.0
	teleportEvery     = 10
	teleportGrid      = 50.0
	teleportCruiseMax = 100.0
)

// 可被 default 模式随机切换到的模式
var sharkBehaviors = []string{ModeRandomY, ModeRandomXY, ModeSignwave, ModeLoopDloop, ModeTeleportY}

// sharkMode 一种运动模式；step 修改鲨鱼速度/位置并返回下一 tick 的模式。
// 模式私有的计数器放在各自的结构体里，切换模式即清零。
type sharkMode interface {
	name() string
	step(s *Shark, dt float64) sharkMode
}

// newSharkMode 按名称构造模式，未知名称回退到 default
func newSharkMode(name string) sharkMode {
	switch name {
	case ModeRandomY:
		return &randomYMode{}
	case ModeRandomXY:
		return &randomXYMode{}
	case ModeSignwave:
		return &signwaveMode{}
	case ModeLoopDloop:
		return &loopMode{}
	case ModeTeleportY:
		return &teleportYMode{}
	default:
		return &cruiseMode{}
	}
}

// Shark 全局唯一的鲨鱼
type Shark struct {
	cfg SharkConfig
	rng *rand.Rand

	Pos    Vec2
	Vel    Vec2
	Active bool

	// inProgress 与 Active 分开：外部触发只看它
	inProgress bool
	mode       sharkMode
}

func newShark(cfg SharkConfig, rng *rand.Rand) *Shark {
	return &Shark{cfg: cfg, rng: rng, Pos: Vec2{X: cfg.StartX}, mode: &cruiseMode{}}
}

// Mode 当前运动模式名称
func (s *Shark) Mode() string { return s.mode.name() }

// InProgress 事件是否仍在进行
func (s *Shark) InProgress() bool { return s.inProgress }

// Start 开始一次事件；已有事件进行中时返回 ErrEventInProgress 且不做任何修改
func (s *Shark) Start() error {
	if s.inProgress {
		return ErrEventInProgress
	}
	s.inProgress = true
	s.Active = true
	s.Pos = Vec2{X: s.cfg.StartX, Y: s.rng.Float64() * s.cfg.MaxY}
	s.Vel = Vec2{}
	s.mode = &cruiseMode{}
	return nil
}

// Advance 推进一个 tick，返回事件是否在本 tick 结束
func (s *Shark) Advance(dt float64) bool {
	if !s.Active {
		return false
	}

	prev := s.mode
	s.mode = s.mode.step(s, dt)
	if s.mode != prev {
		Log.Debugw("shark movement changed", "from", prev.name(), "to", s.mode.name(), "x", s.Pos.X)
	}

	s.Vel.X *= s.cfg.Friction
	s.Pos.X += s.Vel.X * dt
	s.Pos.Y += s.Vel.Y * dt
	s.Pos.Y = math.Max(math.Min(s.Pos.Y, s.cfg.MaxY), 0)

	if s.Pos.X >= s.cfg.EndX {
		s.Active = false
		s.inProgress = false
		return true
	}
	return false
}

// accelerateX 水平速度以 Acceleration 逼近 limit
func (s *Shark) accelerateX(limit, dt float64) {
	if s.Vel.X < limit {
		s.Vel.X = math.Min(s.Vel.X+s.cfg.Acceleration*dt, limit)
	}
}

// reflectY 靠近上下边界时反转竖直速度
func (s *Shark) reflectY() {
	if s.Pos.Y <= edgeTop || s.Pos.Y >= s.cfg.MaxY-edgeBottomMargin {
		s.Vel.Y = -s.Vel.Y
	}
}

func (s *Shark) randomYVelocity() float64 {
	return s.rng.Float64()*s.cfg.MaxYVelocity*2 - s.cfg.MaxYVelocity
}

// cruiseMode 即 default：直线加速，越过左边界后随机切换到其他模式
type cruiseMode struct{ ticks int }

func (m *cruiseMode) name() string { return ModeDefault }

func (m *cruiseMode) step(s *Shark, dt float64) sharkMode {
	s.accelerateX(s.cfg.MaxXVelocity, dt)
	s.Vel.Y = 0
	if s.Pos.X < 0 {
		return m
	}
	m.ticks++
	if m.ticks <= cruiseRollAfter {
		return m
	}
	m.ticks = 0
	if s.rng.Float64() < modeSwitchChance {
		return newSharkMode(sharkBehaviors[s.rng.IntN(len(sharkBehaviors))])
	}
	return m
}

type randomYMode struct{ ticks int }

func (m *randomYMode) name() string { return ModeRandomY }

func (m *randomYMode) step(s *Shark, dt float64) sharkMode {
	s.accelerateX(s.cfg.MaxXVelocity, dt)
	s.reflectY()
	m.ticks++
	if m.ticks >= reassignEvery {
		s.Vel.Y = s.randomYVelocity()
		m.ticks = 0
	}
	return m
}

type randomXYMode struct{ ticks int }

func (m *randomXYMode) name() string { return ModeRandomXY }

func (m *randomXYMode) step(s *Shark, dt float64) sharkMode {
	s.accelerateX(s.cfg.MaxXVelocity, dt)
	if s.Vel.Y < s.cfg.MaxYVelocity {
		s.Vel.Y = math.Min(s.Vel.Y+s.cfg.Acceleration*dt, s.cfg.MaxYVelocity)
	}
	s.reflectY()
	m.ticks++
	if m.ticks >= reassignEvery {
		s.Vel.X = minRandomXSpeed + s.rng.Float64()*(s.cfg.MaxXVelocity-minRandomXSpeed)
		s.Vel.Y = s.randomYVelocity()
		m.ticks = 0
	}
	return m
}

// signwaveMode 竖直方向以恒定加速度来回摆动；水平速度只受摩擦影响
type signwaveMode struct{ down bool }

func (m *signwaveMode) name() string { return ModeSignwave }

func (m *signwaveMode) step(s *Shark, dt float64) sharkMode {
	if s.Pos.Y < signwaveMargin {
		m.down = true
		s.Vel.Y = 0
	} else if s.Pos.Y > s.cfg.MaxY-signwaveMargin {
		m.down = false
		s.Vel.Y = 0
	}
	if m.down {
		s.Vel.Y += s.cfg.Acceleration * dt
	} else {
		s.Vel.Y -= s.cfg.Acceleration * dt
	}
	if math.Abs(s.Vel.Y) > s.cfg.MaxYVelocity {
		m.down = !m.down
	}
	return m
}

// loopMode 先向前冲刺，然后绕开始绕圈时的位置画一整圈，再恢复前进
type loopMode struct {
	ticks   int
	looping bool
	angle   float64
	center  Vec2
}

func (m *loopMode) name() string { return ModeLoopDloop }

func (m *loopMode) step(s *Shark, dt float64) sharkMode {
	if !m.looping {
		m.ticks++
		if m.ticks < loopRunUpTicks {
			if s.Vel.X < s.cfg.MaxXVelocity {
				s.Vel.X = math.Max(math.Min(s.Vel.X+s.cfg.Acceleration*dt, s.cfg.MaxXVelocity), loopMinSpeed)
			}
			s.Vel.Y = 0
			return m
		}
		// 圆心固定为开始绕圈时的位置
		m.looping = true
		m.angle = 0
		m.center = s.Pos
	}

	m.angle += loopAngleStep
	s.Vel = Vec2{}
	s.Pos = Vec2{
		X: m.center.X + loopRadius*math.Cos(m.angle),
		Y: m.center.Y + loopRadius*math.Sin(m.angle),
	}
	if m.angle > 2*math.Pi {
		m.looping = false
		m.angle = 0
		m.ticks = 0
		s.Vel = Vec2{X: loopExitSpeed}
	}
	return m
}

// teleportYMode 缓慢前进，每隔若干 tick 瞬移到网格对齐的随机高度
type teleportYMode struct{ ticks int }

func (m *teleportYMode) name() string { return ModeTeleportY }

func (m *teleportYMode) step(s *Shark, dt float64) sharkMode {
	m.ticks++
	if m.ticks >= teleportEvery {
		s.Pos.Y = math.Floor(s.rng.Float64()*s.cfg.MaxY/teleportGrid) * teleportGrid
		m.ticks = 0
		return m
	}
	s.accelerateX(teleportCruiseMax, dt)
	s.Vel.Y = 0
	return m
}

// TriggerSharkEvent 外部触发入口；事件进行中返回 ErrEventInProgress，不排队
func (w *World) TriggerSharkEvent() error {
	var (
		err   error
		start Vec2
	)
	w.update(func(out *outbox) {
		if err = w.shark.Start(); err != nil {
			return
		}
		start = w.shark.Pos
		out.broadcast(pointMessage{Type: MsgSharkEventStart, X: roundInt(start.X), Y: roundInt(start.Y)})
	})
	if err != nil {
		w.metrics.IncSharkConflicts()
		return err
	}
	w.metrics.IncSharkEvents()
	Log.Infow("shark event started", "x", start.X, "y", start.Y)
	return nil
}

// SharkInProgress 当前是否有鲨鱼事件
func (w *World) SharkInProgress() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shark.InProgress()
}

func (w *World) advanceSharkLocked(out *outbox, dt float64) {
	if !w.shark.Active {
		return
	}
	ended := w.shark.Advance(dt)
	out.broadcast(pointMessage{Type: MsgSharkPosition, X: roundInt(w.shark.Pos.X), Y: roundInt(w.shark.Pos.Y)})
	if ended {
		out.broadcast(typeOnlyMessage{Type: MsgSharkEventEnd})
		Log.Info("shark event ended")
	}
}

func roundInt(v float64) int { return int(math.Round(v)) }
