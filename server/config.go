package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// SharkConfig 鲨鱼事件的运动参数（像素、像素/秒）
type SharkConfig struct {
	MaxXVelocity float64
	MaxYVelocity float64
	MaxY         float64
	Acceleration float64
	Friction     float64
	StartX       float64
	EndX         float64
}

// BubbleConfig 泡泡生命周期与限流
type BubbleConfig struct {
	Velocity    float64 // 向上为负
	TTL         time.Duration
	Cooldown    time.Duration
	MaxBubbles  int
	MaxPerOwner int
	OffscreenY  float64
}

// ChatConfig 聊天消息的存活时间与长度上限
type ChatConfig struct {
	TTL       time.Duration
	MaxLength int
}

// CoinConfig 金币发放与扣除
type CoinConfig struct {
	Grant           int
	Penalty         int
	PenaltyInterval time.Duration // 同一玩家两次扣币的最小间隔
}

// Config 服务端全部配置
type Config struct {
	Addr            string
	Log             LogConfig
	SentryDSN       string
	DeadlockDetect  bool
	ShutdownTimeout time.Duration

	TickInterval      time.Duration
	ChatSweepInterval time.Duration
	CoinGrantInterval time.Duration

	SpawnPoint      Vec2
	SpawnDirection  Direction
	CoinsBucketURL  string
	SharkTriggerKey string // 非空时要求推送请求携带 HS256 Bearer token
	MaxMessageBytes int64
	SendQueueSize   int
	AllowAllOrigins bool

	Shark  SharkConfig
	Bubble BubbleConfig
	Chat   ChatConfig
	Coins  CoinConfig
}

// DefaultConfig 返回与线上一致的默认值
func DefaultConfig() Config {
	return Config{
		Addr: ":8080",
		Log: LogConfig{
			File:       "app.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Stderr:     true,
			Level:      "info",
		},
		ShutdownTimeout: 10 * time.Second,

		TickInterval:      50 * time.Millisecond,
		ChatSweepInterval: time.Second,
		CoinGrantInterval: 10 * time.Second,

		SpawnPoint:      Vec2{X: 100, Y: 100},
		SpawnDirection:  DirRight,
		MaxMessageBytes: 1 << 16,
		SendQueueSize:   256,
		AllowAllOrigins: true,

		Shark: SharkConfig{
			MaxXVelocity: 600,
			MaxYVelocity: 700,
			MaxY:         550,
			Acceleration: 500,
			Friction:     0.99,
			StartX:       -100,
			EndX:         3000,
		},
		Bubble: BubbleConfig{
			Velocity:    -60,
			TTL:         8 * time.Second,
			Cooldown:    300 * time.Millisecond,
			MaxBubbles:  500,
			MaxPerOwner: 20,
			OffscreenY:  -100,
		},
		Chat: ChatConfig{
			TTL:       10 * time.Second,
			MaxLength: 200,
		},
		Coins: CoinConfig{
			Grant:           1,
			Penalty:         10,
			PenaltyInterval: 2 * time.Second,
		},
	}
}

// LoadConfig 读取 .env（不存在则跳过）与环境变量，覆盖默认值
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	cfg.Addr = getEnvDefault("ADDR", cfg.Addr)
	cfg.Log.File = getEnvDefault("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.SentryDSN = os.Getenv("SENTRY_DSN")
	cfg.CoinsBucketURL = os.Getenv("COINS_BUCKET_URL")
	cfg.SharkTriggerKey = os.Getenv("SHARK_TRIGGER_KEY")

	var err error
	if cfg.Log.Stderr, err = getEnvBool("LOG_STDERR", cfg.Log.Stderr); err != nil {
		return Config{}, err
	}
	if cfg.DeadlockDetect, err = getEnvBool("DEADLOCK_DETECT", cfg.DeadlockDetect); err != nil {
		return Config{}, err
	}
	if cfg.AllowAllOrigins, err = getEnvBool("ALLOW_ALL_ORIGINS", cfg.AllowAllOrigins); err != nil {
		return Config{}, err
	}
	if cfg.TickInterval, err = getEnvDuration("TICK_INTERVAL", cfg.TickInterval); err != nil {
		return Config{}, err
	}
	if cfg.Bubble.TTL, err = getEnvDuration("BUBBLE_TTL", cfg.Bubble.TTL); err != nil {
		return Config{}, err
	}
	if cfg.Bubble.Cooldown, err = getEnvDuration("BUBBLE_COOLDOWN", cfg.Bubble.Cooldown); err != nil {
		return Config{}, err
	}
	if cfg.Bubble.MaxBubbles, err = getEnvInt("BUBBLE_MAX", cfg.Bubble.MaxBubbles); err != nil {
		return Config{}, err
	}
	if cfg.Bubble.MaxPerOwner, err = getEnvInt("BUBBLE_MAX_PER_OWNER", cfg.Bubble.MaxPerOwner); err != nil {
		return Config{}, err
	}
	if cfg.Chat.TTL, err = getEnvDuration("CHAT_TTL", cfg.Chat.TTL); err != nil {
		return Config{}, err
	}
	if cfg.Coins.PenaltyInterval, err = getEnvDuration("COIN_PENALTY_INTERVAL", cfg.Coins.PenaltyInterval); err != nil {
		return Config{}, err
	}
	if cfg.TickInterval <= 0 {
		return Config{}, fmt.Errorf("TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	return cfg, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
