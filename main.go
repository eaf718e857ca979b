package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sync/errgroup"

	"fishtank/server"
)

// Fishtank 入口：加载配置与金币账本，启动 HTTP + WebSocket 服务与模拟循环
func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		panic(err)
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address, e.g. :8080")
	flag.Parse()

	// 使用第三方 zap 日志库写入 app.log（带滚动）
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			server.Log.Warnw("sentry init failed", "err", err)
		}
		defer sentry.Flush(2 * time.Second)
	}
	// 死锁检测只在排查问题时打开
	deadlock.Opts.Disable = !cfg.DeadlockDetect

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := &server.Metrics{}
	conns := server.NewConnManager(metrics)
	world := server.NewWorld(cfg, conns, server.NewProfanitySanitizer(), metrics)
	store := server.NewCoinStore(cfg.CoinsBucketURL)

	// 先恢复金币，再接受连接
	world.LoadCoins(ctx, store)

	gw := server.NewGateway(cfg, world, conns)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWS)
	mux.HandleFunc("/pubsub/shark-event", gw.HandleSharkEvent)
	mux.HandleFunc("/admin/config", gw.HandleAdminConfig)
	mux.HandleFunc("/metrics", gw.HandleMetrics)
	mux.HandleFunc("/healthz", server.HandleHealth)

	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return world.Run(gctx)
	})
	g.Go(func() error {
		server.Log.Infof("Fish server listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		server.Log.Info("Shutting down...")
		return shutdown(srv, conns, world, store, cfg.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		server.Log.Errorw("server stopped with error", "err", err)
	}
	server.Log.Info("Server closed")
}

// shutdown 停止接收请求、断开所有连接后写回金币账本。
// 写回使用独立的超时，不受 HTTP 排空耗时影响。
func shutdown(srv *http.Server, conns *server.ConnManager, world *server.World, store server.CoinStore, timeout time.Duration) error {
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), timeout)
	defer cancelDrain()
	err := srv.Shutdown(drainCtx)
	conns.CloseAll()

	saveCtx, cancelSave := context.WithTimeout(context.Background(), timeout)
	defer cancelSave()
	// 保存失败只记录日志，不阻塞退出
	_ = world.SaveCoins(saveCtx, store)
	return err
}
