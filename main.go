package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collabmap/server"
)

// collabmap 入口：启动 HTTP + WebSocket 服务，共享画布由单个世界循环权威维护
func main() {
	var (
		configPath string
		addr       string
		logFile    string
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to YAML config (optional)")
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :8080 (overrides config)")
	flag.StringVar(&logFile, "log", "", "log file path (overrides config)")
	flag.Parse()

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	// 使用第三方 zap 日志库写入文件（带滚动）
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	world := server.NewWorld(cfg.Canvas, &server.Metrics{})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(world, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		server.Log.Infof("collabmap listening on %s; canvas=%dx%d marker=%d",
			cfg.Addr, cfg.Canvas.Width, cfg.Canvas.Height, cfg.Canvas.MarkerSize)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Errorf("shutdown: %v", err)
	}
	// 已升级的 WebSocket 不受 Shutdown 管理，由世界统一关闭
	world.Stop()
}
