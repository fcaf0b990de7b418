package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"collabmap/client"

	"go.uber.org/zap"
)

const syncTimeout = 5 * time.Second

// walker 无界面客户端：认领名字后按固定间隔随机走一步，并把花名册写入日志
func main() {
	var (
		url      string
		name     string
		interval time.Duration
		width    int
		height   int
	)
	defaults := client.DefaultOptions()
	flag.StringVar(&url, "url", "ws://localhost:8080/ws", "authority websocket url")
	flag.StringVar(&name, "name", "", "display name to claim (default: walker-<random>)")
	flag.DurationVar(&interval, "interval", 200*time.Millisecond, "delay between moves")
	flag.IntVar(&width, "width", defaults.Width, "viewport width")
	flag.IntVar(&height, "height", defaults.Height, "viewport height")
	flag.Parse()

	if name == "" {
		name = fmt.Sprintf("walker-%04d", rand.Intn(10000))
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	opts := defaults
	opts.Width, opts.Height = width, height
	opts.Logger = log
	synced := make(chan struct{})
	var syncOnce sync.Once
	opts.Renderer = client.RendererFunc(func(v client.View) {
		if v.Synced {
			syncOnce.Do(func() { close(synced) })
		}
		if v.Self == nil {
			log.Debugw("view", "state", v.State, "others", len(v.Others), "error", v.Err)
			return
		}
		log.Debugw("view", "state", v.State, "self", fmt.Sprintf("%s@(%d,%d)", v.Self.Name, v.Self.X, v.Self.Y), "others", len(v.Others))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, url, opts)
	if err != nil {
		log.Fatalw("dial failed", "url", url, "error", err)
	}
	defer c.Close()

	// 首个花名册到达后再认领，本地预检才有数据
	select {
	case <-synced:
	case <-ctx.Done():
		return
	case <-c.Done():
		log.Fatalw("disconnected before first roster", "error", c.View().Err)
	case <-time.After(syncTimeout):
		log.Fatalw("no roster from authority", "url", url, "timeout", syncTimeout)
	}
	if err := c.SubmitName(name); err != nil {
		// 仍处于等待认领状态，下面的循环会换名重试
		log.Warnw("claim failed", "username", name, "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.Done():
			log.Warnw("disconnected", "error", c.View().Err)
			return
		case <-ticker.C:
			switch c.State() {
			case client.StateJoined:
			case client.StateAwaitingName:
				// 被服务器拒绝后回到等待认领状态，换个名字重试
				name = fmt.Sprintf("%s-%d", name, rand.Intn(100))
				if err := c.SubmitName(name); err != nil {
					log.Warnw("claim failed", "username", name, "error", err)
				}
				continue
			default:
				continue
			}
			dir := client.Directions[rand.Intn(len(client.Directions))]
			if err := c.Move(dir); err != nil {
				log.Warnw("move failed", "direction", dir, "error", err)
			}
		}
	}
}
