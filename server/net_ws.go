package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"collabmap/protocol"

	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"
	"golang.org/x/time/rate"
)

// ClientConn 一个客户端的传输通道：有界发送队列 + 读写两个协程
type ClientConn struct {
	id   ConnID
	ws   *websocket.Conn
	cfg  ConnConfig
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func NewClientConn(ws *websocket.Conn, cfg ConnConfig) *ClientConn {
	return &ClientConn{
		id:     ConnID(ksuid.New().String()),
		ws:     ws,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendQueue),
		closed: make(chan struct{}),
	}
}

// ID 连接标识
func (c *ClientConn) ID() ConnID { return c.id }

// Enqueue 将要发送的消息压入队列（非阻塞，满则返回 false）
func (c *ClientConn) Enqueue(b []byte) bool {
	select {
	case <-c.closed:
		return true
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 关闭底层连接，读写协程随之退出；可重复调用
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 Ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// readPump 读取客户端消息并按到达顺序逐条交给世界处理。
// 退出时同步通知世界移除该连接及其参与者。
func (c *ClientConn) readPump(world *World) {
	defer c.Close()
	defer func() {
		if err := world.Leave(context.Background(), c.id); err != nil && !errors.Is(err, ErrWorldStopped) {
			Log.Errorw("leave failed", "conn", c.id, "error", err)
		}
		Log.Infow("connection closed", "conn", c.id)
	}()

	c.ws.SetReadLimit(c.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	limiter := newMoveLimiter(c.cfg)
	ctx := context.Background()
	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				Log.Warnw("read error", "conn", c.id, "error", protocol.Wrap(err, protocol.CodeConnectionLost, "read failed"))
			}
			return
		}
		msg, err := protocol.DecodeClient(payload)
		if err != nil {
			world.Metrics().IncMalformed()
			Log.Warnw("drop malformed message", "conn", c.id, "error", err, "size", len(payload))
			continue
		}
		switch m := msg.(type) {
		case protocol.SetUsername:
			_, err = world.Claim(ctx, c.id, m.Username)
		case protocol.MoveBox:
			if !limiter.Allow() {
				world.Metrics().IncRateLimited()
				err = world.Resync(ctx, c.id)
				break
			}
			x, y := m.Position()
			_, err = world.Move(ctx, c.id, m.UserID, x, y)
		}
		if errors.Is(err, ErrWorldStopped) {
			return
		}
	}
}

// newMoveLimiter MovesPerSecond 为 0 时不限速
func newMoveLimiter(cfg ConnConfig) *rate.Limiter {
	if cfg.MovesPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.MoveBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.MovesPerSecond), burst)
}

// NewWSHandler WebSocket 接入：/ws
func NewWSHandler(world *World, cfg ConnConfig) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// 演示环境：允许所有来源（生产环境需严格限制）
			return true
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			Log.Warnf("upgrade error: %v", err)
			return
		}

		client := NewClientConn(ws, cfg)
		go client.writePump()
		if err := world.Attach(context.Background(), client); err != nil {
			Log.Warnw("attach failed", "conn", client.id, "error", err)
			client.Close()
			return
		}
		Log.Infow("connection opened", "conn", client.id, "remote", r.RemoteAddr)
		go client.readPump(world)
	}
}
