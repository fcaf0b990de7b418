package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"collabmap/protocol"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var errSendQueueFull = errors.New("send queue full")

// Conn 客户端传输通道：打开前的发送先进入队列，由写协程按序写出
type Conn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

func newConn(queue int) *Conn {
	if queue <= 0 {
		queue = 64
	}
	return &Conn{
		send:   make(chan []byte, queue),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Send 非阻塞入队
func (c *Conn) Send(msg []byte) error {
	select {
	case <-c.closed:
		return protocol.ErrConnectionLost
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errSendQueueFull
	}
}

// Close 发送关闭帧并断开连接；可重复调用
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.ws != nil {
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			_ = c.ws.Close()
		}
	})
}

func (c *Conn) writePump() {
	defer c.Close()
	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// readPump 入站帧按到达顺序交给会话；退出时只通知一次关闭
func (c *Conn) readPump(s *Session) {
	defer close(c.done)
	defer c.Close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			s.HandleClose(protocol.Wrap(err, protocol.CodeConnectionLost, "read failed"))
			return
		}
		s.HandleMessage(data)
	}
}

// Client 绑定在一条 WebSocket 连接上的会话
type Client struct {
	*Session
	conn *Conn
}

// Dial 连接权威服务器，成功后会话进入 AwaitingNameClaim
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	conn := newConn(opts.SendQueue)
	s := NewSession(conn, opts)

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		lost := protocol.Wrap(err, protocol.CodeConnectionLost, "dial "+url)
		s.HandleClose(lost)
		return nil, lost
	}
	conn.ws = ws

	go conn.writePump()
	s.HandleOpen()
	go conn.readPump(s)
	return &Client{Session: s, conn: conn}, nil
}

// Close 主动断开
func (c *Client) Close() {
	c.conn.Close()
}

// Done 读协程退出（会话已 Closed）后关闭
func (c *Client) Done() <-chan struct{} {
	return c.conn.done
}
