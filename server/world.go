package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"collabmap/protocol"
)

var (
	// ErrWorldStopped 世界循环已停止
	ErrWorldStopped = errors.New("world stopped")
	// ErrUnknownConn 通道未登记（未 Attach 或已断开）
	ErrUnknownConn = errors.New("unknown connection")
)

// World 权威世界：注册表、状态存储与广播引擎只由一个循环协程持有，
// 所有认领/移动/离开操作都以闭包形式投递到该协程，逐个执行。
type World struct {
	canvas   CanvasConfig
	registry *Registry
	store    *Store
	hub      *Broadcaster
	metrics  *Metrics

	cmds     chan func()
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewWorld 创建世界并启动循环协程
func NewWorld(canvas CanvasConfig, metrics *Metrics) *World {
	if metrics == nil {
		metrics = &Metrics{}
	}
	w := &World{
		canvas:   canvas,
		registry: NewRegistry(),
		store:    NewStore(canvas.Bounds()),
		hub:      NewBroadcaster(metrics),
		metrics:  metrics,
		cmds:     make(chan func()),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// run 核心循环：一次只执行一个操作
func (w *World) run() {
	defer close(w.done)
	for {
		select {
		case fn := <-w.cmds:
			fn()
		case <-w.stop:
			w.shutdown()
			return
		}
	}
}

// do 把操作投递到循环协程并等待其执行完毕
func (w *World) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case w.cmds <- func() { fn(); close(finished) }:
	case <-w.stop:
		return ErrWorldStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Stop 停止循环并关闭所有通道
func (w *World) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

func (w *World) shutdown() {
	for _, id := range append([]ConnID(nil), w.hub.order...) {
		if ch, ok := w.hub.Detach(id); ok {
			ch.Close()
		}
	}
	Log.Infof("world stopped: participants=%d", w.store.Len())
}

// Metrics 运行指标
func (w *World) Metrics() *Metrics { return w.metrics }

// Attach 登记新打开的通道，并只向它推送一次当前花名册
func (w *World) Attach(ctx context.Context, ch Channel) error {
	return w.do(ctx, func() {
		w.hub.Attach(ch)
		w.metrics.IncConnections()
		w.hub.Send(ch.ID(), protocol.NewUserUpdate(users(w.store.Snapshot())))
		Log.Infow("channel attached", "conn", ch.ID(), "channels", w.hub.Len())
	})
}

// Claim 认领显示名。成功时创建参与者、单播 usernameAccepted 并广播花名册；
// 失败时单播 usernameRejected，花名册不变。
func (w *World) Claim(ctx context.Context, conn ConnID, requested string) (ParticipantID, error) {
	var (
		id     ParticipantID
		result error
	)
	err := w.do(ctx, func() {
		if !w.hub.Has(conn) {
			result = ErrUnknownConn
			return
		}
		pid, name, err := w.registry.Claim(conn, requested)
		if err != nil {
			result = err
			w.metrics.IncClaimsRejected()
			w.hub.Send(conn, protocol.NewUsernameRejected(requested, protocol.CodeOf(err)))
			Log.Infow("username rejected", "conn", conn, "username", requested, "reason", protocol.CodeOf(err))
			return
		}
		if err := w.store.Add(pid, name, w.canvas.StartX, w.canvas.StartY); err != nil {
			w.registry.Release(conn)
			result = fmt.Errorf("claim %q: %w", name, err)
			Log.Errorw("store add failed", "conn", conn, "error", err)
			return
		}
		id = pid
		w.metrics.IncClaimsAccepted()
		w.hub.Send(conn, protocol.NewUsernameAccepted(string(pid), name))
		Log.Infow("username claimed", "conn", conn, "username", name, "participant", pid)
		w.broadcast()
	})
	if err != nil {
		return "", err
	}
	return id, result
}

// Move 将发送者自己的参与者移动到绝对位置。
// userID 必须是发送者的名字或参与者 ID；未加入或不匹配时不做任何事，也不广播。
func (w *World) Move(ctx context.Context, conn ConnID, userID string, x, y int) (bool, error) {
	var applied bool
	err := w.do(ctx, func() {
		pid, name, ok := w.registry.Lookup(conn)
		if !ok || (userID != name && userID != string(pid)) {
			w.metrics.IncMovesIgnored()
			Log.Debugw("move ignored", "conn", conn, "userId", userID)
			return
		}
		if !w.store.Move(pid, x, y) {
			w.metrics.IncMovesIgnored()
			return
		}
		applied = true
		w.metrics.IncMovesApplied()
		w.broadcast()
	})
	return applied, err
}

// Leave 通道关闭：移出广播集合，释放名字并删除参与者；若花名册变化则广播一次
func (w *World) Leave(ctx context.Context, conn ConnID) error {
	return w.do(ctx, func() {
		w.hub.Detach(conn)
		w.metrics.IncDisconnections()
		pid, released := w.registry.Release(conn)
		if !released {
			return
		}
		if w.store.Remove(pid) {
			Log.Infow("participant left", "conn", conn, "participant", pid, "participants", w.store.Len())
			w.broadcast()
		}
	})
}

// Resync 只向该通道重发当前花名册，纠正发送者本地已生效但被丢弃的移动
func (w *World) Resync(ctx context.Context, conn ConnID) error {
	return w.do(ctx, func() {
		w.hub.Send(conn, protocol.NewUserUpdate(users(w.store.Snapshot())))
	})
}

// SetCanvas 更新画布参数，所有参与者按新边界重新裁剪
func (w *World) SetCanvas(ctx context.Context, canvas CanvasConfig) error {
	if err := canvas.Validate(); err != nil {
		return err
	}
	return w.do(ctx, func() {
		w.canvas = canvas
		w.store.SetBounds(canvas.Bounds())
		if w.store.Len() > 0 {
			w.broadcast()
		}
	})
}

// Canvas 当前画布参数
func (w *World) Canvas(ctx context.Context) (CanvasConfig, error) {
	var c CanvasConfig
	err := w.do(ctx, func() { c = w.canvas })
	return c, err
}

// Roster 当前花名册快照（插入顺序）
func (w *World) Roster(ctx context.Context) ([]Participant, error) {
	var roster []Participant
	err := w.do(ctx, func() { roster = w.store.Snapshot() })
	return roster, err
}

// Stats 在线参与者与通道数量
func (w *World) Stats(ctx context.Context) (participants, channels int, err error) {
	err = w.do(ctx, func() {
		participants = w.store.Len()
		channels = w.hub.Len()
	})
	return participants, channels, err
}

func (w *World) broadcast() {
	w.hub.Broadcast(w.store.Snapshot())
}

func users(roster []Participant) []protocol.User {
	out := make([]protocol.User, 0, len(roster))
	for _, p := range roster {
		out = append(out, p.User())
	}
	return out
}
