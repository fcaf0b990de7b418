// Package client 实现共享画布的客户端会话控制器。
//
// 状态机：Connecting →（连接打开）→ AwaitingNameClaim →（提交名字）→ Joined → Closed。
// 花名册是服务器广播的只读镜像；自身标记另有一个本地乐观位置，
// 每次收到 userUpdate 都会被权威位置覆盖。
package client

import (
	"errors"
	"strings"
	"sync"

	"collabmap/protocol"

	"go.uber.org/zap"
)

// ErrInvalidState 当前状态不允许该操作
var ErrInvalidState = errors.New("operation not allowed in current session state")

// State 会话状态
type State int

const (
	StateConnecting State = iota
	StateAwaitingName
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingName:
		return "awaiting-name"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport 会话的发送端；连接打开前允许排队
type Transport interface {
	Send(msg []byte) error
}

// Renderer 渲染面，每次视图变化后被调用（不持有会话锁）
type Renderer interface {
	Render(View)
}

// RendererFunc 函数适配器
type RendererFunc func(View)

func (f RendererFunc) Render(v View) { f(v) }

// Marker 自身标记
type Marker struct {
	ID   string
	Name string
	X    int
	Y    int
}

// View 渲染投影：自身取本地乐观位置，其他人严格取自最近一次广播
type View struct {
	State  State
	Self   *Marker
	Others []protocol.User
	Synced bool // 已收到至少一份花名册，本地预检可用
	Err    error
}

// Options 客户端参数；视口尺寸即本地裁剪边界
type Options struct {
	Width      int
	Height     int
	MarkerSize int
	Step       int
	StartX     int
	StartY     int
	SendQueue  int
	Renderer   Renderer
	Logger     *zap.SugaredLogger
}

// DefaultOptions 与服务器默认画布一致
func DefaultOptions() Options {
	return Options{
		Width:      1280,
		Height:     720,
		MarkerSize: 50,
		Step:       10,
		StartX:     100,
		StartY:     100,
		SendQueue:  64,
	}
}

type position struct {
	X, Y int
}

// Session 客户端会话控制器
type Session struct {
	mu        sync.Mutex
	opts      Options
	log       *zap.SugaredLogger
	transport Transport

	state   State
	name    string
	id      string
	roster  []protocol.User // 权威投影（只读镜像）
	synced  bool
	local   position        // 自身乐观位置，仅 Joined 时有效
	lastErr error
}

// NewSession 创建处于 Connecting 状态的会话
func NewSession(t Transport, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{
		opts:      opts,
		log:       log,
		transport: t,
		state:     StateConnecting,
	}
}

// HandleOpen 传输层已打开
func (s *Session) HandleOpen() {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateAwaitingName
	s.mu.Unlock()
	s.render()
}

// SubmitName 提交名字。本地花名册预检只是快速失败，服务器会再次校验。
// 发送 setUsername 后乐观进入 Joined。
func (s *Session) SubmitName(name string) error {
	s.mu.Lock()
	if s.state != StateAwaitingName {
		s.mu.Unlock()
		return ErrInvalidState
	}
	name = strings.TrimSpace(name)
	if name == "" {
		s.mu.Unlock()
		return protocol.ErrEmptyName
	}
	for _, u := range s.roster {
		if u.Name == name {
			s.mu.Unlock()
			return protocol.ErrNameTaken
		}
	}
	if err := s.sendLocked(protocol.NewSetUsername(name)); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = StateJoined
	s.name = name
	s.id = ""
	s.lastErr = nil
	s.local = position{}
	s.local.X, s.local.Y = s.clampLocked(s.opts.StartX, s.opts.StartY)
	s.mu.Unlock()
	s.render()
	return nil
}

// Move 在本地位置上走一步、裁剪后立即更新本地标记，并发送 moveBox
func (s *Session) Move(dir Direction) error {
	s.mu.Lock()
	if s.state != StateJoined {
		s.mu.Unlock()
		return ErrInvalidState
	}
	dx, dy := dir.delta()
	x, y := s.clampLocked(s.local.X+dx*s.opts.Step, s.local.Y+dy*s.opts.Step)
	s.local = position{X: x, Y: y}
	err := s.sendLocked(protocol.NewMoveBox(s.name, x, y))
	s.mu.Unlock()
	s.render()
	return err
}

// HandleMessage 处理服务器发来的一帧；无法识别的消息丢弃并记录
func (s *Session) HandleMessage(data []byte) {
	msg, err := protocol.DecodeServer(data)
	if err != nil {
		s.log.Warnw("drop malformed message", "error", err, "size", len(data))
		return
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	switch m := msg.(type) {
	case protocol.UserUpdate:
		s.roster = m.Users
		s.synced = true
		if s.state == StateJoined {
			if self, ok := s.selfLocked(); ok {
				s.local = position{X: self.X, Y: self.Y}
			}
		}
	case protocol.UsernameAccepted:
		if s.state == StateJoined && s.id == "" && m.Username == s.name {
			s.id = m.ID
			s.log.Infow("username accepted", "username", m.Username, "id", m.ID)
		}
	case protocol.UsernameRejected:
		if s.state == StateJoined && s.id == "" && strings.TrimSpace(m.Username) == s.name {
			s.state = StateAwaitingName
			s.name = ""
			s.local = position{}
			s.lastErr = protocol.ErrorForCode(m.Reason)
			s.log.Infow("username rejected", "username", m.Username, "reason", m.Reason)
		}
	}
	s.mu.Unlock()
	s.render()
}

// HandleClose 传输层关闭或出错，会话进入终态
func (s *Session) HandleClose(err error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	if err != nil && !errors.Is(err, protocol.ErrConnectionLost) {
		err = protocol.Wrap(err, protocol.CodeConnectionLost, "transport closed")
	}
	if err == nil {
		err = protocol.ErrConnectionLost
	}
	s.lastErr = err
	s.mu.Unlock()
	s.log.Infow("session closed", "error", err)
	s.render()
}

// SetViewport 视口尺寸变化时更新本地裁剪边界
func (s *Session) SetViewport(width, height int) {
	s.mu.Lock()
	s.opts.Width, s.opts.Height = width, height
	if s.state == StateJoined {
		s.local.X, s.local.Y = s.clampLocked(s.local.X, s.local.Y)
	}
	s.mu.Unlock()
	s.render()
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID 服务器分配的参与者 ID（收到 usernameAccepted 前为空）
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Name 已提交的名字
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Roster 最近一次广播的花名册副本
func (s *Session) Roster() []protocol.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.User(nil), s.roster...)
}

// View 当前渲染投影
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{State: s.state, Synced: s.synced, Err: s.lastErr}
	joined := s.state == StateJoined
	if joined {
		v.Self = &Marker{ID: s.id, Name: s.name, X: s.local.X, Y: s.local.Y}
	}
	v.Others = make([]protocol.User, 0, len(s.roster))
	for _, u := range s.roster {
		if joined && s.isSelfLocked(u) {
			continue
		}
		v.Others = append(v.Others, u)
	}
	return v
}

func (s *Session) render() {
	if s.opts.Renderer == nil {
		return
	}
	s.opts.Renderer.Render(s.View())
}

// selfLocked 按服务器分配的 ID 在花名册中找到自己；收到 usernameAccepted 前不匹配任何人
func (s *Session) selfLocked() (protocol.User, bool) {
	for _, u := range s.roster {
		if s.isSelfLocked(u) {
			return u, true
		}
	}
	return protocol.User{}, false
}

func (s *Session) isSelfLocked(u protocol.User) bool {
	return s.id != "" && u.ID == s.id
}

func (s *Session) clampLocked(x, y int) (int, int) {
	return clamp(x, s.opts.Width-s.opts.MarkerSize), clamp(y, s.opts.Height-s.opts.MarkerSize)
}

func (s *Session) sendLocked(msg any) error {
	payload, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := s.transport.Send(payload); err != nil {
		s.log.Warnw("send failed", "error", err)
		return err
	}
	return nil
}

func clamp(v, hi int) int {
	if hi < 0 {
		hi = 0
	}
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
