package server

import (
	"strings"

	"collabmap/protocol"

	"github.com/segmentio/ksuid"
)

// Registry 身份注册表：连接 → 唯一显示名。
// 检查与登记在同一步内完成，且只在 World 循环协程内调用，
// 因此两个同时到达的同名认领不可能都成功。
type Registry struct {
	names  map[string]ParticipantID
	byConn map[ConnID]claim
	newID  func() ParticipantID
}

type claim struct {
	id   ParticipantID
	name string
}

// NewRegistry 创建注册表，参与者 ID 使用 KSUID
func NewRegistry() *Registry {
	return &Registry{
		names:  make(map[string]ParticipantID),
		byConn: make(map[ConnID]claim),
		newID:  func() ParticipantID { return ParticipantID(ksuid.New().String()) },
	}
}

// Claim 认领名字：去除首尾空白后非空，且不与在线名字（大小写敏感）重复。
// 返回分配的参与者 ID 与规范化后的名字。
func (r *Registry) Claim(conn ConnID, requested string) (ParticipantID, string, error) {
	if _, ok := r.byConn[conn]; ok {
		return "", "", protocol.ErrAlreadyClaimed
	}
	name := strings.TrimSpace(requested)
	if name == "" {
		return "", "", protocol.ErrEmptyName
	}
	if _, taken := r.names[name]; taken {
		return "", "", protocol.ErrNameTaken
	}
	id := r.newID()
	r.names[name] = id
	r.byConn[conn] = claim{id: id, name: name}
	return id, name, nil
}

// Lookup 返回连接持有的参与者
func (r *Registry) Lookup(conn ConnID) (ParticipantID, string, bool) {
	c, ok := r.byConn[conn]
	return c.id, c.name, ok
}

// Release 连接关闭时释放名字，幂等
func (r *Registry) Release(conn ConnID) (ParticipantID, bool) {
	c, ok := r.byConn[conn]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn)
	delete(r.names, c.name)
	return c.id, true
}

// Len 已登记名字数量
func (r *Registry) Len() int { return len(r.names) }
