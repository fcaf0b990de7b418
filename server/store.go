package server

import (
	"errors"
	"fmt"
)

// ErrDuplicateID 重复插入同一参与者（编程错误，不会暴露给用户）
var ErrDuplicateID = errors.New("participant already present")

// Store 权威世界状态：participantID → {name, x, y}，按插入顺序保存。
// 非并发安全，只允许在 World 的循环协程内访问。
type Store struct {
	bounds Bounds
	byID   map[ParticipantID]*Participant
	order  []ParticipantID
}

// NewStore 创建世界状态存储
func NewStore(bounds Bounds) *Store {
	return &Store{
		bounds: bounds,
		byID:   make(map[ParticipantID]*Participant),
	}
}

// Add 插入参与者，初始位置同样经过裁剪
func (s *Store) Add(id ParticipantID, name string, x0, y0 int) error {
	if _, ok := s.byID[id]; ok {
		return fmt.Errorf("add %s: %w", id, ErrDuplicateID)
	}
	x, y := s.bounds.Clamp(x0, y0)
	s.byID[id] = &Participant{ID: id, Name: name, X: x, Y: y}
	s.order = append(s.order, id)
	return nil
}

// Move 裁剪后写入绝对位置；参与者不存在时返回 false（不会“复活”已移除的参与者）
func (s *Store) Move(id ParticipantID, x, y int) bool {
	p, ok := s.byID[id]
	if !ok {
		return false
	}
	p.X, p.Y = s.bounds.Clamp(x, y)
	return true
}

// Remove 删除参与者，幂等；返回是否确实删除
func (s *Store) Remove(id ParticipantID) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Get 按 ID 读取副本
func (s *Store) Get(id ParticipantID) (Participant, bool) {
	p, ok := s.byID[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Len 当前参与者数量
func (s *Store) Len() int { return len(s.order) }

// Bounds 当前裁剪边界
func (s *Store) Bounds() Bounds { return s.bounds }

// SetBounds 更新边界并重新裁剪所有参与者
func (s *Store) SetBounds(b Bounds) {
	s.bounds = b
	for _, p := range s.byID {
		p.X, p.Y = b.Clamp(p.X, p.Y)
	}
}

// Snapshot 返回按插入顺序排列的只读副本
func (s *Store) Snapshot() []Participant {
	out := make([]Participant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}
