package server

import "collabmap/protocol"

// ParticipantID 参与者唯一标识（连接存续期间不变）
type ParticipantID string

// ConnID 传输通道标识，由连接建立时分配
type ConnID string

// Participant 世界中的参与者（服务端权威状态）
type Participant struct {
	ID   ParticipantID
	Name string
	X    int
	Y    int
}

// User 转换为广播用的花名册项
func (p Participant) User() protocol.User {
	return protocol.User{ID: string(p.ID), Name: p.Name, X: p.X, Y: p.Y}
}

// Bounds 裁剪边界：x ∈ [0, Width-MarkerSize]，y ∈ [0, Height-MarkerSize]
type Bounds struct {
	Width      int
	Height     int
	MarkerSize int
}

// Clamp 将坐标限制在边界内
func (b Bounds) Clamp(x, y int) (int, int) {
	return clamp(x, b.Width-b.MarkerSize), clamp(y, b.Height-b.MarkerSize)
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
