// Package protocol 定义客户端与权威服务器之间的 JSON 文本消息。
//
// 客户端 → 服务器：setUsername、moveBox
// 服务器 → 客户端：userUpdate（全量花名册）、usernameAccepted、usernameRejected
package protocol

import (
	"encoding/json"
	"math"
)

const (
	TypeSetUsername      = "setUsername"
	TypeMoveBox          = "moveBox"
	TypeUserUpdate       = "userUpdate"
	TypeUsernameAccepted = "usernameAccepted"
	TypeUsernameRejected = "usernameRejected"
)

// 坐标饱和范围，避免超大数值在转 int 时溢出；真正的边界裁剪由世界状态负责
const coordLimit = 1 << 30

// SetUsername 认领显示名
// 示例：{"type":"setUsername","username":"alice"}
type SetUsername struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// MoveBox 设置发送者的绝对位置
// 示例：{"type":"moveBox","userId":"alice","x":110,"y":100}
type MoveBox struct {
	Type   string  `json:"type"`
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Position 四舍五入为整数像素坐标
func (m MoveBox) Position() (int, int) {
	return toCoord(m.X), toCoord(m.Y)
}

// User 花名册中的一项
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// UserUpdate 全量花名册，客户端整体替换本地镜像
type UserUpdate struct {
	Type  string `json:"type"`
	Users []User `json:"users"`
}

// UsernameAccepted 仅发给认领者
type UsernameAccepted struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Username string `json:"username"`
}

// UsernameRejected 仅发给认领者，Reason 为错误码
type UsernameRejected struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Reason   Code   `json:"reason"`
}

func NewSetUsername(name string) SetUsername {
	return SetUsername{Type: TypeSetUsername, Username: name}
}

func NewMoveBox(userID string, x, y int) MoveBox {
	return MoveBox{Type: TypeMoveBox, UserID: userID, X: float64(x), Y: float64(y)}
}

func NewUserUpdate(users []User) UserUpdate {
	if users == nil {
		users = []User{}
	}
	return UserUpdate{Type: TypeUserUpdate, Users: users}
}

func NewUsernameAccepted(id, name string) UsernameAccepted {
	return UsernameAccepted{Type: TypeUsernameAccepted, ID: id, Username: name}
}

func NewUsernameRejected(name string, reason Code) UsernameRejected {
	return UsernameRejected{Type: TypeUsernameRejected, Username: name, Reason: reason}
}

// Encode 编码任意出站消息
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeClient 解析客户端发来的帧，返回 SetUsername 或 MoveBox。
// 形状不符的消息一律返回 CodeMalformed 错误，由调用方丢弃并记录。
func DecodeClient(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, Wrap(err, CodeMalformed, "invalid json")
	}
	switch env.Type {
	case TypeSetUsername:
		var raw struct {
			Username *string `json:"username"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, Wrap(err, CodeMalformed, "invalid setUsername")
		}
		if raw.Username == nil {
			return nil, malformed("setUsername: missing username")
		}
		return NewSetUsername(*raw.Username), nil
	case TypeMoveBox:
		var raw struct {
			UserID *string  `json:"userId"`
			X      *float64 `json:"x"`
			Y      *float64 `json:"y"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, Wrap(err, CodeMalformed, "invalid moveBox")
		}
		if raw.UserID == nil || raw.X == nil || raw.Y == nil {
			return nil, malformed("moveBox: missing userId, x or y")
		}
		return MoveBox{Type: TypeMoveBox, UserID: *raw.UserID, X: *raw.X, Y: *raw.Y}, nil
	default:
		return nil, malformed("unknown message type %q", env.Type)
	}
}

// DecodeServer 解析服务器发来的帧，返回 UserUpdate、UsernameAccepted 或 UsernameRejected。
func DecodeServer(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, Wrap(err, CodeMalformed, "invalid json")
	}
	switch env.Type {
	case TypeUserUpdate:
		var raw struct {
			Users *[]User `json:"users"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, Wrap(err, CodeMalformed, "invalid userUpdate")
		}
		if raw.Users == nil {
			return nil, malformed("userUpdate: missing users")
		}
		return NewUserUpdate(*raw.Users), nil
	case TypeUsernameAccepted:
		var m UsernameAccepted
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, Wrap(err, CodeMalformed, "invalid usernameAccepted")
		}
		if m.ID == "" {
			return nil, malformed("usernameAccepted: missing id")
		}
		return m, nil
	case TypeUsernameRejected:
		var m UsernameRejected
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, Wrap(err, CodeMalformed, "invalid usernameRejected")
		}
		if m.Reason == "" {
			return nil, malformed("usernameRejected: missing reason")
		}
		return m, nil
	default:
		return nil, malformed("unknown message type %q", env.Type)
	}
}

func toCoord(v float64) int {
	v = math.Round(v)
	if v > coordLimit {
		return coordLimit
	}
	if v < -coordLimit {
		return -coordLimit
	}
	return int(v)
}
