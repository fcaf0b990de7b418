package protocol

import (
	"errors"
	"fmt"
)

// Code 错误码，同时用作 usernameRejected 的 reason 字段
type Code string

const (
	// CodeEmptyName 名字去除首尾空白后为空
	CodeEmptyName Code = "EMPTY_NAME"
	// CodeNameTaken 名字已被在线参与者占用（大小写敏感）
	CodeNameTaken Code = "NAME_TAKEN"
	// CodeAlreadyClaimed 同一连接重复认领名字
	CodeAlreadyClaimed Code = "ALREADY_CLAIMED"
	// CodeConnectionLost 传输层断开，会话终止
	CodeConnectionLost Code = "CONNECTION_LOST"
	// CodeMalformed 无法识别的消息类型或字段形状
	CodeMalformed Code = "MALFORMED_MESSAGE"
)

// Error 协议层错误，按 Code 比较
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is 只比较错误码
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建协议错误
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap 包装底层错误
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	ErrEmptyName      = New(CodeEmptyName, "username is empty")
	ErrNameTaken      = New(CodeNameTaken, "username is already taken")
	ErrAlreadyClaimed = New(CodeAlreadyClaimed, "connection already holds a username")
	ErrConnectionLost = New(CodeConnectionLost, "connection lost")
	ErrMalformed      = New(CodeMalformed, "malformed message")
)

// CodeOf 取出错误码；非协议错误返回空串
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// ErrorForCode 将 usernameRejected 中的 reason 还原为哨兵错误
func ErrorForCode(code Code) error {
	switch code {
	case CodeEmptyName:
		return ErrEmptyName
	case CodeNameTaken:
		return ErrNameTaken
	case CodeAlreadyClaimed:
		return ErrAlreadyClaimed
	case CodeConnectionLost:
		return ErrConnectionLost
	default:
		return New(code, "username rejected")
	}
}

func malformed(format string, args ...any) *Error {
	return New(CodeMalformed, fmt.Sprintf(format, args...))
}
