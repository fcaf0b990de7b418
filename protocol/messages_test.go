package protocol_test

import (
	"errors"
	"testing"

	"collabmap/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeClient 测试客户端消息解析
func TestDecodeClient(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		want      any
		malformed bool
	}{
		{
			name:  "set username",
			frame: `{"type":"setUsername","username":"alice"}`,
			want:  protocol.SetUsername{Type: protocol.TypeSetUsername, Username: "alice"},
		},
		{
			name:  "empty username is still well formed",
			frame: `{"type":"setUsername","username":"  "}`,
			want:  protocol.SetUsername{Type: protocol.TypeSetUsername, Username: "  "},
		},
		{
			name:  "move box",
			frame: `{"type":"moveBox","userId":"bob","x":110,"y":100}`,
			want:  protocol.MoveBox{Type: protocol.TypeMoveBox, UserID: "bob", X: 110, Y: 100},
		},
		{name: "not json", frame: `hello`, malformed: true},
		{name: "json array", frame: `[1,2]`, malformed: true},
		{name: "unknown type", frame: `{"type":"teleport"}`, malformed: true},
		{name: "missing type", frame: `{"username":"alice"}`, malformed: true},
		{name: "username wrong shape", frame: `{"type":"setUsername","username":42}`, malformed: true},
		{name: "username missing", frame: `{"type":"setUsername"}`, malformed: true},
		{name: "move missing y", frame: `{"type":"moveBox","userId":"bob","x":1}`, malformed: true},
		{name: "move string x", frame: `{"type":"moveBox","userId":"bob","x":"1","y":2}`, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.DecodeClient([]byte(tt.frame))
			if tt.malformed {
				require.Error(t, err)
				assert.True(t, errors.Is(err, protocol.ErrMalformed))
				assert.Equal(t, protocol.CodeMalformed, protocol.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestMoveBox_Position 测试坐标取整与饱和
func TestMoveBox_Position(t *testing.T) {
	x, y := protocol.MoveBox{X: 109.6, Y: -50.4}.Position()
	assert.Equal(t, 110, x)
	assert.Equal(t, -50, y)

	x, y = protocol.MoveBox{X: 1e300, Y: -1e300}.Position()
	assert.Equal(t, 1<<30, x)
	assert.Equal(t, -(1 << 30), y)
}

// TestDecodeServer 测试服务器消息解析
func TestDecodeServer(t *testing.T) {
	frame, err := protocol.Encode(protocol.NewUserUpdate([]protocol.User{{ID: "1", Name: "bob", X: 110, Y: 100}}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"userUpdate","users":[{"id":"1","name":"bob","x":110,"y":100}]}`, string(frame))

	got, err := protocol.DecodeServer(frame)
	require.NoError(t, err)
	assert.Equal(t, protocol.NewUserUpdate([]protocol.User{{ID: "1", Name: "bob", X: 110, Y: 100}}), got)

	empty, err := protocol.Encode(protocol.NewUserUpdate(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"userUpdate","users":[]}`, string(empty))

	got, err = protocol.DecodeServer([]byte(`{"type":"usernameRejected","username":"alice","reason":"NAME_TAKEN"}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.NewUsernameRejected("alice", protocol.CodeNameTaken), got)

	got, err = protocol.DecodeServer([]byte(`{"type":"usernameAccepted","id":"p1","username":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.NewUsernameAccepted("p1", "alice"), got)

	for _, bad := range []string{
		`{"type":"userUpdate"}`,
		`{"type":"userUpdate","users":{}}`,
		`{"type":"usernameAccepted","username":"alice"}`,
		`{"type":"usernameRejected","username":"alice"}`,
		`{"type":"setUsername","username":"alice"}`,
	} {
		_, err := protocol.DecodeServer([]byte(bad))
		assert.ErrorIs(t, err, protocol.ErrMalformed, bad)
	}
}

// TestError_Is 测试错误码比较
func TestError_Is(t *testing.T) {
	wrapped := protocol.Wrap(errors.New("boom"), protocol.CodeConnectionLost, "read failed")
	assert.ErrorIs(t, wrapped, protocol.ErrConnectionLost)
	assert.NotErrorIs(t, wrapped, protocol.ErrMalformed)
	assert.Contains(t, wrapped.Error(), "CONNECTION_LOST")
	assert.Contains(t, wrapped.Error(), "boom")

	assert.Equal(t, protocol.Code(""), protocol.CodeOf(errors.New("plain")))
	assert.ErrorIs(t, protocol.ErrorForCode(protocol.CodeNameTaken), protocol.ErrNameTaken)
	assert.Equal(t, protocol.Code("WHATEVER"), protocol.CodeOf(protocol.ErrorForCode("WHATEVER")))
}
