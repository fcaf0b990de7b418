package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBounds = Bounds{Width: 800, Height: 600, MarkerSize: 50}

// TestStore_Add 测试插入与重复插入
func TestStore_Add(t *testing.T) {
	s := NewStore(testBounds)

	require.NoError(t, s.Add("p1", "alice", 100, 100))
	err := s.Add("p1", "alice", 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, s.Len())

	// 初始位置同样裁剪
	require.NoError(t, s.Add("p2", "bob", 5000, -3))
	p, ok := s.Get("p2")
	require.True(t, ok)
	assert.Equal(t, 750, p.X)
	assert.Equal(t, 0, p.Y)
}

// TestStore_Move 测试移动与边界裁剪
func TestStore_Move(t *testing.T) {
	tests := []struct {
		name  string
		x, y  int
		wantX int
		wantY int
	}{
		{name: "inside", x: 110, y: 100, wantX: 110, wantY: 100},
		{name: "negative x clamps to 0", x: -50, y: 100, wantX: 0, wantY: 100},
		{name: "negative y clamps to 0", x: 10, y: -1, wantX: 10, wantY: 0},
		{name: "right edge", x: 10000, y: 100, wantX: 750, wantY: 100},
		{name: "bottom edge", x: 100, y: 600, wantX: 100, wantY: 550},
		{name: "exact max", x: 750, y: 550, wantX: 750, wantY: 550},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(testBounds)
			require.NoError(t, s.Add("p1", "bob", 100, 100))

			assert.True(t, s.Move("p1", tt.x, tt.y))
			p, _ := s.Get("p1")
			assert.Equal(t, tt.wantX, p.X)
			assert.Equal(t, tt.wantY, p.Y)
		})
	}
}

// TestStore_MoveMissing 不存在的参与者移动是 no-op，且不会被复活
func TestStore_MoveMissing(t *testing.T) {
	s := NewStore(testBounds)
	assert.False(t, s.Move("ghost", 1, 1))
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Add("p1", "bob", 100, 100))
	assert.True(t, s.Remove("p1"))
	assert.False(t, s.Move("p1", 200, 200))
	_, ok := s.Get("p1")
	assert.False(t, ok)
	assert.Empty(t, s.Snapshot())
}

// TestStore_Remove 删除是幂等的，且只删除目标
func TestStore_Remove(t *testing.T) {
	s := NewStore(testBounds)
	require.NoError(t, s.Add("p1", "a", 0, 0))
	require.NoError(t, s.Add("p2", "b", 0, 0))
	require.NoError(t, s.Add("p3", "c", 0, 0))

	assert.True(t, s.Remove("p2"))
	assert.False(t, s.Remove("p2"))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, ParticipantID("p1"), snap[0].ID)
	assert.Equal(t, ParticipantID("p3"), snap[1].ID)
}

// TestStore_Snapshot 快照按插入顺序且与内部状态隔离
func TestStore_Snapshot(t *testing.T) {
	s := NewStore(testBounds)
	for _, id := range []ParticipantID{"c", "a", "b"} {
		require.NoError(t, s.Add(id, string(id), 100, 100))
	}

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []ParticipantID{"c", "a", "b"}, []ParticipantID{snap[0].ID, snap[1].ID, snap[2].ID})

	snap[0].X = 999
	p, _ := s.Get("c")
	assert.Equal(t, 100, p.X)
}

// TestStore_SetBounds 缩小边界后重新裁剪
func TestStore_SetBounds(t *testing.T) {
	s := NewStore(testBounds)
	require.NoError(t, s.Add("p1", "a", 700, 500))
	require.NoError(t, s.Add("p2", "b", 10, 10))

	s.SetBounds(Bounds{Width: 400, Height: 300, MarkerSize: 50})

	p1, _ := s.Get("p1")
	p2, _ := s.Get("p2")
	assert.Equal(t, [2]int{350, 250}, [2]int{p1.X, p1.Y})
	assert.Equal(t, [2]int{10, 10}, [2]int{p2.X, p2.Y})
	assert.Equal(t, 400, s.Bounds().Width)
}

// TestBounds_Clamp 标记比画布大时退化为 0
func TestBounds_Clamp(t *testing.T) {
	x, y := Bounds{Width: 20, Height: 20, MarkerSize: 50}.Clamp(10, 10)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)
}
