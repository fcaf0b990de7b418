package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParseDirection 解析方向名与按键名
func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{in: "up", want: DirUp, ok: true},
		{in: "DOWN", want: DirDown, ok: true},
		{in: "ArrowLeft", want: DirLeft, ok: true},
		{in: "arrowright", want: DirRight, ok: true},
		{in: "jump"},
		{in: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDirection(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestDirection_Delta y 轴向下增长
func TestDirection_Delta(t *testing.T) {
	want := map[Direction][2]int{
		DirUp:    {0, -1},
		DirDown:  {0, 1},
		DirLeft:  {-1, 0},
		DirRight: {1, 0},
	}
	for _, d := range Directions {
		dx, dy := d.delta()
		assert.Equal(t, want[d], [2]int{dx, dy}, d.String())
	}
	dx, dy := Direction(0).delta()
	assert.Zero(t, dx)
	assert.Zero(t, dy)
	assert.Equal(t, "none", Direction(0).String())
}
