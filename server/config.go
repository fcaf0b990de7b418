package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 服务整体配置（YAML 文件 + 命令行覆盖）
type Config struct {
	Addr   string       `yaml:"addr"`
	Log    LogConfig    `yaml:"log"`
	Canvas CanvasConfig `yaml:"canvas"`
	Conn   ConnConfig   `yaml:"conn"`
}

// LogConfig 日志输出与滚动策略
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`   // debug/info/warn/error
	Console    bool   `yaml:"console"` // 同时输出到 stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// CanvasConfig 画布尺寸、标记大小与出生点。
// 步长属于客户端输入，线上只传输绝对坐标。
// 裁剪边界由服务器统一决定，不再依赖各客户端的窗口大小。
type CanvasConfig struct {
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	MarkerSize int `yaml:"marker_size"`
	StartX     int `yaml:"start_x"`
	StartY     int `yaml:"start_y"`
}

// Bounds 由画布配置得到裁剪边界
func (c CanvasConfig) Bounds() Bounds {
	return Bounds{Width: c.Width, Height: c.Height, MarkerSize: c.MarkerSize}
}

// ConnConfig 单连接参数
type ConnConfig struct {
	SendQueue      int           `yaml:"send_queue"`
	ReadLimit      int64         `yaml:"read_limit"`
	WriteWait      time.Duration `yaml:"write_wait"`
	PongWait       time.Duration `yaml:"pong_wait"`
	PingPeriod     time.Duration `yaml:"ping_period"`
	MovesPerSecond float64       `yaml:"moves_per_second"` // 0 表示不限速
	MoveBurst      int           `yaml:"move_burst"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Addr: ":8080",
		Log: LogConfig{
			File:       "app.log",
			Level:      "debug",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Canvas: CanvasConfig{
			Width:      1280,
			Height:     720,
			MarkerSize: 50,
			StartX:     100,
			StartY:     100,
		},
		Conn: ConnConfig{
			SendQueue:      64,
			ReadLimit:      1 << 20, // 1MB
			WriteWait:      5 * time.Second,
			PongWait:       60 * time.Second,
			PingPeriod:     54 * time.Second,
			MovesPerSecond: 60,
			MoveBurst:      20,
		},
	}
}

// LoadConfig 在默认配置之上叠加 YAML 文件；文件不存在时返回默认配置
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	// 未知字段直接报错
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate 检查配置的基本约束
func (c Config) Validate() error {
	if err := c.Canvas.Validate(); err != nil {
		return err
	}
	if c.Conn.SendQueue <= 0 {
		return fmt.Errorf("conn.send_queue must be positive, got %d", c.Conn.SendQueue)
	}
	if c.Conn.PingPeriod <= 0 || c.Conn.WriteWait <= 0 {
		return fmt.Errorf("conn.ping_period and conn.write_wait must be positive")
	}
	if c.Conn.PingPeriod >= c.Conn.PongWait {
		return fmt.Errorf("conn.ping_period (%s) must be shorter than conn.pong_wait (%s)", c.Conn.PingPeriod, c.Conn.PongWait)
	}
	if c.Conn.MovesPerSecond < 0 {
		return fmt.Errorf("conn.moves_per_second must not be negative")
	}
	return nil
}

// Validate 画布必须能容纳至少一个标记
func (c CanvasConfig) Validate() error {
	if c.MarkerSize < 0 {
		return fmt.Errorf("canvas.marker_size must not be negative")
	}
	if c.Width < c.MarkerSize || c.Height < c.MarkerSize {
		return fmt.Errorf("canvas %dx%d cannot hold marker of size %d", c.Width, c.Height, c.MarkerSize)
	}
	return nil
}
