// Package platform 根据平台描述文件组装逻辑定时器
package platform

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lonng/platsupport/internal/env"
	"github.com/lonng/platsupport/timer/driver"
	"github.com/lonng/platsupport/timer/ltimer"
	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/pingcap/errors"
)

// 驱动类型
const (
	KindUpCounter   = "upcounter"
	KindDownCounter = "downcounter"
	KindCompare     = "compare"
	KindHost        = "host"
)

// DeviceConfig 一个硬件定时器
type DeviceConfig struct {
	Kind      string `toml:"kind"`
	Bits      uint32 `toml:"bits"`      // 只对 upcounter 生效
	Frequency uint64 `toml:"frequency"` // 0 表示驱动默认值
}

// Config 平台描述
type Config struct {
	Name      string        `toml:"name"`
	Capacity  int           `toml:"capacity"`  // 时间管理器的槽位数
	Timestamp DeviceConfig  `toml:"timestamp"` // 提供时间的驱动
	Timeout   *DeviceConfig `toml:"timeout"`   // 提供超时的驱动, 为空时由 timestamp 负责
}

// Default 宿主机单调时钟
func Default() *Config {
	return &Config{
		Name:      "host",
		Capacity:  env.DefaultCapacity,
		Timestamp: DeviceConfig{Kind: KindHost},
	}
}

// Load 读取 TOML 文件
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Annotatef(err, "decode platform file %s", path)
	}
	return finish(cfg, md)
}

// Parse 解析 TOML 文本
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Annotate(err, "decode platform description")
	}
	return finish(cfg, md)
}

func finish(cfg *Config, md toml.MetaData) (*Config, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.Annotatef(timerapi.ErrInvalidArgument, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置
func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return errors.Annotatef(timerapi.ErrInvalidArgument, "capacity %d", c.Capacity)
	}
	if err := c.Timestamp.validate(); err != nil {
		return errors.Annotate(err, "timestamp")
	}
	if c.Timeout != nil {
		if err := c.Timeout.validate(); err != nil {
			return errors.Annotate(err, "timeout")
		}
	}
	return nil
}

// Simulated 是否包含挂在虚拟时钟上的驱动
func (c *Config) Simulated() bool {
	if c.Timestamp.Kind != KindHost {
		return true
	}
	return c.Timeout != nil && c.Timeout.Kind != KindHost
}

func (d DeviceConfig) validate() error {
	switch d.Kind {
	case KindUpCounter, KindDownCounter, KindCompare, KindHost:
		return nil
	default:
		return errors.Annotatef(timerapi.ErrInvalidArgument, "unknown driver kind %q", d.Kind)
	}
}

// Open 按配置创建驱动并组装成逻辑定时器. 模拟驱动挂在 clock 上.
func Open(cfg *Config, clock *driver.ManualClock, opts ...ltimer.Option) (*ltimer.LTimer, error) {
	if cfg == nil {
		return nil, errors.Annotate(timerapi.ErrInvalidArgument, "nil platform config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timestamp, err := newDriver("timestamp", cfg.Timestamp, clock)
	if err != nil {
		return nil, err
	}
	var timeout timerapi.Driver
	if cfg.Timeout != nil {
		if timeout, err = newDriver("timeout", *cfg.Timeout, clock); err != nil {
			return nil, err
		}
	}
	opts = append([]ltimer.Option{ltimer.WithName(cfg.Name)}, opts...)
	return ltimer.New(timestamp, timeout, opts...)
}

func newDriver(role string, d DeviceConfig, clock *driver.ManualClock) (timerapi.Driver, error) {
	if d.Kind == KindHost {
		return driver.NewHostTimer(), nil
	}
	if clock == nil {
		return nil, errors.Annotatef(timerapi.ErrInvalidArgument, "%s driver %q needs a manual clock", role, d.Kind)
	}

	opts := []driver.Option{driver.WithName(role + "/" + d.Kind)}
	if d.Frequency != 0 {
		opts = append(opts, driver.WithFrequency(d.Frequency))
	}
	switch d.Kind {
	case KindUpCounter:
		if d.Bits != 0 {
			opts = append(opts, driver.WithBitWidth(d.Bits))
		}
		return driver.NewUpCounter(clock, opts...)
	case KindDownCounter:
		return driver.NewDownCounter(clock, opts...)
	default:
		return driver.NewCompareTimer(clock, opts...)
	}
}
