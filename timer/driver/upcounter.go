package driver

import (
	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/pingcap/errors"
)

// UpCounter 向上计数的通用定时器, 带一个比较寄存器和回绕中断.
// 支持相对和周期超时, 不支持绝对超时.
type UpCounter struct {
	*simTimer
}

var _ timerapi.Driver = (*UpCounter)(nil)
var _ timerapi.Counter = (*UpCounter)(nil)
var _ timerapi.IRQLine = (*UpCounter)(nil)

// NewUpCounter 构造函数, 默认 32 位, 24MHz
func NewUpCounter(clock *ManualClock, opts ...Option) (*UpCounter, error) {
	o := buildOptions(Options{Name: "upcounter", Frequency: 24_000_000, BitWidth: 32}, opts)
	t, err := newSimTimer(clock, o)
	if err != nil {
		return nil, err
	}
	return &UpCounter{simTimer: t}, nil
}

// SetTimeout 设置比较寄存器
func (u *UpCounter) SetTimeout(ns uint64, typ timerapi.TimeoutType) error {
	switch typ {
	case timerapi.TimeoutAbsolute:
		return errors.Annotatef(timerapi.ErrUnsupported, "%s: absolute timeouts", u.name)
	case timerapi.TimeoutRelative, timerapi.TimeoutPeriodic:
	default:
		return errors.Annotatef(timerapi.ErrInvalidArgument, "%s: timeout type %v", u.name, typ)
	}
	if typ == timerapi.TimeoutPeriodic && ns == 0 {
		return errors.Annotatef(timerapi.ErrInvalidArgument, "%s: zero period", u.name)
	}
	if ticks := NsToTicks(ns, u.freq); ticks > mask(u.bits) {
		return errors.Annotatef(timerapi.ErrUnsupported, "%s: %d ns does not fit %d-bit compare", u.name, ns, u.bits)
	}
	return u.arm(func(now uint64) (uint64, uint64, error) {
		if typ == timerapi.TimeoutPeriodic {
			return now + ns, ns, nil
		}
		return now + ns, 0, nil
	})
}

// Properties 能力描述
func (u *UpCounter) Properties() timerapi.Properties {
	return timerapi.Properties{
		UpCounter:        true,
		Timeouts:         true,
		RelativeTimeouts: true,
		PeriodicTimeouts: true,
		BitWidth:         u.bits,
		IRQs:             1,
	}
}
