package driver

import (
	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/pingcap/errors"
)

// CompareTimer 64 位计数器加比较寄存器, 支持绝对和相对超时, 不支持周期超时
type CompareTimer struct {
	*simTimer
}

var _ timerapi.Driver = (*CompareTimer)(nil)
var _ timerapi.Counter = (*CompareTimer)(nil)
var _ timerapi.IRQLine = (*CompareTimer)(nil)

// NewCompareTimer 构造函数, 默认 62.5MHz
func NewCompareTimer(clock *ManualClock, opts ...Option) (*CompareTimer, error) {
	o := buildOptions(Options{Name: "compare", Frequency: 62_500_000}, opts)
	o.BitWidth = 64
	t, err := newSimTimer(clock, o)
	if err != nil {
		return nil, err
	}
	return &CompareTimer{simTimer: t}, nil
}

// SetTimeout 写比较寄存器
func (c *CompareTimer) SetTimeout(ns uint64, typ timerapi.TimeoutType) error {
	switch typ {
	case timerapi.TimeoutPeriodic:
		return errors.Annotatef(timerapi.ErrUnsupported, "%s: periodic timeouts", c.name)
	case timerapi.TimeoutAbsolute, timerapi.TimeoutRelative:
	default:
		return errors.Annotatef(timerapi.ErrInvalidArgument, "%s: timeout type %v", c.name, typ)
	}
	return c.arm(func(now uint64) (uint64, uint64, error) {
		if typ == timerapi.TimeoutRelative {
			return now + ns, 0, nil
		}
		if ns < now {
			return 0, 0, errors.Annotatef(timerapi.ErrTimeInPast, "%s: deadline %d before %d", c.name, ns, now)
		}
		return ns, 0, nil
	})
}

// Properties 能力描述
func (c *CompareTimer) Properties() timerapi.Properties {
	return timerapi.Properties{
		UpCounter:        true,
		Timeouts:         true,
		AbsoluteTimeouts: true,
		RelativeTimeouts: true,
		BitWidth:         64,
		IRQs:             1,
	}
}
