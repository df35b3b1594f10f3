package driver

import (
	"math"

	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/pingcap/errors"
)

// DownCounter 32 位向下计数的定时器. 自由计数器从 0xffffffff 递减, 到 0 时重载并产生回绕中断;
// 超时通过重载寄存器设置, 支持相对和周期超时.
type DownCounter struct {
	*simTimer
}

var _ timerapi.Driver = (*DownCounter)(nil)
var _ timerapi.Counter = (*DownCounter)(nil)
var _ timerapi.IRQLine = (*DownCounter)(nil)

// NewDownCounter 构造函数, 默认 1MHz. 位宽固定为 32.
func NewDownCounter(clock *ManualClock, opts ...Option) (*DownCounter, error) {
	o := buildOptions(Options{Name: "downcounter", Frequency: 1_000_000}, opts)
	o.BitWidth = 32
	t, err := newSimTimer(clock, o)
	if err != nil {
		return nil, err
	}
	return &DownCounter{simTimer: t}, nil
}

// Value 计数寄存器的原始值
func (d *DownCounter) Value() uint32 {
	return uint32(math.MaxUint32 - d.simTimer.Ticks())
}

// Ticks 把向下计数的值取反, 得到向上计数的值
func (d *DownCounter) Ticks() uint64 {
	return math.MaxUint32 - uint64(d.Value())
}

// GetTime 返回取反后的计数值对应的纳秒数
func (d *DownCounter) GetTime() (uint64, error) {
	return TicksToNs(d.Ticks(), d.freq), nil
}

// SetTimeout 写重载寄存器
func (d *DownCounter) SetTimeout(ns uint64, typ timerapi.TimeoutType) error {
	switch typ {
	case timerapi.TimeoutAbsolute:
		return errors.Annotatef(timerapi.ErrUnsupported, "%s: absolute timeouts", d.name)
	case timerapi.TimeoutRelative, timerapi.TimeoutPeriodic:
	default:
		return errors.Annotatef(timerapi.ErrInvalidArgument, "%s: timeout type %v", d.name, typ)
	}
	if typ == timerapi.TimeoutPeriodic && ns == 0 {
		return errors.Annotatef(timerapi.ErrInvalidArgument, "%s: zero period", d.name)
	}
	if load := NsToTicks(ns, d.freq); load > math.MaxUint32 {
		return errors.Annotatef(timerapi.ErrUnsupported, "%s: load of %d ticks exceeds 32 bits", d.name, load)
	}
	return d.arm(func(now uint64) (uint64, uint64, error) {
		if typ == timerapi.TimeoutPeriodic {
			return now + ns, ns, nil
		}
		return now + ns, 0, nil
	})
}

// Properties 能力描述
func (d *DownCounter) Properties() timerapi.Properties {
	return timerapi.Properties{
		Timeouts:         true,
		RelativeTimeouts: true,
		PeriodicTimeouts: true,
		BitWidth:         32,
		IRQs:             1,
	}
}
