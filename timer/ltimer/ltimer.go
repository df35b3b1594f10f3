// Package ltimer 把一个或两个硬件定时器驱动组合成一个逻辑定时器:
// 时间戳驱动负责 64 位单调时间, 超时驱动负责中断.
package ltimer

import (
	"sync"

	"github.com/lonng/platsupport/internal/log"
	"github.com/lonng/platsupport/timer/driver"
	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/pingcap/errors"
)

// LTimer 逻辑定时器
type LTimer struct {
	name      string
	timestamp timerapi.Driver
	timeout   timerapi.Driver
	counter   timerapi.Counter // 时间戳驱动的计数接口, 64 位驱动可以为 nil
	tsProps   timerapi.Properties
	toProps   timerapi.Properties
	onEvent   func(timerapi.Event)

	mu       sync.Mutex
	high     uint64 // 时间戳计数器的回绕次数
	periodic uint64 // 模拟周期超时的周期, 0 表示没有
}

var _ timerapi.LogicalTimer = (*LTimer)(nil)

// New 构造并启动逻辑定时器. timeout 为 nil 时时间戳驱动同时负责超时.
func New(timestamp, timeout timerapi.Driver, opts ...Option) (*LTimer, error) {
	if timestamp == nil {
		return nil, errors.Annotate(timerapi.ErrInvalidArgument, "nil timestamp driver")
	}
	if timeout == nil {
		timeout = timestamp
	}
	o := Options{Name: "ltimer"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	lt := &LTimer{
		name:      o.Name,
		timestamp: timestamp,
		timeout:   timeout,
		tsProps:   timestamp.Properties(),
		toProps:   timeout.Properties(),
		onEvent:   o.OnEvent,
	}
	if c, ok := timestamp.(timerapi.Counter); ok {
		lt.counter = c
	}
	if lt.tsProps.BitWidth < 64 && lt.counter == nil {
		return nil, errors.Annotatef(timerapi.ErrUnsupported, "%s: %d-bit timestamp driver cannot be widened", lt.name, lt.tsProps.BitWidth)
	}
	if lt.tsProps.BitWidth < 64 && lt.counter.Frequency() == 0 {
		return nil, errors.Annotatef(timerapi.ErrInvalidArgument, "%s: zero counter frequency", lt.name)
	}

	if err := lt.start(); err != nil {
		return nil, err
	}
	return lt, nil
}

// start 启动所有驱动
func (lt *LTimer) start() error {
	if err := lt.timestamp.Start(); err != nil {
		return errors.Annotatef(err, "%s: start timestamp", lt.name)
	}
	if lt.split() {
		if err := lt.timeout.Start(); err != nil {
			return errors.Annotatef(err, "%s: start timeout", lt.name)
		}
	}
	return nil
}

// split 时间戳和超时是否由不同的驱动负责
func (lt *LTimer) split() bool {
	return lt.timeout != lt.timestamp
}

// GetTime 返回 64 位单调时间
func (lt *LTimer) GetTime() (uint64, error) {
	if lt.tsProps.BitWidth >= 64 {
		now, err := lt.timestamp.GetTime()
		return now, errors.Trace(err)
	}

	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.widenLocked(), nil
}

// widenLocked 低位取计数器, 高位取回绕次数. 读数之后发现有未处理的回绕时重新读取低位并把高位加 1.
func (lt *LTimer) widenLocked() uint64 {
	low := lt.counter.Ticks()
	high := lt.high
	if lt.counter.OverflowPending() {
		low = lt.counter.Ticks()
		high++
	}
	ticks := high<<lt.tsProps.BitWidth | low
	return driver.TicksToNs(ticks, lt.counter.Frequency())
}

// GetResolution 返回时间戳计数器一个计数对应的纳秒数
func (lt *LTimer) GetResolution() (uint64, error) {
	if lt.counter == nil || lt.counter.Frequency() == 0 {
		return 0, errors.Annotatef(timerapi.ErrUnsupported, "%s: resolution unknown", lt.name)
	}
	res := timerapi.NsInS / lt.counter.Frequency()
	if res == 0 {
		res = 1
	}
	return res, nil
}

// SetTimeout 设置下一次中断. 超时驱动不支持的模式会被换算:
// 绝对超时换算成相对超时, 周期超时用相对超时在 HandleIRQ 中重新设置.
func (lt *LTimer) SetTimeout(ns uint64, typ timerapi.TimeoutType) error {
	if !lt.toProps.Timeouts {
		return errors.Annotatef(timerapi.ErrUnsupported, "%s: timeouts", lt.name)
	}
	switch typ {
	case timerapi.TimeoutAbsolute:
		now, err := lt.GetTime()
		if err != nil {
			return err
		}
		if ns < now {
			return errors.Annotatef(timerapi.ErrTimeInPast, "%s: deadline %d before %d", lt.name, ns, now)
		}
		lt.setPeriodic(0)
		if !lt.split() && lt.toProps.AbsoluteTimeouts && lt.toProps.BitWidth >= 64 {
			return lt.driverTimeout(ns, timerapi.TimeoutAbsolute)
		}
		return lt.relative(ns - now)
	case timerapi.TimeoutRelative:
		lt.setPeriodic(0)
		return lt.relative(ns)
	case timerapi.TimeoutPeriodic:
		if ns == 0 {
			return errors.Annotatef(timerapi.ErrInvalidArgument, "%s: zero period", lt.name)
		}
		if lt.toProps.PeriodicTimeouts {
			lt.setPeriodic(0)
			return lt.driverTimeout(ns, timerapi.TimeoutPeriodic)
		}
		if err := lt.relative(ns); err != nil {
			return err
		}
		lt.setPeriodic(ns)
		return nil
	default:
		return errors.Annotatef(timerapi.ErrInvalidArgument, "%s: timeout type %v", lt.name, typ)
	}
}

// relative 用超时驱动设置 ns 之后的中断
func (lt *LTimer) relative(ns uint64) error {
	if lt.toProps.RelativeTimeouts {
		return lt.driverTimeout(ns, timerapi.TimeoutRelative)
	}
	if lt.toProps.AbsoluteTimeouts && lt.toProps.BitWidth >= 64 {
		now, err := lt.timeout.GetTime()
		if err != nil {
			return errors.Trace(err)
		}
		return lt.driverTimeout(now+ns, timerapi.TimeoutAbsolute)
	}
	return errors.Annotatef(timerapi.ErrUnsupported, "%s: no usable timeout mode", lt.name)
}

// driverTimeout 驱动返回的错误保持原有类型
func (lt *LTimer) driverTimeout(ns uint64, typ timerapi.TimeoutType) error {
	if err := lt.timeout.SetTimeout(ns, typ); err != nil {
		return errors.Annotatef(err, "%s: set %v timeout %d", lt.name, typ, ns)
	}
	return nil
}

func (lt *LTimer) setPeriodic(period uint64) {
	lt.mu.Lock()
	lt.periodic = period
	lt.mu.Unlock()
}

// HandleIRQ 应答所有驱动的中断, 更新回绕次数并重新设置模拟的周期超时
func (lt *LTimer) HandleIRQ() error {
	// 应答回绕和更新高位必须在同一把锁内完成, 否则 GetTime 可能读到回退的时间
	lt.mu.Lock()
	ev, err := lt.timestamp.HandleIRQ()
	if err == nil && ev.Has(timerapi.EventOverflow) {
		lt.high++
	}
	lt.mu.Unlock()
	if err != nil {
		return errors.Annotatef(err, "%s: timestamp irq", lt.name)
	}

	toEv := ev
	if lt.split() {
		toEv, err = lt.timeout.HandleIRQ()
		if err != nil {
			return errors.Annotatef(err, "%s: timeout irq", lt.name)
		}
		ev |= toEv
	}

	if toEv.Has(timerapi.EventTimeout) {
		lt.mu.Lock()
		period := lt.periodic
		lt.mu.Unlock()
		if period > 0 {
			if err := lt.relative(period); err != nil {
				log.Error("%s: re-arm periodic timeout", lt.name, err)
				return err
			}
		}
	}

	if lt.onEvent != nil && ev != 0 {
		lt.onEvent(ev)
	}
	return nil
}

// Reset 停止所有驱动, 清空状态后从 0 重新启动
func (lt *LTimer) Reset() error {
	if lt.split() {
		if err := lt.timeout.Stop(); err != nil {
			return errors.Annotatef(err, "%s: stop timeout", lt.name)
		}
	}
	if err := lt.timestamp.Stop(); err != nil {
		return errors.Annotatef(err, "%s: stop timestamp", lt.name)
	}
	lt.mu.Lock()
	lt.high = 0
	lt.periodic = 0
	lt.mu.Unlock()
	return lt.start()
}

// Destroy 停止并关闭所有驱动
func (lt *LTimer) Destroy() {
	for _, d := range lt.drivers() {
		if err := d.Stop(); err != nil {
			log.Error("%s: stop driver", lt.name, err)
		}
		if c, ok := d.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

// IRQs 返回所有驱动的中断通道
func (lt *LTimer) IRQs() []<-chan struct{} {
	var irqs []<-chan struct{}
	for _, d := range lt.drivers() {
		if line, ok := d.(timerapi.IRQLine); ok {
			irqs = append(irqs, line.IRQ())
		}
	}
	return irqs
}

// Properties 返回组合后的能力描述
func (lt *LTimer) Properties() timerapi.Properties {
	return timerapi.Properties{
		UpCounter:        true,
		Timeouts:         lt.toProps.Timeouts,
		AbsoluteTimeouts: lt.toProps.Timeouts && (lt.toProps.AbsoluteTimeouts || lt.toProps.RelativeTimeouts),
		RelativeTimeouts: lt.toProps.RelativeTimeouts || (lt.toProps.AbsoluteTimeouts && lt.toProps.BitWidth >= 64),
		PeriodicTimeouts: lt.toProps.Timeouts,
		BitWidth:         64,
		IRQs:             len(lt.IRQs()),
	}
}

func (lt *LTimer) drivers() []timerapi.Driver {
	if lt.split() {
		return []timerapi.Driver{lt.timeout, lt.timestamp}
	}
	return []timerapi.Driver{lt.timestamp}
}
