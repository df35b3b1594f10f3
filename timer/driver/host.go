package driver

import (
	"sync"
	"time"

	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/pingcap/errors"
)

// HostTimer 基于宿主机单调时钟的 64 位定时器, 超时由 Go 运行时定时器触发
type HostTimer struct {
	mu      sync.Mutex
	irq     chan struct{}
	running bool
	base    uint64
	frozen  uint64
	timer   *time.Timer
	gen     uint64 // 每次设置或取消超时加 1, 丢弃过期的定时器回调
	pending bool
}

var _ timerapi.Driver = (*HostTimer)(nil)
var _ timerapi.Counter = (*HostTimer)(nil)
var _ timerapi.IRQLine = (*HostTimer)(nil)

// NewHostTimer 构造函数
func NewHostTimer() *HostTimer {
	return &HostTimer{irq: make(chan struct{}, 1)}
}

// Start 从 0 开始计时
func (h *HostTimer) Start() error {
	now, err := monotonicNow()
	if err != nil {
		return errors.Trace(err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelLocked()
	h.running = true
	h.base = now
	h.frozen = 0
	return nil
}

// Stop 停止计时并取消超时
func (h *HostTimer) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		now, err := h.nowLocked()
		if err != nil {
			return err
		}
		h.frozen = now
	}
	h.running = false
	h.cancelLocked()
	return nil
}

// GetTime 返回启动以来的纳秒数
func (h *HostTimer) GetTime() (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nowLocked()
}

// SetTimeout 三种超时都支持
func (h *HostTimer) SetTimeout(ns uint64, typ timerapi.TimeoutType) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return errors.Annotate(timerapi.ErrInvalidArgument, "host timer not started")
	}
	now, err := h.nowLocked()
	if err != nil {
		return err
	}

	var delay, period uint64
	switch typ {
	case timerapi.TimeoutAbsolute:
		if ns < now {
			return errors.Annotatef(timerapi.ErrTimeInPast, "host timer: deadline %d before %d", ns, now)
		}
		delay = ns - now
	case timerapi.TimeoutRelative:
		delay = ns
	case timerapi.TimeoutPeriodic:
		if ns == 0 {
			return errors.Annotate(timerapi.ErrInvalidArgument, "host timer: zero period")
		}
		delay, period = ns, ns
	default:
		return errors.Annotatef(timerapi.ErrInvalidArgument, "host timer: timeout type %v", typ)
	}

	h.cancelLocked()
	gen := h.gen
	h.timer = time.AfterFunc(time.Duration(delay), func() {
		h.fire(gen, time.Duration(period))
	})
	return nil
}

// HandleIRQ 应答中断
func (h *HostTimer) HandleIRQ() (timerapi.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.pending {
		return 0, nil
	}
	h.pending = false
	return timerapi.EventTimeout, nil
}

// Properties 能力描述
func (h *HostTimer) Properties() timerapi.Properties {
	return timerapi.Properties{
		UpCounter:        true,
		Timeouts:         true,
		AbsoluteTimeouts: true,
		RelativeTimeouts: true,
		PeriodicTimeouts: true,
		BitWidth:         64,
		IRQs:             1,
	}
}

// Ticks 单位是纳秒
func (h *HostTimer) Ticks() uint64 {
	now, _ := h.GetTime()
	return now
}

// Frequency 1GHz
func (h *HostTimer) Frequency() uint64 {
	return timerapi.NsInS
}

// OverflowPending 64 位计数器不会回绕
func (h *HostTimer) OverflowPending() bool {
	return false
}

// IRQ 中断通道
func (h *HostTimer) IRQ() <-chan struct{} {
	return h.irq
}

func (h *HostTimer) nowLocked() (uint64, error) {
	if !h.running {
		return h.frozen, nil
	}
	now, err := monotonicNow()
	if err != nil {
		return 0, errors.Trace(err)
	}
	return now - h.base, nil
}

func (h *HostTimer) cancelLocked() {
	h.gen++
	h.pending = false
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// fire 运行时定时器回调
func (h *HostTimer) fire(gen uint64, period time.Duration) {
	h.mu.Lock()
	if gen != h.gen {
		h.mu.Unlock()
		return
	}
	h.pending = true
	if period > 0 && h.timer != nil {
		h.timer.Reset(period)
	}
	h.mu.Unlock()

	select {
	case h.irq <- struct{}{}:
	default:
	}
}
