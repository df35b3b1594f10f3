package driver

import (
	"sync"

	"github.com/lonng/platsupport/internal/log"
	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/pingcap/errors"
)

// simTimer 模拟设备的公共部分: 自由计数器, 一个比较/重载通道, 一根中断线.
// 设备时间 = 启动以来的计数值换算成的纳秒, 按计数精度向下取整.
type simTimer struct {
	mu    sync.Mutex
	name  string
	clock *ManualClock
	freq  uint64
	bits  uint32
	irq   chan struct{}

	running bool
	base    uint64 // 启动时的时钟读数
	frozen  uint64 // 停止时已经过的时钟时间
	acked   uint64 // 已应答的回绕次数

	armed    bool
	deadline uint64 // 设备时间
	period   uint64
	pending  bool
}

func newSimTimer(clock *ManualClock, o Options) (*simTimer, error) {
	if clock == nil {
		return nil, errors.Annotate(timerapi.ErrInvalidArgument, "nil clock")
	}
	if o.Frequency == 0 || o.Frequency > timerapi.NsInS {
		return nil, errors.Annotatef(timerapi.ErrInvalidArgument, "%s: frequency %d out of range", o.Name, o.Frequency)
	}
	switch o.BitWidth {
	case 16, 32, 64:
	default:
		return nil, errors.Annotatef(timerapi.ErrInvalidArgument, "%s: unsupported bit width %d", o.Name, o.BitWidth)
	}
	t := &simTimer{
		name:  o.Name,
		clock: clock,
		freq:  o.Frequency,
		bits:  o.BitWidth,
		irq:   make(chan struct{}, 1),
	}
	clock.attach(t)
	return t, nil
}

// Start 计数器从 0 开始计数
func (t *simTimer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startLocked()
	return nil
}

func (t *simTimer) startLocked() {
	t.running = true
	t.base = t.clock.Now()
	t.frozen = 0
	t.acked = 0
	t.armed = false
	t.pending = false
}

// Stop 冻结计数器并取消超时
func (t *simTimer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = t.elapsedLocked()
	t.running = false
	t.armed = false
	t.pending = false
	return nil
}

// GetTime 返回回绕后的计数值对应的纳秒数
func (t *simTimer) GetTime() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TicksToNs(t.ticksLocked()&mask(t.bits), t.freq), nil
}

// HandleIRQ 应答中断
func (t *simTimer) HandleIRQ() (timerapi.Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pollLocked()
	var ev timerapi.Event
	if t.pending {
		ev |= timerapi.EventTimeout
		t.pending = false
	}
	if wraps := t.wrapsLocked(); wraps > t.acked {
		ev |= timerapi.EventOverflow
		if wraps > t.acked+1 {
			log.Error("%s: missed %v counter overflows", t.name, wraps-t.acked-1)
		}
		t.acked = wraps
	}
	return ev, nil
}

// Ticks 返回向上计数的原始值
func (t *simTimer) Ticks() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticksLocked() & mask(t.bits)
}

// Frequency 返回计数频率
func (t *simTimer) Frequency() uint64 {
	return t.freq
}

// OverflowPending 检查是否有未应答的回绕
func (t *simTimer) OverflowPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wrapsLocked() > t.acked
}

// IRQ 中断通道
func (t *simTimer) IRQ() <-chan struct{} {
	return t.irq
}

// Close 从时钟上卸载
func (t *simTimer) Close() {
	t.clock.detach(t)
}

func (t *simTimer) elapsedLocked() uint64 {
	if !t.running {
		return t.frozen
	}
	return t.clock.Now() - t.base
}

func (t *simTimer) ticksLocked() uint64 {
	return NsToTicks(t.elapsedLocked(), t.freq)
}

func (t *simTimer) wrapsLocked() uint64 {
	if t.bits >= 64 {
		return 0
	}
	return t.ticksLocked() >> t.bits
}

// nowLocked 未回绕的设备时间
func (t *simTimer) nowLocked() uint64 {
	return TicksToNs(t.ticksLocked(), t.freq)
}

// arm 设置比较通道. compute 在持有锁时根据当前设备时间计算 deadline 和 period.
func (t *simTimer) arm(compute func(now uint64) (deadline, period uint64, err error)) error {
	t.mu.Lock()
	if !t.running {
		t.startLocked()
	}
	deadline, period, err := compute(t.nowLocked())
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.armed = true
	t.deadline = deadline
	t.period = period
	t.pending = false
	fire := t.pollLocked()
	t.mu.Unlock()
	if fire {
		t.raise()
	}
	return nil
}

// poll 时钟推进后检查中断条件
func (t *simTimer) poll() {
	t.mu.Lock()
	fire := t.pollLocked()
	t.mu.Unlock()
	if fire {
		t.raise()
	}
}

// pollLocked 比较通道到期时置位 pending, 周期模式按硬件重载跳过错过的周期
func (t *simTimer) pollLocked() bool {
	if t.armed {
		if now := t.nowLocked(); now >= t.deadline {
			t.pending = true
			if t.period > 0 {
				t.deadline += ((now-t.deadline)/t.period + 1) * t.period
			} else {
				t.armed = false
			}
		}
	}
	return t.pending || t.wrapsLocked() > t.acked
}

func (t *simTimer) raise() {
	select {
	case t.irq <- struct{}{}:
	default:
	}
}
