// Package timemanager 把客户端的相对/绝对/周期超时复用到一个逻辑定时器上
package timemanager

import (
	"math"

	"github.com/lonng/platsupport/internal/log"
	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/lonng/platsupport/timer/tqueue"
	"github.com/pingcap/errors"
)

// noTimeout 没有设置硬件超时
const noTimeout = math.MaxUint64

// Manager 时间管理器. 与 tqueue 一样只能被一个协程访问, 回调中可以重入.
type Manager struct {
	lt       timerapi.LogicalTimer
	tq       *tqueue.TQueue
	current  uint64 // 已设置的硬件超时
	slack    uint64
	backstop uint64
}

// New 构造函数, size 为客户端槽位数
func New(lt timerapi.LogicalTimer, size int, opts ...Option) (*Manager, error) {
	if lt == nil {
		return nil, errors.Annotate(timerapi.ErrInvalidArgument, "nil logical timer")
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Slack < 0 || o.Backstop <= 0 {
		return nil, errors.Annotatef(timerapi.ErrInvalidArgument, "slack %v backstop %v", o.Slack, o.Backstop)
	}
	tq, err := tqueue.New(size)
	if err != nil {
		return nil, errors.Annotatef(err, "timeout queue of %d", size)
	}
	return &Manager{
		lt:       lt,
		tq:       tq,
		current:  noTimeout,
		slack:    uint64(o.Slack),
		backstop: uint64(o.Backstop),
	}, nil
}

// AllocID 分配最小的空闲 id
func (m *Manager) AllocID() (int, error) {
	return m.tq.AllocID()
}

// AllocIDAt 分配指定 id
func (m *Manager) AllocIDAt(id int) error {
	return m.tq.AllocIDAt(id)
}

// FreeID 释放 id
func (m *Manager) FreeID(id int) error {
	return m.tq.FreeID(id)
}

// GetTime 读取逻辑定时器的时间
func (m *Manager) GetTime() (uint64, error) {
	return m.lt.GetTime()
}

// Armed 返回已设置的硬件超时
func (m *Manager) Armed() (uint64, bool) {
	return m.current, m.current != noTimeout
}

// Pending 返回待触发的超时数量
func (m *Manager) Pending() int {
	return m.tq.Pending()
}

// RegisterCB 注册超时.
//   - TimeoutAbsolute: ns 是触发时间;
//   - TimeoutRelative: 在 ns 之后触发;
//   - TimeoutPeriodic: 每隔 ns 触发一次, 第一次在 start (非 0 时) 或 now+ns.
//
// 触发时间已经过去时返回 ErrTimeInPast, 不注册任何超时.
func (m *Manager) RegisterCB(typ timerapi.TimeoutType, ns, start uint64, id int, cb timerapi.Callback, token any) error {
	now, err := m.lt.GetTime()
	if err != nil {
		return errors.Trace(err)
	}

	timeout := timerapi.Timeout{Token: token, Callback: cb}
	switch typ {
	case timerapi.TimeoutAbsolute:
		timeout.AbsTime = ns
	case timerapi.TimeoutRelative:
		timeout.AbsTime = now + ns
	case timerapi.TimeoutPeriodic:
		if ns == 0 {
			return errors.Annotate(timerapi.ErrInvalidArgument, "zero period")
		}
		if start != 0 {
			timeout.AbsTime = start
		} else {
			timeout.AbsTime = now + ns
		}
		timeout.Period = ns
	default:
		return errors.Annotatef(timerapi.ErrInvalidArgument, "timeout type %v", typ)
	}

	if timeout.AbsTime < now {
		return errors.Annotatef(timerapi.ErrTimeInPast, "deadline %d before %d", timeout.AbsTime, now)
	}
	if err := m.tq.Register(id, timeout); err != nil {
		return err
	}

	// 差距在 slack 以内时不重新设置, 避免竞争
	if timeout.AbsTime >= m.current || m.current-timeout.AbsTime <= m.slack {
		return nil
	}
	err = m.lt.SetTimeout(timeout.AbsTime, timerapi.TimeoutAbsolute)
	switch {
	case err == nil:
		m.current = timeout.AbsTime
		return nil
	case timerapi.IsKind(err, timerapi.ErrTimeInPast):
		m.armBackstop()
		return nil
	default:
		return err
	}
}

// armBackstop 设置 now+backstop, 失败时没有任何硬件超时, 所有超时都会停滞
func (m *Manager) armBackstop() {
	now, err := m.lt.GetTime()
	if err == nil {
		backup := now + m.backstop
		if err = m.lt.SetTimeout(backup, timerapi.TimeoutAbsolute); err == nil {
			m.current = backup
			return
		}
	}
	err = errors.Annotatef(err, "failed to set timeout in %d ns, timeout not set", m.backstop)
	log.Error("Time manager stalled", err)
	panic(err)
}

// RegisterAbsCB 在时间点 ns 触发
func (m *Manager) RegisterAbsCB(ns uint64, id int, cb timerapi.Callback, token any) error {
	return m.RegisterCB(timerapi.TimeoutAbsolute, ns, 0, id, cb, token)
}

// RegisterRelCB 在 ns 之后触发
func (m *Manager) RegisterRelCB(ns uint64, id int, cb timerapi.Callback, token any) error {
	return m.RegisterCB(timerapi.TimeoutRelative, ns, 0, id, cb, token)
}

// RegisterPeriodicCB 每隔 period 触发, start 为 0 时第一次在 now+period
func (m *Manager) RegisterPeriodicCB(period, start uint64, id int, cb timerapi.Callback, token any) error {
	return m.RegisterCB(timerapi.TimeoutPeriodic, period, start, id, cb, token)
}

// DeregisterCB 取消超时, 不会取消已设置的硬件超时, 多一次中断的代价比重新同步硬件状态低
func (m *Manager) DeregisterCB(id int) error {
	return m.tq.Cancel(id)
}

// UpdateWithTime 触发所有 now 之前到期的超时, 并按下一个到期时间重新设置硬件.
// 设置时已经过期就重新读取时间再来一遍, 直到设置成功或者没有待触发的超时.
func (m *Manager) UpdateWithTime(now uint64) error {
	for {
		next, err := m.tq.Update(now)
		if err != nil {
			log.Error("Timeout update failed", err)
			return err
		}
		if next == 0 {
			m.current = noTimeout
			return nil
		}
		if next >= m.current && m.current > now {
			return nil
		}

		m.current = next
		err = m.lt.SetTimeout(next, timerapi.TimeoutAbsolute)
		if err == nil {
			return nil
		}
		if !timerapi.IsKind(err, timerapi.ErrTimeInPast) {
			m.current = noTimeout
			return err
		}
		if now, err = m.lt.GetTime(); err != nil {
			return errors.Trace(err)
		}
	}
}

// Update 用当前时间调用 UpdateWithTime
func (m *Manager) Update() error {
	now, err := m.lt.GetTime()
	if err != nil {
		return errors.Trace(err)
	}
	return m.UpdateWithTime(now)
}
