package timeserver

import (
	"time"

	"github.com/lonng/platsupport/internal/log"
	"github.com/lonng/platsupport/timer/timerapi"
)

// Client 时间服务的客户端, 可以同时持有多个定时器.
// 方法可以在任意协程调用, 包括定时器回调中.
type Client struct {
	id     int64
	server *Server
	timers map[int]*Timer // 槽位 -> 定时器, 只能在服务协程中访问
	closed bool           // 只能在服务协程中访问
}

// Timer 客户端定时器, 占用时间管理器的一个槽位
type Timer struct {
	client   *Client
	slot     int
	fn       TimerFunc
	periodic bool
	stopped  bool // 只能在服务协程中访问
}

// ID 客户端 ID
func (c *Client) ID() int64 {
	return c.id
}

// After 等待 d 后执行一次 fn
func (c *Client) After(d time.Duration, fn TimerFunc) (*Timer, error) {
	if d < 0 {
		d = 0
	}
	return c.register(timerapi.TimeoutRelative, uint64(d), 0, fn)
}

// At 在逻辑定时器的时间点 deadline 执行一次 fn
func (c *Client) At(deadline uint64, fn TimerFunc) (*Timer, error) {
	return c.register(timerapi.TimeoutAbsolute, deadline, 0, fn)
}

// Every 每隔 interval 执行一次 fn
func (c *Client) Every(interval time.Duration, fn TimerFunc) (*Timer, error) {
	if interval <= 0 {
		return nil, timerapi.ErrInvalidArgument
	}
	return c.register(timerapi.TimeoutPeriodic, uint64(interval), 0, fn)
}

// EveryFrom 从时间点 start 开始每隔 interval 执行一次 fn
func (c *Client) EveryFrom(start uint64, interval time.Duration, fn TimerFunc) (*Timer, error) {
	if interval <= 0 {
		return nil, timerapi.ErrInvalidArgument
	}
	return c.register(timerapi.TimeoutPeriodic, uint64(interval), start, fn)
}

// Cancel 停止定时器, 等价于 t.Stop()
func (c *Client) Cancel(t *Timer) error {
	if t == nil || t.client != c {
		return timerapi.ErrInvalidArgument
	}
	return t.Stop()
}

// Now 读取时间
func (c *Client) Now() (uint64, error) {
	return c.server.Now()
}

// Close 停止所有定时器, 之后不能再创建定时器. 重复关闭没有副作用.
func (c *Client) Close() error {
	s := c.server
	return s.call(func() error {
		if c.closed {
			return nil
		}
		c.closed = true
		for _, t := range c.timers {
			t.release()
		}
		delete(s.clients, c.id)
		return nil
	})
}

// Timers 返回未停止的定时器数量
func (c *Client) Timers() (int, error) {
	var n int
	err := c.server.call(func() error {
		n = len(c.timers)
		return nil
	})
	return n, err
}

// register 分配槽位并注册超时, 失败时归还槽位
func (c *Client) register(typ timerapi.TimeoutType, ns, start uint64, fn TimerFunc) (*Timer, error) {
	s := c.server
	t := &Timer{client: c, fn: fn, periodic: typ == timerapi.TimeoutPeriodic}
	err := s.call(func() error {
		if c.closed {
			return ErrClientClosed
		}
		slot, err := s.tm.AllocID()
		if err != nil {
			return err
		}
		t.slot = slot
		if err := s.tm.RegisterCB(typ, ns, start, slot, s.fire, t); err != nil {
			if e := s.tm.FreeID(slot); e != nil {
				log.Error("Time server [%v] free slot %v error.", s.name, slot, e)
			}
			return err
		}
		c.timers[slot] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// fire 时间管理器的回调, token 是 *Timer
func (s *Server) fire(token any) {
	t, ok := token.(*Timer)
	if !ok {
		return
	}
	// 一次性定时器先归还槽位, 回调中可以立即复用
	if !t.periodic {
		t.release()
	}
	s.runTimer(t, t.fn)
}

// Slot 占用的槽位
func (t *Timer) Slot() int {
	return t.slot
}

// Stop 停止定时器并归还槽位. 重复停止没有副作用.
func (t *Timer) Stop() error {
	return t.client.server.call(func() error {
		t.release()
		return nil
	})
}

// release 只能在服务协程中调用
func (t *Timer) release() {
	if t.stopped {
		return
	}
	t.stopped = true
	s := t.client.server
	if err := s.tm.DeregisterCB(t.slot); err != nil {
		log.Error("Time server [%v] cancel slot %v error.", s.name, t.slot, err)
	}
	if err := s.tm.FreeID(t.slot); err != nil {
		log.Error("Time server [%v] free slot %v error.", s.name, t.slot, err)
	}
	delete(t.client.timers, t.slot)
}
