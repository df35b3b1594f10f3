// Package driver 硬件定时器驱动. 模拟设备挂在手动推进的虚拟时钟上, HostTimer 使用宿主机单调时钟.
package driver

import (
	"sync"
	"time"

	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/pingcap/errors"
)

// ManualClock 只能手动推进的虚拟时钟, 推进后同步检查所有挂载设备的中断条件
type ManualClock struct {
	mu      sync.Mutex
	now     uint64
	devices []*simTimer
}

// NewManualClock 构造一个从 0 开始的虚拟时钟
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// Now 返回当前虚拟时间(ns)
func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 推进 d, d <= 0 时什么也不做
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now += uint64(d)
	devices := c.snapshot()
	c.mu.Unlock()
	c.notify(devices)
}

// Set 把时钟拨到 ns, 不允许回拨
func (c *ManualClock) Set(ns uint64) error {
	c.mu.Lock()
	if ns < c.now {
		now := c.now
		c.mu.Unlock()
		return errors.Annotatef(timerapi.ErrTimeInPast, "manual clock at %d, cannot set %d", now, ns)
	}
	c.now = ns
	devices := c.snapshot()
	c.mu.Unlock()
	c.notify(devices)
	return nil
}

// attach 挂载设备
func (c *ManualClock) attach(t *simTimer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = append(c.devices, t)
}

// detach 卸载设备
func (c *ManualClock) detach(t *simTimer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.devices {
		if d == t {
			c.devices = append(c.devices[:i], c.devices[i+1:]...)
			return
		}
	}
}

// snapshot 复制设备列表, 调用方持有锁
func (c *ManualClock) snapshot() []*simTimer {
	devices := make([]*simTimer, len(c.devices))
	copy(devices, c.devices)
	return devices
}

// notify 在不持有时钟锁的情况下通知设备
func (c *ManualClock) notify(devices []*simTimer) {
	for _, d := range devices {
		d.poll()
	}
}
