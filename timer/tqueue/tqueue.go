// Package tqueue 把多个客户端的绝对超时复用成一个, 并返回下一个到期时间.
package tqueue

import (
	"github.com/lonng/platsupport/internal/log"
	"github.com/lonng/platsupport/timer/timerapi"
)

// MaxSize 槽位池的容量上限, 超过时按内存不足处理
const MaxSize = 1 << 20

// TQueue 超时复用器. 不是并发安全的, 只能被持有它的协程访问;
// 回调中可以重入调用任意方法 (Update 除外).
type TQueue struct {
	nodes []node // 按 id 索引的槽位
	queue *index // 活跃槽位的有序索引
}

// New 构造一个容量为 size 的超时复用器
func New(size int) (*TQueue, error) {
	if size <= 0 {
		return nil, timerapi.ErrInvalidArgument
	}
	if size > MaxSize {
		log.Error("Timeout queue size %v exceeds %v", size, MaxSize)
		return nil, timerapi.ErrOutOfMemory
	}
	tq := &TQueue{
		nodes: make([]node, size),
		queue: newIndex(),
	}
	for i := range tq.nodes {
		tq.nodes[i].id = i
	}
	return tq, nil
}

// Size 返回槽位总数
func (tq *TQueue) Size() int {
	if tq == nil {
		return 0
	}
	return len(tq.nodes)
}

// valid 检查 id 是否在范围内
func (tq *TQueue) valid(id int) bool {
	return id >= 0 && id < len(tq.nodes)
}

// AllocID 分配编号最小的空闲 id
func (tq *TQueue) AllocID() (int, error) {
	if tq == nil {
		return 0, timerapi.ErrInvalidArgument
	}
	for i := range tq.nodes {
		if !tq.nodes[i].allocated {
			tq.nodes[i].allocated = true
			return i, nil
		}
	}
	log.Error("Out of timer client ids")
	return 0, timerapi.ErrResourceExhausted
}

// AllocIDAt 分配指定的 id
func (tq *TQueue) AllocIDAt(id int) error {
	if tq == nil || !tq.valid(id) {
		return timerapi.ErrInvalidArgument
	}
	if tq.nodes[id].allocated {
		return timerapi.ErrAddressInUse
	}
	tq.nodes[id].allocated = true
	return nil
}

// FreeID 释放 id, 如果有未到期的超时则先取消
func (tq *TQueue) FreeID(id int) error {
	if tq == nil {
		return timerapi.ErrInvalidArgument
	}
	if !tq.valid(id) {
		log.Error("Invalid timer id %v", id)
		return timerapi.ErrInvalidArgument
	}
	n := &tq.nodes[id]
	if !n.allocated {
		log.Info("Freeing unallocated timer id %v", id)
		return timerapi.ErrInvalidArgument
	}
	if n.active {
		tq.queue.remove(n)
	}
	n.reset()
	n.allocated = false
	return nil
}

// Register 注册超时, 已注册的超时会被覆盖. 不检查 AbsTime 是否已经过去,
// 过去的超时会在下一次 Update 时触发.
func (tq *TQueue) Register(id int, timeout timerapi.Timeout) error {
	if tq == nil {
		return timerapi.ErrInvalidArgument
	}
	if !tq.valid(id) || !tq.nodes[id].allocated {
		log.Error("Invalid timer id %v", id)
		return timerapi.ErrInvalidArgument
	}
	n := &tq.nodes[id]
	if n.active {
		tq.queue.remove(n)
	}
	n.active = true
	n.timeout = timeout
	n.gen++
	tq.queue.insert(n)
	return nil
}

// Cancel 取消超时, id 仍然有效. 重复取消没有副作用.
func (tq *TQueue) Cancel(id int) error {
	if tq == nil {
		return timerapi.ErrInvalidArgument
	}
	if !tq.valid(id) {
		log.Error("Invalid timer id %v", id)
		return timerapi.ErrInvalidArgument
	}
	n := &tq.nodes[id]
	if n.active {
		tq.queue.remove(n)
	}
	n.active = false
	return nil
}

// Update 按 (deadline, id) 顺序执行所有 deadline <= now 的回调, 周期超时前进一个周期后重新入队.
// 返回下一个到期时间, 没有待触发的超时时返回 0.
func (tq *TQueue) Update(now uint64) (uint64, error) {
	if tq == nil {
		return 0, timerapi.ErrInvalidArgument
	}
	for {
		n, ok := tq.queue.peekMin()
		if !ok || n.timeout.AbsTime > now {
			break
		}

		// 回调期间节点保留在索引中, 回调可以安全地取消或重新注册它
		gen := n.gen
		if cb := n.timeout.Callback; cb != nil {
			cb(n.timeout.Token)
		}

		// 回调取消了它, 或者已经用新的超时重新注册
		if !n.active || n.gen != gen {
			continue
		}

		tq.queue.remove(n)
		if n.timeout.Period > 0 {
			// 只前进一个周期, 落后太多时会在后续 Update 中立即再次触发
			n.timeout.AbsTime += n.timeout.Period
			tq.queue.insert(n)
		} else {
			n.active = false
		}
	}
	return tq.peekNext(), nil
}

// Next 返回最早的到期时间, 不触发任何回调. 队列为空时返回 0.
func (tq *TQueue) Next() (uint64, error) {
	if tq == nil {
		return 0, timerapi.ErrInvalidArgument
	}
	return tq.peekNext(), nil
}

// peekNext 返回索引头部的到期时间
func (tq *TQueue) peekNext() uint64 {
	n, ok := tq.queue.peekMin()
	if !ok {
		return 0
	}
	return n.timeout.AbsTime
}

// Allocated 检查 id 是否已分配
func (tq *TQueue) Allocated(id int) bool {
	return tq != nil && tq.valid(id) && tq.nodes[id].allocated
}

// Active 检查 id 是否有待触发的超时
func (tq *TQueue) Active(id int) bool {
	return tq != nil && tq.valid(id) && tq.nodes[id].active
}

// Timeout 返回 id 当前注册的超时
func (tq *TQueue) Timeout(id int) (timerapi.Timeout, bool) {
	if !tq.Active(id) {
		return timerapi.Timeout{}, false
	}
	return tq.nodes[id].timeout, true
}

// Pending 返回待触发的超时数量
func (tq *TQueue) Pending() int {
	if tq == nil {
		return 0
	}
	return tq.queue.len()
}

// Deadlines 按到期顺序返回所有待触发超时的 id
func (tq *TQueue) Deadlines() []int {
	if tq == nil {
		return nil
	}
	ids := make([]int, 0, tq.queue.len())
	tq.queue.ascend(func(n *node) bool {
		ids = append(ids, n.id)
		return true
	})
	return ids
}
