package tqueue

import "github.com/lonng/platsupport/timer/timerapi"

// node 超时槽位, 下标即 id
type node struct {
	id        int              // 槽位 ID, 排序时用于打破平局
	timeout   timerapi.Timeout // 超时详情
	allocated bool             // 是否已被客户端占用
	active    bool             // 是否在排序索引中
	gen       uint64           // 注册代数, 每次 register 加 1, 用于识别回调中的重新注册
}

// reset 清空超时信息, 保留 id
func (n *node) reset() {
	n.timeout = timerapi.Timeout{}
	n.active = false
}
