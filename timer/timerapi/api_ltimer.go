package timerapi

// LogicalTimer 逻辑定时器, 把一个或多个硬件定时器组合成统一的时间源.
// 同一时刻只能有一个超时处于设置状态.
type LogicalTimer interface {
	// GetTime 返回自固定起点以来单调递增的纳秒数
	GetTime() (uint64, error)

	// GetResolution 返回 GetTime 的精度(ns)
	GetResolution() (uint64, error)

	// SetTimeout 设置下一次中断. 中断可能比请求的时间更早到达.
	SetTimeout(ns uint64, typ TimeoutType) error

	// HandleIRQ 每次硬件中断都必须调用一次
	HandleIRQ() error

	// Reset 停止并从 0 重新启动定时器
	Reset() error

	// Destroy 关闭设备, 释放资源
	Destroy()

	// IRQs 返回所有需要监听的中断通道
	IRQs() []<-chan struct{}
}
