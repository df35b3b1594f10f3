package timerapi

// Event 驱动在处理中断时报告的事件
type Event uint32

const (
	// EventTimeout 超时到期
	EventTimeout Event = 1 << iota
	// EventOverflow 自由计数器回绕
	EventOverflow
)

// Has 检查事件集合中是否包含 e
func (ev Event) Has(e Event) bool {
	return ev&e != 0
}

// Properties 硬件定时器的能力描述
type Properties struct {
	UpCounter        bool   // 计数器是否向上计数
	Timeouts         bool   // 是否支持超时
	AbsoluteTimeouts bool   // 是否支持绝对超时
	RelativeTimeouts bool   // 是否支持相对超时
	PeriodicTimeouts bool   // 是否支持周期超时
	BitWidth         uint32 // 自由计数器的位宽
	IRQs             int    // 需要处理的中断数量
}

// Supports 检查是否支持某种超时类型
func (p Properties) Supports(typ TimeoutType) bool {
	if !p.Timeouts {
		return false
	}
	switch typ {
	case TimeoutAbsolute:
		return p.AbsoluteTimeouts
	case TimeoutRelative:
		return p.RelativeTimeouts
	case TimeoutPeriodic:
		return p.PeriodicTimeouts
	default:
		return false
	}
}

// Driver 硬件定时器驱动接口, 每种 SoC 定时器实现一次
type Driver interface {
	// Start 启动定时器
	Start() error

	// Stop 停止定时器
	Stop() error

	// GetTime 读取当前时间(ns), 窄位宽的计数器允许回绕
	GetTime() (uint64, error)

	// SetTimeout 设置下一次中断
	SetTimeout(ns uint64, typ TimeoutType) error

	// HandleIRQ 应答中断, 返回本次中断包含的事件
	HandleIRQ() (Event, error)

	// Properties 返回驱动的能力描述
	Properties() Properties
}

// Counter 位宽不足 64 位的驱动必须实现该接口, 以便逻辑定时器扩展成 64 位时间
type Counter interface {
	// Ticks 返回向上计数的原始计数值, 宽度为 BitWidth
	Ticks() uint64

	// Frequency 返回计数频率(Hz)
	Frequency() uint64

	// OverflowPending 检查是否有尚未应答的回绕中断
	OverflowPending() bool
}

// IRQLine 能够发出中断信号的驱动实现该接口
type IRQLine interface {
	// IRQ 设备产生中断时, 往该通道发送信号
	IRQ() <-chan struct{}
}
