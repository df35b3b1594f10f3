package timerapi

import "strconv"

// 时间单位常量, 所有时间都以纳秒表示
const (
	NsInUs uint64 = 1000
	NsInMs uint64 = 1000 * NsInUs
	NsInS  uint64 = 1000 * NsInMs
)

// TimeoutType 超时类型
type TimeoutType int32

const (
	// TimeoutPeriodic 周期超时, 每隔 ns 触发一次
	TimeoutPeriodic TimeoutType = iota
	// TimeoutAbsolute 绝对超时, 在时间点 ns 触发
	TimeoutAbsolute
	// TimeoutRelative 相对超时, 在 ns 之后触发
	TimeoutRelative
)

// String 返回超时类型的名称
func (t TimeoutType) String() string {
	switch t {
	case TimeoutPeriodic:
		return "periodic"
	case TimeoutAbsolute:
		return "absolute"
	case TimeoutRelative:
		return "relative"
	default:
		return "TimeoutType(" + strconv.Itoa(int(t)) + ")"
	}
}

// Valid 检查超时类型是否合法
func (t TimeoutType) Valid() bool {
	return t == TimeoutPeriodic || t == TimeoutAbsolute || t == TimeoutRelative
}

// Callback 超时回调函数, 在 update 中同步执行, 不能阻塞
type Callback func(token any)

// Timeout 描述一个已注册的超时
type Timeout struct {
	AbsTime  uint64   // 绝对触发时间(ns)
	Period   uint64   // 周期(ns), 0 表示只触发一次
	Token    any      // 回调参数
	Callback Callback // 回调函数
}
