package ltimer

import "github.com/lonng/platsupport/timer/timerapi"

// Options 逻辑定时器参数
type Options struct {
	Name    string               // 名称, 只用于日志
	OnEvent func(timerapi.Event) // 每次处理中断后回调, 参数为所有驱动事件的并集
}

// Option 修改参数的函数
type Option func(*Options)

// WithName 设置名称
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithEventHandler 设置中断事件回调
func WithEventHandler(fn func(timerapi.Event)) Option {
	return func(o *Options) {
		o.OnEvent = fn
	}
}
