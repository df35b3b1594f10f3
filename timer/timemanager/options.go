package timemanager

import (
	"time"

	"github.com/lonng/platsupport/internal/env"
)

// Options 时间管理器参数
type Options struct {
	Slack    time.Duration // 新超时至少比已设置的硬件超时早这么多才重新设置
	Backstop time.Duration // 设置硬件超时时已经过期, 改为设置 now+Backstop
}

// Option 修改参数的函数
type Option func(*Options)

// WithSlack 设置重新设置硬件超时的容差
func WithSlack(d time.Duration) Option {
	return func(o *Options) {
		o.Slack = d
	}
}

// WithBackstop 设置补救延迟
func WithBackstop(d time.Duration) Option {
	return func(o *Options) {
		o.Backstop = d
	}
}

func defaultOptions() Options {
	return Options{
		Slack:    env.TimerSlack,
		Backstop: env.TimerBackstop,
	}
}
