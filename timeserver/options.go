package timeserver

import (
	"time"

	"github.com/lonng/platsupport/internal/env"
	"github.com/lonng/platsupport/timer/timemanager"
)

// Options 时间服务参数
type Options struct {
	Capacity int                  // 客户端定时器槽位总数
	Backlog  int                  // 任务队列长度
	NodeID   int64                // 生成客户端 ID 的节点号
	Manager  []timemanager.Option // 传给时间管理器的参数
}

// Option 修改参数的函数
type Option func(*Options)

// WithCapacity 设置槽位总数
func WithCapacity(n int) Option {
	return func(o *Options) {
		o.Capacity = n
	}
}

// WithBacklog 设置任务队列长度
func WithBacklog(n int) Option {
	return func(o *Options) {
		o.Backlog = n
	}
}

// WithNodeID 设置客户端 ID 的节点号
func WithNodeID(id int64) Option {
	return func(o *Options) {
		o.NodeID = id
	}
}

// WithSlack 透传给时间管理器
func WithSlack(d time.Duration) Option {
	return func(o *Options) {
		o.Manager = append(o.Manager, timemanager.WithSlack(d))
	}
}

// WithBackstop 透传给时间管理器
func WithBackstop(d time.Duration) Option {
	return func(o *Options) {
		o.Manager = append(o.Manager, timemanager.WithBackstop(d))
	}
}

func defaultOptions() Options {
	return Options{
		Capacity: env.DefaultCapacity,
		Backlog:  env.TaskBacklog,
	}
}
