package driver

// Options 模拟设备的参数
type Options struct {
	Name      string // 设备名, 只用于日志
	Frequency uint64 // 计数频率(Hz)
	BitWidth  uint32 // 计数器位宽
}

// Option 修改参数的函数
type Option func(*Options)

// WithName 设置设备名
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithFrequency 设置计数频率
func WithFrequency(hz uint64) Option {
	return func(o *Options) {
		o.Frequency = hz
	}
}

// WithBitWidth 设置计数器位宽, 只对 UpCounter 生效
func WithBitWidth(bits uint32) Option {
	return func(o *Options) {
		o.BitWidth = bits
	}
}

func buildOptions(defaults Options, opts []Option) Options {
	o := defaults
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
