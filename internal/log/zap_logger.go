package log

import "go.uber.org/zap"

// ZapLogger 把日志转发到 zap
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger 构造函数, logger 为 nil 时使用 zap.NewNop
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z *ZapLogger) Debug(args ...any) {
	z.sugar.Debug(FormatArgs(args...))
}

func (z *ZapLogger) Info(args ...any) {
	z.sugar.Info(FormatArgs(args...))
}

func (z *ZapLogger) Error(args ...any) {
	z.sugar.Error(FormatArgs(args...))
}

func (z *ZapLogger) Fatal(args ...any) {
	z.sugar.Fatal(FormatArgs(args...))
}

// Sync 刷新缓冲区
func (z *ZapLogger) Sync() error {
	return z.sugar.Sync()
}
