package log

// Logger represents the log interface
type Logger interface {
	Debug(args ...any)
	Info(args ...any)
	Error(args ...any)
	Fatal(args ...any)
}

func init() {
	SetLogger(NewConsoleLogger())
}

var (
	Debug func(args ...any)
	Info  func(args ...any)
	Error func(args ...any)
	Fatal func(args ...any)
)

// SetLogger rewrites the default logger
func SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	Debug = logger.Debug
	Info = logger.Info
	Error = logger.Error
	Fatal = logger.Fatal
}
