package log

import (
	"log"
	"os"

	"github.com/lonng/platsupport/internal/env"
)

// ConsoleLogger writes to stdout through the standard logger
type ConsoleLogger log.Logger

func NewConsoleLogger() *ConsoleLogger {
	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile)
	return (*ConsoleLogger)(logger)
}

// Debug 只在调试模式下输出
func (c *ConsoleLogger) Debug(args ...any) {
	if !env.Debug {
		return
	}
	_ = (*log.Logger)(c).Output(2, "[DEBUG] "+FormatArgs(args...))
}

func (c *ConsoleLogger) Info(args ...any) {
	_ = (*log.Logger)(c).Output(2, FormatArgs(args...))
}

func (c *ConsoleLogger) Error(args ...any) {
	_ = (*log.Logger)(c).Output(2, "[ERROR] "+FormatArgs(args...))
}

func (c *ConsoleLogger) Fatal(args ...any) {
	_ = (*log.Logger)(c).Output(2, "[FATAL] "+FormatArgs(args...))
	os.Exit(1)
}
