package timerapi

import "github.com/pingcap/errors"

// Errors that could be occurred during timer operations.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("out of timer client ids")
	ErrAddressInUse      = errors.New("timer id already in use")
	ErrTimeInPast        = errors.New("timeout is in the past")
	ErrUnsupported       = errors.New("timer mode not supported")
	ErrOutOfMemory       = errors.New("out of memory")
)

// IsKind 检查 err 的根因是否为 kind
func IsKind(err, kind error) bool {
	return err != nil && errors.Cause(err) == kind
}
