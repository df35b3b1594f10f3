//go:build !linux

package driver

import "time"

var processStart = time.Now()

// monotonicNow 使用 time 包自带的单调时钟
func monotonicNow() (uint64, error) {
	return uint64(time.Since(processStart)), nil
}
