//go:build linux

package driver

import "golang.org/x/sys/unix"

// monotonicNow 读取 CLOCK_MONOTONIC
func monotonicNow() (uint64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, err
	}
	return uint64(ts.Nano()), nil
}
