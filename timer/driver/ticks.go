package driver

import (
	"math"
	"math/bits"

	"github.com/lonng/platsupport/timer/timerapi"
)

// NsToTicks 把纳秒换算成 freq 下的计数值, 溢出时返回 MaxUint64
func NsToTicks(ns, freq uint64) uint64 {
	hi, lo := bits.Mul64(ns, freq)
	if hi >= timerapi.NsInS {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, timerapi.NsInS)
	return q
}

// TicksToNs 把计数值换算成纳秒, 溢出时返回 MaxUint64
func TicksToNs(ticks, freq uint64) uint64 {
	if freq == 0 {
		return 0
	}
	hi, lo := bits.Mul64(ticks, timerapi.NsInS)
	if hi >= freq {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, freq)
	return q
}

// mask 返回 bits 位全 1 的掩码
func mask(width uint32) uint64 {
	if width >= 64 {
		return math.MaxUint64
	}
	return 1<<width - 1
}
