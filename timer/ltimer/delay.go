package ltimer

import (
	"context"
	"runtime"

	"github.com/lonng/platsupport/internal/env"
	"github.com/lonng/platsupport/internal/log"
	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/pingcap/errors"
	"golang.org/x/time/rate"
)

// NsDelay 忙等 ns 纳秒. 时间没有前进时按 env.DelayLogEvery 限速输出调试日志.
func NsDelay(ctx context.Context, lt timerapi.LogicalTimer, ns uint64) error {
	start, err := lt.GetTime()
	if err != nil {
		return errors.Trace(err)
	}
	limiter := rate.NewLimiter(rate.Every(env.DelayLogEvery), 1)
	for {
		now, err := lt.GetTime()
		if err != nil {
			return errors.Trace(err)
		}
		if now-start >= ns {
			return nil
		}
		if now == start && limiter.Allow() {
			log.Debug("Time doesn't appear to be changing, still at %v", now)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
}

// UsDelay 忙等若干微秒
func UsDelay(ctx context.Context, lt timerapi.LogicalTimer, us uint64) error {
	return NsDelay(ctx, lt, us*timerapi.NsInUs)
}

// MsDelay 忙等若干毫秒
func MsDelay(ctx context.Context, lt timerapi.LogicalTimer, ms uint64) error {
	return NsDelay(ctx, lt, ms*timerapi.NsInMs)
}

// SDelay 忙等若干秒
func SDelay(ctx context.Context, lt timerapi.LogicalTimer, s uint64) error {
	return NsDelay(ctx, lt, s*timerapi.NsInS)
}
