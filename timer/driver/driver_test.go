package driver

import (
	"testing"
	"time"

	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// irqRaised 非阻塞地检查中断线
func irqRaised(line timerapi.IRQLine) bool {
	select {
	case <-line.IRQ():
		return true
	default:
		return false
	}
}

func TestTicks(t *testing.T) {
	assert.Equal(t, uint64(24), NsToTicks(1000, 24_000_000))
	assert.Equal(t, uint64(1000), TicksToNs(24, 24_000_000))
	assert.Equal(t, uint64(0), TicksToNs(5, 0))
	assert.Equal(t, uint64(0xffff), mask(16))
	assert.Equal(t, ^uint64(0), mask(64))
	assert.Equal(t, ^uint64(0), NsToTicks(^uint64(0), 2*timerapi.NsInS))
}

func TestManualClock(t *testing.T) {
	c := NewManualClock()
	assert.Equal(t, uint64(0), c.Now())
	c.Advance(time.Microsecond)
	c.Advance(-time.Second)
	assert.Equal(t, uint64(1000), c.Now())
	require.NoError(t, c.Set(5000))
	assert.Equal(t, uint64(5000), c.Now())
	assert.True(t, timerapi.IsKind(c.Set(10), timerapi.ErrTimeInPast))
}

func TestUpCounter(t *testing.T) {
	t.Run("Invalid Options", func(t *testing.T) {
		c := NewManualClock()
		_, err := NewUpCounter(c, WithBitWidth(20))
		assert.True(t, timerapi.IsKind(err, timerapi.ErrInvalidArgument))
		_, err = NewUpCounter(c, WithFrequency(0))
		assert.True(t, timerapi.IsKind(err, timerapi.ErrInvalidArgument))
		_, err = NewUpCounter(nil)
		assert.True(t, timerapi.IsKind(err, timerapi.ErrInvalidArgument))
	})

	t.Run("Overflow", func(t *testing.T) {
		c := NewManualClock()
		u, err := NewUpCounter(c, WithBitWidth(16), WithFrequency(1_000_000))
		require.NoError(t, err)
		defer u.Close()
		require.NoError(t, u.Start())

		c.Advance(70 * time.Millisecond)
		assert.True(t, u.OverflowPending())
		assert.True(t, irqRaised(u))
		assert.Equal(t, uint64(70_000-65_536), u.Ticks())
		now, err := u.GetTime()
		require.NoError(t, err)
		assert.Equal(t, uint64(4_464_000), now)

		ev, err := u.HandleIRQ()
		require.NoError(t, err)
		assert.True(t, ev.Has(timerapi.EventOverflow))
		assert.False(t, ev.Has(timerapi.EventTimeout))
		assert.False(t, u.OverflowPending())
	})

	t.Run("Relative", func(t *testing.T) {
		c := NewManualClock()
		u, err := NewUpCounter(c)
		require.NoError(t, err)
		require.NoError(t, u.Start())
		require.NoError(t, u.SetTimeout(uint64(time.Millisecond), timerapi.TimeoutRelative))

		c.Advance(999 * time.Microsecond)
		assert.False(t, irqRaised(u))
		c.Advance(time.Microsecond)
		assert.True(t, irqRaised(u))
		ev, err := u.HandleIRQ()
		require.NoError(t, err)
		assert.Equal(t, timerapi.EventTimeout, ev)

		// 一次性超时不会再次触发
		c.Advance(time.Second)
		ev, err = u.HandleIRQ()
		require.NoError(t, err)
		assert.False(t, ev.Has(timerapi.EventTimeout))
	})

	t.Run("Periodic", func(t *testing.T) {
		c := NewManualClock()
		u, err := NewUpCounter(c, WithBitWidth(64))
		require.NoError(t, err)
		require.NoError(t, u.SetTimeout(uint64(time.Millisecond), timerapi.TimeoutPeriodic))
		for i := 0; i < 3; i++ {
			c.Advance(time.Millisecond)
			ev, err := u.HandleIRQ()
			require.NoError(t, err)
			assert.Equal(t, timerapi.EventTimeout, ev)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		c := NewManualClock()
		u, err := NewUpCounter(c, WithBitWidth(16), WithFrequency(1_000_000))
		require.NoError(t, err)
		assert.True(t, timerapi.IsKind(u.SetTimeout(1, timerapi.TimeoutAbsolute), timerapi.ErrUnsupported))
		assert.True(t, timerapi.IsKind(u.SetTimeout(uint64(time.Second), timerapi.TimeoutRelative), timerapi.ErrUnsupported))
		assert.True(t, timerapi.IsKind(u.SetTimeout(0, timerapi.TimeoutPeriodic), timerapi.ErrInvalidArgument))
		assert.True(t, timerapi.IsKind(u.SetTimeout(1, timerapi.TimeoutType(9)), timerapi.ErrInvalidArgument))
		assert.False(t, u.Properties().Supports(timerapi.TimeoutAbsolute))
	})

	t.Run("Stop Freezes", func(t *testing.T) {
		c := NewManualClock()
		u, err := NewUpCounter(c, WithFrequency(1_000_000))
		require.NoError(t, err)
		require.NoError(t, u.Start())
		require.NoError(t, u.SetTimeout(uint64(time.Millisecond), timerapi.TimeoutRelative))
		c.Advance(500 * time.Microsecond)
		require.NoError(t, u.Stop())
		c.Advance(time.Second)
		now, err := u.GetTime()
		require.NoError(t, err)
		assert.Equal(t, uint64(500_000), now)
		assert.False(t, irqRaised(u))
	})
}

func TestDownCounter(t *testing.T) {
	c := NewManualClock()
	d, err := NewDownCounter(c, WithBitWidth(16))
	require.NoError(t, err)
	require.NoError(t, d.Start())
	assert.Equal(t, uint32(0xffffffff), d.Value())

	c.Advance(10 * time.Microsecond)
	assert.Equal(t, uint32(0xffffffff-10), d.Value())
	assert.Equal(t, uint64(10), d.Ticks())
	now, err := d.GetTime()
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), now)

	props := d.Properties()
	assert.False(t, props.UpCounter)
	assert.Equal(t, uint32(32), props.BitWidth)

	assert.True(t, timerapi.IsKind(d.SetTimeout(5*timerapi.NsInS*1000, timerapi.TimeoutRelative), timerapi.ErrUnsupported))
	assert.True(t, timerapi.IsKind(d.SetTimeout(5, timerapi.TimeoutAbsolute), timerapi.ErrUnsupported))

	require.NoError(t, d.SetTimeout(uint64(time.Millisecond), timerapi.TimeoutRelative))
	c.Advance(time.Millisecond)
	ev, err := d.HandleIRQ()
	require.NoError(t, err)
	assert.Equal(t, timerapi.EventTimeout, ev)
}

func TestCompareTimer(t *testing.T) {
	c := NewManualClock()
	ct, err := NewCompareTimer(c, WithFrequency(1_000_000))
	require.NoError(t, err)
	require.NoError(t, ct.Start())
	c.Advance(time.Millisecond)

	assert.True(t, timerapi.IsKind(ct.SetTimeout(10, timerapi.TimeoutAbsolute), timerapi.ErrTimeInPast))
	assert.True(t, timerapi.IsKind(ct.SetTimeout(10, timerapi.TimeoutPeriodic), timerapi.ErrUnsupported))

	require.NoError(t, ct.SetTimeout(2_000_000, timerapi.TimeoutAbsolute))
	c.Advance(500 * time.Microsecond)
	assert.False(t, irqRaised(ct))
	c.Advance(500 * time.Microsecond)
	assert.True(t, irqRaised(ct))

	// 恰好等于当前时间的绝对超时立即触发
	now, err := ct.GetTime()
	require.NoError(t, err)
	_, err = ct.HandleIRQ()
	require.NoError(t, err)
	require.NoError(t, ct.SetTimeout(now, timerapi.TimeoutAbsolute))
	assert.True(t, irqRaised(ct))
}

func TestHostTimer(t *testing.T) {
	h := NewHostTimer()
	assert.True(t, timerapi.IsKind(h.SetTimeout(1, timerapi.TimeoutRelative), timerapi.ErrInvalidArgument))
	require.NoError(t, h.Start())
	defer h.Stop()

	t0, err := h.GetTime()
	require.NoError(t, err)
	require.NoError(t, h.SetTimeout(uint64(5*time.Millisecond), timerapi.TimeoutRelative))
	select {
	case <-h.IRQ():
	case <-time.After(time.Second):
		t.Fatal("host timer did not fire")
	}
	ev, err := h.HandleIRQ()
	require.NoError(t, err)
	assert.Equal(t, timerapi.EventTimeout, ev)
	t1, err := h.GetTime()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, t1-t0, uint64(5*time.Millisecond))

	assert.True(t, timerapi.IsKind(h.SetTimeout(0, timerapi.TimeoutAbsolute), timerapi.ErrTimeInPast))

	t.Run("Periodic", func(t *testing.T) {
		require.NoError(t, h.SetTimeout(uint64(2*time.Millisecond), timerapi.TimeoutPeriodic))
		for i := 0; i < 3; i++ {
			select {
			case <-h.IRQ():
			case <-time.After(time.Second):
				t.Fatal("periodic host timer stalled")
			}
			_, err := h.HandleIRQ()
			require.NoError(t, err)
		}
		require.NoError(t, h.Stop())
	})
}
