package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lonng/platsupport/timer/driver"
	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const imxLike = `
name = "imx"
capacity = 16

[timestamp]
kind = "upcounter"
bits = 32
frequency = 24000000

[timeout]
kind = "downcounter"
frequency = 1000000
`

func TestParse(t *testing.T) {
	t.Run("Split", func(t *testing.T) {
		cfg, err := Parse(imxLike)
		require.NoError(t, err)
		assert.Equal(t, "imx", cfg.Name)
		assert.Equal(t, 16, cfg.Capacity)
		assert.Equal(t, DeviceConfig{Kind: KindUpCounter, Bits: 32, Frequency: 24_000_000}, cfg.Timestamp)
		require.NotNil(t, cfg.Timeout)
		assert.Equal(t, KindDownCounter, cfg.Timeout.Kind)
		assert.True(t, cfg.Simulated())
	})

	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Parse("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.False(t, cfg.Simulated())
	})

	t.Run("Unknown Key", func(t *testing.T) {
		_, err := Parse("capacity = 4\nspeed = 3\n")
		assert.True(t, timerapi.IsKind(err, timerapi.ErrInvalidArgument))
	})

	t.Run("Unknown Kind", func(t *testing.T) {
		_, err := Parse("[timestamp]\nkind = \"rtc\"\n")
		assert.True(t, timerapi.IsKind(err, timerapi.ErrInvalidArgument))
	})

	t.Run("Bad Capacity", func(t *testing.T) {
		_, err := Parse("capacity = 0\n")
		assert.True(t, timerapi.IsKind(err, timerapi.ErrInvalidArgument))
	})

	t.Run("Syntax Error", func(t *testing.T) {
		_, err := Parse("capacity = = 3")
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imx.toml")
	require.NoError(t, os.WriteFile(path, []byte(imxLike), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "imx", cfg.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	t.Run("Needs Clock", func(t *testing.T) {
		cfg, err := Parse(imxLike)
		require.NoError(t, err)
		_, err = Open(cfg, nil)
		assert.True(t, timerapi.IsKind(err, timerapi.ErrInvalidArgument))
		_, err = Open(nil, nil)
		assert.True(t, timerapi.IsKind(err, timerapi.ErrInvalidArgument))
	})

	t.Run("Simulated", func(t *testing.T) {
		cfg, err := Parse(imxLike)
		require.NoError(t, err)
		clock := driver.NewManualClock()
		lt, err := Open(cfg, clock)
		require.NoError(t, err)
		defer lt.Destroy()
		assert.Len(t, lt.IRQs(), 2)

		clock.Advance(3 * time.Millisecond)
		now, err := lt.GetTime()
		require.NoError(t, err)
		assert.Equal(t, uint64(3*time.Millisecond), now)
	})

	t.Run("Host", func(t *testing.T) {
		lt, err := Open(Default(), nil)
		require.NoError(t, err)
		defer lt.Destroy()
		res, err := lt.GetResolution()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res)
	})

	t.Run("Compare", func(t *testing.T) {
		cfg, err := Parse("[timestamp]\nkind = \"compare\"\nfrequency = 1000000\n")
		require.NoError(t, err)
		lt, err := Open(cfg, driver.NewManualClock())
		require.NoError(t, err)
		defer lt.Destroy()
		assert.True(t, lt.Properties().AbsoluteTimeouts)
	})
}
