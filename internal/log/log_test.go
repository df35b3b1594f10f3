package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFormat(t *testing.T) {
	err := errors.New("time in past")
	cases := []struct {
		format string
		args   []any
		want   string
	}{
		{"timer %v fired", []any{3}, "timer 3 fired"},
		{"armed", []any{100, 200}, "armed 100 200"},
		{"set timeout %v", []any{5, err}, "set timeout 5 - time in past"},
		{"set timeout error.", []any{err}, "set timeout error. - time in past"},
		{"100%% done", nil, "100% done"},
		{"%d%% of %v", []any{50, "slots"}, "50% of slots"},
		{"slot %v of %v", []any{1}, "slot 1 of %!v(MISSING)"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Format(c.format, c.args...), c.format)
	}
}

func TestFormatArgs(t *testing.T) {
	assert.Equal(t, "", FormatArgs())
	assert.Equal(t, "50%", FormatArgs("50%"))
	assert.Equal(t, "42", FormatArgs(42))
	assert.Equal(t, "server [a] closed", FormatArgs("server [%v] closed", "a"))
	assert.Equal(t, "7 8", FormatArgs(7, 8))
}

func TestCountVerbs(t *testing.T) {
	assert.Equal(t, 0, countVerbs("plain"))
	assert.Equal(t, 2, countVerbs("%v and %d"))
	assert.Equal(t, 1, countVerbs("%%%v"))
	assert.Equal(t, 1, countVerbs("trailing %"))
}

type recorder struct {
	lines []string
}

func (r *recorder) Debug(args ...any) { r.lines = append(r.lines, "D "+FormatArgs(args...)) }
func (r *recorder) Info(args ...any)  { r.lines = append(r.lines, "I "+FormatArgs(args...)) }
func (r *recorder) Error(args ...any) { r.lines = append(r.lines, "E "+FormatArgs(args...)) }
func (r *recorder) Fatal(args ...any) { r.lines = append(r.lines, "F "+FormatArgs(args...)) }

func TestSetLogger(t *testing.T) {
	defer SetLogger(NewConsoleLogger())

	r := &recorder{}
	SetLogger(r)
	SetLogger(nil)
	Debug("d")
	Info("slot %v", 1)
	Error("cancel error.", errors.New("invalid"))
	Fatal("f")
	assert.Equal(t, []string{"D d", "I slot 1", "E cancel error. - invalid", "F f"}, r.lines)
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	z := NewZapLogger(zap.New(core))
	z.Debug("debug %v", 1)
	z.Info("info")
	z.Error("error.", errors.New("boom"))

	entries := logs.All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		assert.Equal(t, "debug 1", entries[0].Message)
		assert.Equal(t, "info", entries[1].Message)
		assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
		assert.Equal(t, "error. - boom", entries[2].Message)
	}

	nop := NewZapLogger(nil)
	nop.Info("dropped")
	assert.NoError(t, nop.Sync())
}
