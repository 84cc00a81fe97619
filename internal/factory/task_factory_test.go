package factory

import (
	"NetProfiler/internal/config"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubWriter struct {
	kind   string
	closed *int
}

func (w *stubWriter) Type() string { return w.kind }
func (w *stubWriter) Write(context.Context, *Batch) error { return nil }
func (w *stubWriter) Close() error {
	*w.closed++
	return nil
}

func TestCreate(t *testing.T) {
	closed := 0
	RegisterWriter("stub-ok", func(def config.WriterDef) (Writer, error) {
		return &stubWriter{kind: def.Type, closed: &closed}, nil
	})
	RegisterWriter("stub-fail", func(config.WriterDef) (Writer, error) {
		return nil, errors.New("boom")
	})
	require.Contains(t, Registered(), "stub-ok")
	require.Panics(t, func() { RegisterWriter("stub-ok", nil) })

	cfg := &config.Config{Writers: []config.WriterDef{
		{Type: "stub-ok", Enabled: true},
		{Type: "stub-fail", Enabled: false},
	}}
	writers, err := Create(cfg)
	require.NoError(t, err)
	require.Len(t, writers, 1)
	require.Equal(t, "stub-ok", writers[0].Type())

	cfg.Writers[1].Enabled = true
	_, err = Create(cfg)
	require.ErrorContains(t, err, "boom")
	require.Equal(t, 1, closed, "writers built before the failure must be closed")

	_, err = Create(&config.Config{Writers: []config.WriterDef{{Type: "nope", Enabled: true}}})
	require.ErrorContains(t, err, "unknown writer type")
}

func TestCheckName(t *testing.T) {
	for _, name := range []string{"office", "capture-2024.05.01", "flows_v2"} {
		require.NoError(t, CheckName(name), name)
	}
	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`, "x\r\nBcc: y"} {
		require.ErrorIs(t, CheckName(name), ErrInvalidName, name)
	}
}
