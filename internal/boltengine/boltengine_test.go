package boltengine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpal/bitforge/pkg/kverrors"
	"github.com/nilotpal/bitforge/pkg/logger"
	"github.com/nilotpal/bitforge/pkg/options"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()

	o := options.New(options.WithDataDir(t.TempDir()))
	e, err := New(o, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestSetGetRemove(t *testing.T) {
	e := testEngine(t)

	require.NoError(t, e.Set("k", "v"))

	v, ok, err := e.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.NoError(t, e.Remove("k"))

	_, ok, err = e.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetMissingKey(t *testing.T) {
	e := testEngine(t)

	_, ok, err := e.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoveMissingKeyFails(t *testing.T) {
	e := testEngine(t)

	err := e.Remove("missing")
	require.True(t, kverrors.IsKeyNotFound(err))
}

func TestOverwrite(t *testing.T) {
	e := testEngine(t)

	require.NoError(t, e.Set("k", "v1"))
	require.NoError(t, e.Set("k", "v2"))

	v, ok, err := e.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)
}
