package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sinks(t *testing.T) map[string]Sink {
	t.Helper()
	return map[string]Sink{
		"localfs": LocalFS{Root: t.TempDir()},
		"memory":  NewMemory(),
	}
}

func TestSink_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, sink := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			key := Key("sim-1", "2", "daily_results.csv")
			assert.False(t, sink.Exists(ctx, key))

			require.NoError(t, sink.Put(ctx, key, strings.NewReader("Date,Precipitation\n")))
			assert.True(t, sink.Exists(ctx, key))

			rc, err := sink.Open(ctx, key)
			require.NoError(t, err)
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, "Date,Precipitation\n", string(b))

			require.NoError(t, sink.Remove(ctx, key))
			assert.False(t, sink.Exists(ctx, key))
			require.NoError(t, sink.Remove(ctx, key))

			_, err = sink.Open(ctx, key)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSink_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	for name, sink := range sinks(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "../outside.csv", "a/../../b", "a//b"} {
				assert.Error(t, sink.Put(ctx, key, strings.NewReader("x")), key)
				assert.False(t, sink.Exists(ctx, key), key)
			}
		})
	}
}

func TestLocalFS_PutLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	sink := LocalFS{Root: root}
	require.NoError(t, sink.Put(context.Background(), "run/out.csv", strings.NewReader("data")))

	entries, err := os.ReadDir(filepath.Join(root, "run"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.csv", entries[0].Name())
}

func TestMemory_Keys(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "b/2", strings.NewReader("")))
	require.NoError(t, m.Put(ctx, "a/1", strings.NewReader("")))
	assert.Equal(t, []string{"a/1", "b/2"}, m.Keys())
}
