package index

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIndex_PersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", FileName)

	idx, err := New(path)
	require.NoError(t, err)
	assert.Zero(t, idx.Len())

	idx.Set("task-1", "evt-1")
	idx.Set("task-2", "evt-2")
	idx.Remove("task-2")
	require.NoError(t, idx.Save())

	reloaded, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", reloaded.Get("task-1"))
	assert.Empty(t, reloaded.Get("task-2"))
}

func TestEventIndex_SaveSkipsCleanIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	idx, err := New(path)
	require.NoError(t, err)

	require.NoError(t, idx.Save())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing to write")
}

func TestEventIndex_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := New(path)
	assert.Error(t, err)
}

func TestEventIndex_Concurrent(t *testing.T) {
	idx, err := New(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			idx.Set(id, "evt")
			_ = idx.Get(id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 26, idx.Len())
}
