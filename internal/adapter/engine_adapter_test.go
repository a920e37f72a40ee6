package adapter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "loadpath.dev/pkg/loadpath/internal/model"
)

func TestLocalEngine_Define(t *testing.T) {
	engine := NewLocalEngine()
	data := []byte("bytes of p.q.R")

	unit, err := engine.Define(context.Background(), "p.q.R", data, m.OriginIndex, "lib/app.jar")
	require.NoError(t, err)

	assert.Equal(t, "p.q.R", unit.Name)
	assert.Equal(t, len(data), unit.Size)
	assert.Equal(t, m.OriginIndex, unit.Origin)
	assert.Equal(t, m.Path("lib/app.jar"), unit.Source)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256(data)), unit.Digest)

	loaded, ok := engine.Loaded("p.q.R")
	require.True(t, ok)
	assert.Same(t, unit, loaded)
}

func TestLocalEngine_DefineIsOneShot(t *testing.T) {
	ctx := context.Background()
	engine := NewLocalEngine()

	first, err := engine.Define(ctx, "A", []byte("v1"), m.OriginIndex, "")
	require.NoError(t, err)

	_, err = engine.Define(ctx, "A", []byte("v2"), m.OriginFallback, "")
	require.ErrorIs(t, err, ErrDuplicateDefinition)

	loaded, ok := engine.Loaded("A")
	require.True(t, ok)
	assert.Same(t, first, loaded)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte("v1"))), loaded.Digest)
}

func TestLocalEngine_DigestTakenAtDefine(t *testing.T) {
	engine := NewLocalEngine()
	data := []byte("original")

	unit, err := engine.Define(context.Background(), "A", data, m.OriginIndex, "")
	require.NoError(t, err)

	data[0] = 'X'

	units := engine.Units()
	require.Len(t, units, 1)
	assert.Equal(t, unit.Digest, units[0].Digest)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte("original"))), units[0].Digest)
}

func TestLocalEngine_ConcurrentDefine(t *testing.T) {
	ctx := context.Background()
	engine := NewLocalEngine()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, err := engine.Define(ctx, "shared", []byte("x"), m.OriginIndex, ""); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Len(t, engine.Units(), 1)
}

func TestLocalEngine_UnitsSorted(t *testing.T) {
	ctx := context.Background()
	engine := NewLocalEngine()

	for _, name := range []string{"c.C", "a.A", "b.B"} {
		_, err := engine.Define(ctx, name, []byte(name), m.OriginFallback, "")
		require.NoError(t, err)
	}

	units := engine.Units()
	require.Len(t, units, 3)
	assert.Equal(t, "a.A", units[0].Name)
	assert.Equal(t, "b.B", units[1].Name)
	assert.Equal(t, "c.C", units[2].Name)
}

func TestLocalEngine_DefineRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewLocalEngine()

	_, err := engine.Define(ctx, "A", []byte("a"), m.OriginIndex, "")
	require.ErrorIs(t, err, context.Canceled)

	_, ok := engine.Loaded("A")
	assert.False(t, ok)
}
