package canopy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	aimock "github.com/verdantlabs/canopy/ai/mock"
	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/recovery"
	vecmock "github.com/verdantlabs/canopy/vector/mock"
)

func newTestSystem(t *testing.T) *System {
	t.Helper()
	s, err := NewSystem(t.TempDir(),
		WithAIProvider(aimock.NewMockProvider()),
		WithVectorStore(vecmock.NewMockStore()))
	require.NoError(t, err)
	return s
}

func TestNewSystem(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		s := newTestSystem(t)
		defer s.Close()

		assert.NotNil(t, s.ObjectRepository())
		assert.NotNil(t, s.ChunkRepository())
		assert.NotNil(t, s.EmbeddingLinkRepository())
		assert.NotNil(t, s.JobRepository())
		assert.NotNil(t, s.VectorStore())
		assert.NotNil(t, s.backend)
		assert.NotNil(t, s.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		s, err := NewSystem(tmpFile,
			WithAIProvider(aimock.NewMockProvider()),
			WithVectorStore(vecmock.NewMockStore()))
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestSystem_Close(t *testing.T) {
	s := newTestSystem(t)
	assert.NoError(t, s.Close())
}

func TestSystem_RecoveryConfigOption(t *testing.T) {
	s, err := NewSystem(t.TempDir(),
		WithAIProvider(aimock.NewMockProvider()),
		WithVectorStore(vecmock.NewMockStore()),
		WithRecoveryConfig(&recovery.Config{StalledThreshold: time.Millisecond}))
	require.NoError(t, err)
	defer s.Close()

	// A parsed object with no chunks that the default one-hour threshold
	// would ignore. The option's near-zero threshold must reach the service
	// created with a nil config.
	ctx := context.Background()
	object, err := s.ObjectRepository().CreateObject(ctx, &core.ContentObject{
		Type:   core.ObjectTypeNote,
		Status: core.StatusParsed,
	})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	report, err := s.NewRecoveryService(nil).PerformRecovery(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ObjectsReset)

	updated, err := s.ObjectRepository().GetObject(ctx, object.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusInitial, updated.Status)

	// An explicit config still wins over the option.
	explicit := s.NewRecoveryService(recovery.DefaultConfig())
	require.NotNil(t, explicit)
}

func TestSystem_FactoryMethods(t *testing.T) {
	s := newTestSystem(t)
	defer s.Close()

	t.Run("can create chunking pipeline", func(t *testing.T) {
		p, err := s.NewChunkingPipeline()
		require.NoError(t, err)
		require.NotNil(t, p)
		p.Release()
	})

	t.Run("can create recovery service", func(t *testing.T) {
		service := s.NewRecoveryService(nil)
		require.NotNil(t, service)
	})

	t.Run("can create reembedder", func(t *testing.T) {
		r, err := s.NewReembedder("embeddinggemma", nil, os.Stderr)
		require.NoError(t, err)
		require.NotNil(t, r)
	})
}
