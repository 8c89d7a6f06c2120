package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/compozy/triggers/engine/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLinkCache(t *testing.T) {
	t.Run("Should reuse the first lookup for later jobs of the same run", func(t *testing.T) {
		resolver := &countingResolver{}
		cache, err := NewLinkCache(resolver, 8)
		require.NoError(t, err)

		first, err := cache.Resolve(context.Background(), "run-1")
		require.NoError(t, err)
		second, err := cache.Resolve(context.Background(), "run-1")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.EqualValues(t, 1, resolver.calls.Load())
	})
	t.Run("Should collapse concurrent misses into one lookup", func(t *testing.T) {
		resolver := &countingResolver{delay: 20 * time.Millisecond}
		cache, err := NewLinkCache(resolver, 8)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := cache.Resolve(context.Background(), "run-1")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, resolver.calls.Load())
	})
	t.Run("Should not cache unresolved runs", func(t *testing.T) {
		resolver := &countingResolver{err: trigger.ErrRunNotFound}
		cache, err := NewLinkCache(resolver, 8)
		require.NoError(t, err)

		_, err = cache.Resolve(context.Background(), "run-x")
		assert.ErrorIs(t, err, trigger.ErrRunNotFound)
		_, err = cache.Resolve(context.Background(), "run-x")
		assert.ErrorIs(t, err, trigger.ErrRunNotFound)

		assert.EqualValues(t, 2, resolver.calls.Load())
		assert.Zero(t, cache.Len())
	})
	t.Run("Should evict beyond capacity", func(t *testing.T) {
		resolver := &countingResolver{}
		cache, err := NewLinkCache(resolver, 1)
		require.NoError(t, err)
		_, _ = cache.Resolve(context.Background(), "a")
		_, _ = cache.Resolve(context.Background(), "b")
		_, _ = cache.Resolve(context.Background(), "a")
		assert.EqualValues(t, 3, resolver.calls.Load())
	})
}

func TestAuditor(t *testing.T) {
	newDispatcher := func(t *testing.T, resolver RunResolver, store AuditStore) *Dispatcher {
		t.Helper()
		cache, err := NewLinkCache(resolver, 8)
		require.NoError(t, err)
		reporter := &MockReporter{}
		reporter.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		return NewDispatcher(reporter, Collaborators{}, WithAuditor(NewAuditor(cache, store)))
	}

	t.Run("Should audit two elements of one run with a single lookup", func(t *testing.T) {
		resolver := &countingResolver{}
		store := &memoryAuditStore{}
		d := newDispatcher(t, resolver, store)

		_, err := d.Handle(context.Background(), &Job{Kind: KindLogActivity, RunID: "run-1", ElementID: "task-a"})
		require.NoError(t, err)
		d.Wait()
		_, err = d.Handle(context.Background(), &Job{Kind: KindSendEmail, RunID: "run-1", ElementID: "task-b"})
		require.NoError(t, err)
		d.Wait()

		entries := store.all()
		require.Len(t, entries, 2)
		assert.EqualValues(t, 1, resolver.calls.Load())
		assert.Equal(t, "exec-1", entries[0].ExecutionID.String())
		assert.Equal(t, "def-1", entries[0].DefinitionID)
		assert.Equal(t, "log_activity", entries[0].ElementType)
		assert.Equal(t, OutcomeSkipped, entries[0].Outcome)
	})
	t.Run("Should skip jobs without an element id", func(t *testing.T) {
		resolver := &countingResolver{}
		store := &memoryAuditStore{}
		d := newDispatcher(t, resolver, store)

		_, err := d.Handle(context.Background(), &Job{Kind: KindLogActivity, RunID: "run-1"})
		require.NoError(t, err)
		d.Wait()

		assert.Empty(t, store.all())
		assert.Zero(t, resolver.calls.Load())
	})
	t.Run("Should swallow audit write and lookup errors", func(t *testing.T) {
		store := &memoryAuditStore{err: errors.New("disk full")}
		d := newDispatcher(t, &countingResolver{}, store)
		report, err := d.Handle(context.Background(), &Job{Kind: KindLogActivity, RunID: "r", ElementID: "e"})
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, report.Outcome)
		d.Wait()

		d = newDispatcher(t, &countingResolver{err: errors.New("db down")}, &memoryAuditStore{})
		_, err = d.Handle(context.Background(), &Job{Kind: KindLogActivity, RunID: "r", ElementID: "e"})
		require.NoError(t, err)
		d.Wait()
	})
}
