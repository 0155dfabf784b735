package requestpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/federicogiustii/carbonshift/internal/apierrors"
	"github.com/federicogiustii/carbonshift/internal/domain"
)

func TestPool_AdmitRejectsOutOfRangeDeadline(t *testing.T) {
	p := New(10)

	err := p.Admit(domain.Request{ID: "a", Deadline: -1})
	assert.ErrorIs(t, err, apierrors.ErrInvalidDeadline)

	err = p.Admit(domain.Request{ID: "b", Deadline: 10})
	assert.ErrorIs(t, err, apierrors.ErrInvalidDeadline)

	err = p.Admit(domain.Request{ID: "c", Deadline: 9})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Size())
}

func TestPool_DrainTakesAllAndResets(t *testing.T) {
	p := New(10)
	require.NoError(t, p.Admit(domain.Request{ID: "a", Deadline: 1}))
	require.NoError(t, p.Admit(domain.Request{ID: "b", Deadline: 2}))

	drained := p.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, p.Size())

	admitted, drainedCount := p.Stats()
	assert.EqualValues(t, 2, admitted)
	assert.EqualValues(t, 2, drainedCount)
}

func TestPool_RestoreUndoesADrain(t *testing.T) {
	p := New(10)
	require.NoError(t, p.Admit(domain.Request{ID: "a", Deadline: 1}))
	require.NoError(t, p.Admit(domain.Request{ID: "b", Deadline: 2}))

	drained := p.Drain()
	assert.Equal(t, 0, p.Size())

	p.Restore(drained)
	assert.Equal(t, 2, p.Size())

	admitted, drainedCount := p.Stats()
	assert.EqualValues(t, 2, admitted)
	assert.EqualValues(t, 0, drainedCount)
}

func TestPool_RestoreOfEmptySliceIsNoop(t *testing.T) {
	p := New(10)
	require.NoError(t, p.Admit(domain.Request{ID: "a", Deadline: 1}))
	p.Restore(nil)
	assert.Equal(t, 1, p.Size())
}

func TestPool_ConcurrentAdmit(t *testing.T) {
	p := New(1000)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = p.Admit(domain.Request{ID: string(rune('a' + i%26)), Deadline: i % 999})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, p.Size())
}
