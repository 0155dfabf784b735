package benchmark

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/federicogiustii/carbonshift/internal/catalog"
	"github.com/federicogiustii/carbonshift/internal/domain"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.LoadCatalog(strings.NewReader("name,error,duration\nlow,5,1\nmedium,2,2\nhigh,0,3\n"))
	require.NoError(t, err)
	return cat
}

func TestAssign_NaiveRespectsSlotBounds(t *testing.T) {
	cat := testCatalog(t)
	requests := []domain.Request{
		{ID: "r1", Deadline: 5},
		{ID: "r2", Deadline: 2},
	}
	rng := rand.New(rand.NewSource(7))

	assignment, err := Assign(requests, ModeNaive, 10, cat, 3, rng)
	require.NoError(t, err)

	r1 := assignment["r1"]
	assert.GreaterOrEqual(t, r1.Slot, 3)
	assert.LessOrEqual(t, r1.Slot, 5)

	// r2's deadline (2) is before currentTick (3): lower clamps to upper.
	r2 := assignment["r2"]
	assert.Equal(t, 2, r2.Slot)
}

func TestAssign_FixedModeIgnoresDeadline(t *testing.T) {
	cat := testCatalog(t)
	requests := []domain.Request{{ID: "r1", Deadline: 0}}

	assignment, err := Assign(requests, ModeHigh, 10, cat, 4, nil)
	require.NoError(t, err)

	choice := assignment["r1"]
	assert.Equal(t, "high", choice.Strategy)
	assert.Equal(t, 5, choice.Slot) // (currentTick+1) % horizon, deadline ignored
}

func TestAssign_UnknownFixedModeErrors(t *testing.T) {
	cat := testCatalog(t)
	_, err := Assign([]domain.Request{{ID: "r1"}}, Mode("nonexistent"), 10, cat, 0, nil)
	assert.Error(t, err)
}

func TestAssign_NoRequestsIsNotAnError(t *testing.T) {
	cat, err := catalog.LoadCatalog(strings.NewReader("name,error,duration\nx,0,1\n"))
	require.NoError(t, err)
	_, err = Assign(nil, ModeNaive, 10, cat, 0, nil)
	assert.NoError(t, err) // no requests, nothing to assign, not an error
}
