package apierrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_MatchesWrappedSentinels(t *testing.T) {
	wrapped := fmt.Errorf("admitting request: %w", ErrInvalidDeadline)
	assert.Equal(t, KindInvalidDeadline, KindOf(wrapped))
}

func TestKindOf_UnknownErrorReturnsEmptyKind(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("unrelated failure")))
}

func TestKindOf_CoversEveryKind(t *testing.T) {
	cases := map[error]Kind{
		ErrInvalidDeadline:      KindInvalidDeadline,
		ErrCatalogMalformed:     KindCatalogMalformed,
		ErrNoFeasibleAssignment: KindNoFeasibleAssignment,
		ErrExecutorUnavailable:  KindExecutorUnavailable,
		ErrBusDisconnect:        KindBusDisconnect,
	}
	for err, want := range cases {
		assert.Equal(t, want, KindOf(err))
	}
}
