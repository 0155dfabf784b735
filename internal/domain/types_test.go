package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestStatus_String(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "assigned", StatusAssigned.String())
	assert.Equal(t, "dispatched", StatusDispatched.String())
	assert.Equal(t, "unknown", RequestStatus(99).String())
}
