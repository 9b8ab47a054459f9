package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition_HappyPath(t *testing.T) {
	path := []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, CanTransition(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
	}
}

func TestCanTransition_NoSkippingForward(t *testing.T) {
	assert.False(t, CanTransition(StatusPending, StatusShipped))
	assert.False(t, CanTransition(StatusPending, StatusDelivered))
	assert.False(t, CanTransition(StatusConfirmed, StatusDelivered))
}

func TestCanTransition_NoGoingBack(t *testing.T) {
	assert.False(t, CanTransition(StatusConfirmed, StatusPending))
	assert.False(t, CanTransition(StatusShipped, StatusProcessing))
	assert.False(t, CanTransition(StatusDelivered, StatusShipped))
}

func TestCanTransition_Cancellation(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusConfirmed, StatusCancelled))
	assert.True(t, CanTransition(StatusProcessing, StatusCancelled))

	// Once shipped, cancellation is no longer possible.
	assert.False(t, CanTransition(StatusShipped, StatusCancelled))
	assert.False(t, CanTransition(StatusDelivered, StatusCancelled))
}

func TestCanTransition_Refunds(t *testing.T) {
	assert.True(t, CanTransition(StatusConfirmed, StatusRefunded))
	assert.True(t, CanTransition(StatusProcessing, StatusRefunded))
	assert.True(t, CanTransition(StatusShipped, StatusRefunded))

	assert.False(t, CanTransition(StatusPending, StatusRefunded))
	assert.False(t, CanTransition(StatusDelivered, StatusRefunded))
}

func TestCanTransition_TerminalStatusesAdmitNothing(t *testing.T) {
	all := []Status{
		StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded,
	}
	for _, terminal := range []Status{StatusDelivered, StatusCancelled, StatusRefunded} {
		require.True(t, terminal.Terminal())
		for _, to := range all {
			assert.False(t, CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
}

func TestCanTransition_SameStatusNotInTable(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped} {
		assert.False(t, CanTransition(s, s))
	}
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("SHIPPED")
	require.True(t, ok)
	assert.Equal(t, StatusShipped, s)

	_, ok = ParseStatus("shipped")
	assert.False(t, ok)
	_, ok = ParseStatus("")
	assert.False(t, ok)
}

func TestParsePaymentMethod(t *testing.T) {
	m, ok := ParsePaymentMethod("cod")
	require.True(t, ok)
	assert.Equal(t, MethodCOD, m)

	m, ok = ParsePaymentMethod("gateway")
	require.True(t, ok)
	assert.Equal(t, MethodGateway, m)

	_, ok = ParsePaymentMethod("COD")
	assert.False(t, ok)
}
