package etp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequestsResolveDeliversExactlyOnce(t *testing.T) {
	reqs := NewRequests()
	notify := reqs.Register(MessageId(1), time.Now().Add(time.Minute))
	require.Equal(t, 1, reqs.Len())

	reqs.Resolve(MessageId(1), DeliveryResult{Outcome: DeliverySuccess})
	require.Equal(t, 0, reqs.Len())

	select {
	case r := <-notify:
		require.Equal(t, DeliverySuccess, r.Outcome)
	default:
		t.Fatal("expected a result to be waiting")
	}

	// Resolving again (e.g. a duplicate Ack) must be a silent no-op: the
	// pending entry is already gone and there is nothing left to fire into.
	reqs.Resolve(MessageId(1), DeliveryResult{Outcome: DeliveryTimeout})
}

func TestRequestsExpireOverdue(t *testing.T) {
	reqs := NewRequests()
	past := time.Now().Add(-time.Second)
	future := time.Now().Add(time.Minute)

	overdue := reqs.Register(MessageId(1), past)
	fresh := reqs.Register(MessageId(2), future)

	expired := reqs.ExpireOverdue(time.Now())
	require.Equal(t, 1, expired)
	require.Equal(t, 1, reqs.Len())

	select {
	case r := <-overdue:
		require.Equal(t, DeliveryTimeout, r.Outcome)
	default:
		t.Fatal("expected the overdue request to resolve to a timeout")
	}
	select {
	case <-fresh:
		t.Fatal("the still-live request must not have resolved")
	default:
	}
}

func TestRequestsResolveUnknownIdIsNoop(t *testing.T) {
	reqs := NewRequests()
	require.NotPanics(t, func() {
		reqs.Resolve(MessageId(999), DeliveryResult{Outcome: DeliverySuccess})
	})
}
