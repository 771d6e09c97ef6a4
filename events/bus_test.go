package events_test

import (
	"testing"

	"github.com/piazza-xyz/piazza-go/events"
	"github.com/stretchr/testify/require"
)

func TestOnUpsertsSingleEntryPerEvent(t *testing.T) {
	bus := events.New()

	var calls []string
	bus.On("login", func(payload any) { calls = append(calls, "first") })
	bus.On("login", func(payload any) { calls = append(calls, "second") })

	bus.Emit("login", nil)

	// Each callback fires exactly once and in registration order: a second
	// On for the same name must append, not register a duplicate entry.
	require.Equal(t, []string{"first", "second"}, calls)
}

func TestEmitPassesPayload(t *testing.T) {
	bus := events.New()

	var got any
	bus.On("code-sent", func(payload any) { got = payload })

	bus.Emit("code-sent", "john.doe@example.com")
	require.Equal(t, "john.doe@example.com", got)
}

func TestEmitUnknownEventIsNoop(t *testing.T) {
	bus := events.New()
	require.NotPanics(t, func() { bus.Emit("never-registered", nil) })
}

func TestClearDeactivatesCallbacks(t *testing.T) {
	bus := events.New()

	callsA := 0
	callsB := 0
	callsC := 0
	bus.On("eventA", func(payload any) { callsA++ })
	bus.On("eventB", func(payload any) { callsB++ })
	bus.On("eventC", func(payload any) { callsC++ })

	bus.Clear("eventA", "eventB")

	bus.Emit("eventA", nil)
	bus.Emit("eventB", nil)
	bus.Emit("eventC", nil)

	require.Zero(t, callsA)
	require.Zero(t, callsB)
	require.Equal(t, 1, callsC)
}

func TestClearPreservesEntryForFutureRegistrations(t *testing.T) {
	bus := events.New()

	calls := 0
	bus.On("login", func(payload any) { calls++ })
	bus.Clear("login")
	bus.On("login", func(payload any) { calls++ })

	bus.Emit("login", nil)
	require.Equal(t, 1, calls)
}

type scopedPayload struct {
	flowID string
	value  string
}

func (p scopedPayload) EventFlowID() string { return p.flowID }

func TestListenerReceivesPayload(t *testing.T) {
	bus := events.New()

	l := bus.Listen("login", "flow-1")
	defer l.Close()

	bus.Emit("login", scopedPayload{flowID: "flow-1", value: "ok"})

	select {
	case payload := <-l.C():
		require.Equal(t, "ok", payload.(scopedPayload).value)
	default:
		t.Fatal("expected a delivery")
	}
}

func TestListenerFiltersForeignFlows(t *testing.T) {
	bus := events.New()

	l := bus.Listen("login", "flow-1")
	defer l.Close()

	bus.Emit("login", scopedPayload{flowID: "flow-2"})
	require.Empty(t, l.C())

	// Unscoped payloads reach every listener of the event.
	bus.Emit("login", "legacy")
	require.Len(t, l.C(), 1)
}

func TestClosedListenerReceivesNothing(t *testing.T) {
	bus := events.New()

	l := bus.Listen("login", "flow-1")
	l.Close()
	l.Close() // idempotent

	bus.Emit("login", scopedPayload{flowID: "flow-1"})
	require.Empty(t, l.C())
}

func TestConcurrentFlowsDoNotCrossDeliver(t *testing.T) {
	bus := events.New()

	first := bus.Listen("login", "flow-1")
	defer first.Close()
	second := bus.Listen("login", "flow-2")
	defer second.Close()

	bus.Emit("login", scopedPayload{flowID: "flow-2", value: "for-second"})

	require.Empty(t, first.C())
	select {
	case payload := <-second.C():
		require.Equal(t, "for-second", payload.(scopedPayload).value)
	default:
		t.Fatal("second flow should have received its payload")
	}
}
