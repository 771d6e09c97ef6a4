// Package events implements the in-process event bus that bridges the
// externally-driven identity provider into the rest of the SDK. The provider
// integration layer registers callbacks with On and answers requests by
// calling Emit; the orchestrator consumes events through channel-backed
// Listeners so it can block on a flow's outcome.
package events

import "sync"

// Handler is a callback registered for a named event.
type Handler func(payload any)

// FlowScoped is implemented by payloads that belong to a single flow.
// Listeners created with a flow ID drop payloads scoped to a different flow,
// so two concurrent flows of the same type cannot cross-deliver results.
// An empty flow ID means the payload is not scoped and is delivered to every
// listener of the event.
type FlowScoped interface {
	EventFlowID() string
}

// listenerBuffer is the channel capacity of a Listener. Emit never blocks on
// a slow listener; overflowing deliveries are dropped.
const listenerBuffer = 16

type subscription struct {
	eventName string
	callbacks []Handler
	listeners []*Listener
}

// Bus is a named-event registry with synchronous dispatch. The zero value is
// not usable; create one with New.
type Bus struct {
	lock sync.Mutex
	subs []*subscription
}

func New() *Bus {
	return &Bus{}
}

func (b *Bus) find(eventName string) *subscription {
	for _, s := range b.subs {
		if s.eventName == eventName {
			return s
		}
	}
	return nil
}

func (b *Bus) upsert(eventName string) *subscription {
	if s := b.find(eventName); s != nil {
		return s
	}
	s := &subscription{eventName: eventName}
	b.subs = append(b.subs, s)
	return s
}

// On registers callback under eventName, creating the subscription entry on
// first use and appending on subsequent calls. One entry per event name.
func (b *Bus) On(eventName string, callback Handler) {
	b.lock.Lock()
	defer b.lock.Unlock()

	s := b.upsert(eventName)
	s.callbacks = append(s.callbacks, callback)
}

// Emit synchronously invokes every callback registered under eventName in
// registration order, then fans the payload out to listeners. Panics raised
// by a callback propagate to the caller.
func (b *Bus) Emit(eventName string, payload any) {
	b.lock.Lock()
	s := b.find(eventName)
	if s == nil {
		b.lock.Unlock()
		return
	}
	callbacks := make([]Handler, len(s.callbacks))
	copy(callbacks, s.callbacks)
	listeners := make([]*Listener, len(s.listeners))
	copy(listeners, s.listeners)
	b.lock.Unlock()

	for _, cb := range callbacks {
		cb(payload)
	}
	for _, l := range listeners {
		l.deliver(payload)
	}
}

// Clear empties the callback list of each named event, preserving the
// subscription entry for future registrations. Channel listeners are not
// affected; their lifetime is owned by whoever created them.
func (b *Bus) Clear(eventNames ...string) {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, name := range eventNames {
		if s := b.find(name); s != nil {
			s.callbacks = nil
		}
	}
}

// Listen returns a channel-backed listener for eventName scoped to flowID.
// Close the listener when the flow settles.
func (b *Bus) Listen(eventName, flowID string) *Listener {
	l := &Listener{
		bus:       b,
		eventName: eventName,
		flowID:    flowID,
		ch:        make(chan any, listenerBuffer),
	}

	b.lock.Lock()
	s := b.upsert(eventName)
	s.listeners = append(s.listeners, l)
	b.lock.Unlock()

	return l
}

// Listener receives payloads for one event name on behalf of one flow.
type Listener struct {
	bus       *Bus
	eventName string
	flowID    string

	once sync.Once
	ch   chan any
}

// C is the delivery channel. It is never closed; receive with a select
// against the flow's context.
func (l *Listener) C() <-chan any {
	return l.ch
}

func (l *Listener) deliver(payload any) {
	if scoped, ok := payload.(FlowScoped); ok && l.flowID != "" {
		if id := scoped.EventFlowID(); id != "" && id != l.flowID {
			return
		}
	}
	select {
	case l.ch <- payload:
	default:
	}
}

// Close detaches the listener from the bus. Safe to call more than once.
func (l *Listener) Close() {
	l.once.Do(func() {
		l.bus.lock.Lock()
		defer l.bus.lock.Unlock()

		s := l.bus.find(l.eventName)
		if s == nil {
			return
		}
		for i, other := range s.listeners {
			if other == l {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	})
}
