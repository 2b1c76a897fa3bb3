package session

import "github.com/srg/blesession/transport"

// Driver callbacks are converted into typed events and delivered to the
// session's single-consumer queue; the run loop is the only goroutine that
// applies them. Connection events carry the handle they were issued against
// so late callbacks for a released handle can be recognized and dropped.

type event interface {
	isEvent()
}

// connEvent is implemented by events tied to one connection handle.
type connEvent interface {
	event
	connHandle() transport.ConnHandle
}

type linkUpEvent struct {
	handle transport.ConnHandle
}

type linkDownEvent struct {
	handle transport.ConnHandle
}

type discoveryDoneEvent struct {
	handle transport.ConnHandle
	ok     bool
	code   int
}

// dataEvent carries a received payload, from a completed read or an
// unsolicited notification. Both funnel into the same received-data stream.
type dataEvent struct {
	handle  transport.ConnHandle
	payload []byte
}

type scanResultEvent struct {
	adv transport.Advertisement
}

type scanFailedEvent struct {
	code int
}

func (linkUpEvent) isEvent()        {}
func (linkDownEvent) isEvent()      {}
func (discoveryDoneEvent) isEvent() {}
func (dataEvent) isEvent()          {}
func (scanResultEvent) isEvent()    {}
func (scanFailedEvent) isEvent()    {}

func (e linkUpEvent) connHandle() transport.ConnHandle        { return e.handle }
func (e linkDownEvent) connHandle() transport.ConnHandle      { return e.handle }
func (e discoveryDoneEvent) connHandle() transport.ConnHandle { return e.handle }
func (e dataEvent) connHandle() transport.ConnHandle          { return e.handle }

// effect is a side effect requested by a state transition. The run loop
// executes effects after publishing the new state.
type effect int

const (
	effectNone effect = iota
	// effectDiscoverServices requests service discovery on the live handle,
	// re-checking the permission gate first.
	effectDiscoverServices
	// effectReleaseHandle drops the connection handle so subsequent
	// operations fail fast instead of touching a dead link.
	effectReleaseHandle
	// effectPublishData publishes the event payload on the received-data
	// stream. The connection state is left untouched.
	effectPublishData
)

// reduce is the connection state machine: a pure function from the current
// state and one event to the next state and the side effect to run. It holds
// no locks and touches no hardware, which keeps every transition directly
// testable.
func reduce(cur ConnectionState, ev connEvent) (ConnectionState, effect) {
	switch e := ev.(type) {
	case linkUpEvent:
		return StateConnected(false), effectDiscoverServices

	case linkDownEvent:
		return StateDisconnected(), effectReleaseHandle

	case discoveryDoneEvent:
		if e.ok {
			return StateConnected(true), effectNone
		}
		return StateError("Service discovery failed: %d", e.code), effectNone

	case dataEvent:
		return cur, effectPublishData

	default:
		return cur, effectNone
	}
}
