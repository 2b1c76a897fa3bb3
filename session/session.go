// Package session manages the lifecycle of a single BLE peer connection and
// an independent device-discovery scan, exposing both as observable state.
//
// A Session owns three last-value-cached streams: the deduplicated scan
// result list, the connection state, and the most recently received byte
// payload. Caller commands (StartScan, Connect, ReadCharacteristic, ...)
// return as soon as the request is issued to the transport driver; outcomes
// are delivered asynchronously through the streams. Driver callbacks are
// converted into typed events and applied by a single run goroutine, so all
// state transitions are serialized no matter which thread the driver calls
// from.
package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/blesession/internal/groutine"
	"github.com/srg/blesession/internal/watch"
	"github.com/srg/blesession/transport"
)

const (
	// eventQueueSize bounds the driver-event queue. The run loop drains it
	// continuously; the bound only absorbs bursts.
	eventQueueSize = 64

	// scanEventBuffer bounds the scan event stream (oldest dropped first).
	scanEventBuffer = 64
)

// Session coordinates one scan session and one connection session against a
// transport driver, gated by a permission gate. Create with New, release
// with Close.
type Session struct {
	driver transport.Driver
	gate   transport.PermissionGate
	logger *logrus.Logger

	state    *watch.Value[ConnectionState]
	received *watch.Value[[]byte]
	results  *watch.Value[[]ScanResult]

	scanEvents *watch.Ring[ScanEvent]

	events    chan event
	done      chan struct{}
	closeOnce sync.Once

	// mu guards the handles and the scan result set. Driver calls are made
	// outside the lock wherever possible; Connect/StartScan hold it across
	// the issuing call so the handle is stored before any callback event is
	// applied by the run loop.
	mu         sync.Mutex
	connHandle transport.ConnHandle
	scanHandle transport.ScanHandle
	scanSet    *orderedmap.OrderedMap[string, ScanResult]
}

// New creates a Session and starts its event loop. A nil logger is replaced
// with a default one.
func New(driver transport.Driver, gate transport.PermissionGate, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}

	s := &Session{
		driver:     driver,
		gate:       gate,
		logger:     logger,
		state:      watch.NewValue(StateDisconnected()),
		received:   watch.NewValue[[]byte](nil),
		results:    watch.NewValue([]ScanResult{}),
		scanEvents: watch.NewRing[ScanEvent](scanEventBuffer),
		events:     make(chan event, eventQueueSize),
		done:       make(chan struct{}),
		scanSet:    orderedmap.New[string, ScanResult](),
	}

	groutine.Go(context.Background(), "session-event-loop", func(context.Context) {
		s.run()
	})
	return s
}

// CheckPermissions reports whether the permission gate currently grants radio
// access. Evaluated fresh; nothing is cached.
func (s *Session) CheckPermissions() bool {
	return s.gate.HasRequiredCapabilities()
}

// ConnectionState returns the connection state stream. Scan failures are
// promoted onto this stream too; it is the shared error surface.
func (s *Session) ConnectionState() *watch.Value[ConnectionState] {
	return s.state
}

// Received returns the received-data stream: the most recent byte payload
// from a completed read or an unsolicited notification. Single-slot,
// last-write-wins; a fast producer can overwrite unread data.
func (s *Session) Received() *watch.Value[[]byte] {
	return s.received
}

// ScanResults returns the scan result list stream. Snapshots are immutable;
// entries are deduplicated by peer identifier in first-sighting order.
func (s *Session) ScanResults() *watch.Value[[]ScanResult] {
	return s.results
}

// ScanEvents returns the per-sighting event stream (new vs. updated). The
// buffer is bounded; the oldest event is dropped when a consumer lags.
func (s *Session) ScanEvents() <-chan ScanEvent {
	return s.scanEvents.C()
}

// Close stops the event loop and tears down any live scan or connection.
// Idempotent. Teardown is unconditional local cleanup and does not consult
// the permission gate.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		ch := s.connHandle
		sh := s.scanHandle
		s.connHandle = nil
		s.scanHandle = nil
		s.mu.Unlock()

		if sh != nil {
			if err := s.driver.StopScan(sh); err != nil {
				s.logger.WithError(err).Debug("Stop scan during close failed")
			}
		}
		if ch != nil {
			if err := s.driver.DisconnectAndClose(ch); err != nil {
				s.logger.WithError(err).Debug("Disconnect during close failed")
			}
			s.state.Set(StateDisconnected())
		}
	})
}

// post delivers an event to the run loop. Never blocks past Close.
func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// run is the single consumer of the event queue.
func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.handleEvent(ev)
		}
	}
}

func (s *Session) handleEvent(ev event) {
	switch e := ev.(type) {
	case scanResultEvent:
		s.handleScanResult(e.adv)
	case scanFailedEvent:
		s.handleScanFailure(e.code)
	case connEvent:
		s.handleConnEvent(e)
	}
}

// handleConnEvent applies one connection event: stale-handle filtering,
// the pure transition, then the requested side effect.
func (s *Session) handleConnEvent(ev connEvent) {
	s.mu.Lock()
	cur := s.connHandle
	if cur == nil || ev.connHandle() != cur {
		s.mu.Unlock()
		s.logger.Debug("Ignoring event for released connection handle")
		return
	}

	next, eff := reduce(s.state.Get(), ev)
	if eff == effectReleaseHandle {
		s.connHandle = nil
	}
	s.mu.Unlock()

	if eff == effectPublishData {
		// Payload only; the connection state is untouched.
		s.received.Set(ev.(dataEvent).payload)
		return
	}

	s.state.Set(next)

	if eff == effectDiscoverServices {
		// Discovery is prerequisite to any I/O, so a denial here must not
		// leave the stale Connected value standing.
		if !s.gate.HasRequiredCapabilities() {
			s.state.Set(StateError("Permission not granted"))
			return
		}
		if err := s.driver.DiscoverServices(cur); err != nil {
			s.reportFault("discover services", err)
		}
	}
}

// reportFault converts a driver-raised access-denial fault into the shared
// observable error state. Faults never propagate as panics.
func (s *Session) reportFault(op string, err error) {
	detail := err.Error()
	if perr, ok := transport.AsPermissionError(err); ok && perr.Detail != "" {
		detail = perr.Detail
	}
	s.logger.WithFields(logrus.Fields{
		"op":    op,
		"error": err,
	}).Warn("Radio access denied")
	s.state.Set(StateError("Permission denied: %s", detail))
}
