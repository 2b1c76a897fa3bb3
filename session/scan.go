package session

import (
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/blesession/transport"
)

// ScanResult is one discovered peer: identity, most recent signal strength,
// and the raw advertisement snapshot. Values are immutable snapshots; the
// session owns the underlying set.
type ScanResult struct {
	ID            string
	Name          string
	RSSI          int
	Advertisement transport.Advertisement
}

// ScanEventType marks whether a sighting was a new peer or an update to a
// known one.
type ScanEventType int

const (
	ScanEventNew ScanEventType = iota
	ScanEventUpdated
)

// ScanEvent is one sighting delivered on the scan event stream.
type ScanEvent struct {
	Type   ScanEventType
	Result ScanResult
}

// StartScan begins a discovery pass. The permission gate is consulted first:
// on denial the shared error surface becomes an error state and no driver
// call is made. On grant the result set is cleared and a scan request is
// issued; the returned handle is retained for the scan's duration.
func (s *Session) StartScan() {
	if !s.gate.HasRequiredCapabilities() {
		s.logger.Warn("Scan requested without radio permission")
		s.state.Set(StateError("Permission not granted"))
		return
	}

	s.mu.Lock()
	s.scanSet = orderedmap.New[string, ScanResult]()
	s.mu.Unlock()
	s.results.Set([]ScanResult{})

	handle, err := s.driver.Scan(
		func(adv transport.Advertisement) { s.post(scanResultEvent{adv: adv}) },
		func(code int) { s.post(scanFailedEvent{code: code}) },
	)
	if err != nil {
		s.reportFault("scan", err)
		return
	}

	s.mu.Lock()
	s.scanHandle = handle
	s.mu.Unlock()
	s.logger.Info("BLE scan started")
}

// StopScan stops the active scan. When permission is denied this is a silent
// no-op: stopping an unauthorized scan must never itself fail loudly. Driver
// errors on stop are logged, never surfaced.
func (s *Session) StopScan() {
	if !s.gate.HasRequiredCapabilities() {
		return
	}

	s.mu.Lock()
	handle := s.scanHandle
	s.scanHandle = nil
	s.mu.Unlock()

	if handle == nil {
		return
	}
	if err := s.driver.StopScan(handle); err != nil {
		s.logger.WithError(err).Debug("Stop scan failed")
	}
}

// handleScanResult deduplicates one sighting by peer identifier: first
// sighting appends (preserving order), repeats update in place. The set
// never holds two entries with one identifier.
func (s *Session) handleScanResult(adv transport.Advertisement) {
	result := ScanResult{
		ID:            adv.Addr(),
		Name:          adv.LocalName(),
		RSSI:          adv.RSSI(),
		Advertisement: adv,
	}

	s.mu.Lock()
	_, known := s.scanSet.Get(result.ID)
	s.scanSet.Set(result.ID, result)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.results.Set(snapshot)

	ev := ScanEvent{Type: ScanEventUpdated, Result: result}
	if !known {
		ev.Type = ScanEventNew
		s.logger.WithFields(logrus.Fields{
			"device":  result.Name,
			"address": result.ID,
			"rssi":    result.RSSI,
		}).Info("Discovered new device")
	}
	s.scanEvents.Send(ev)
}

// handleScanFailure promotes a driver-reported scan failure onto the shared
// error surface. Existing results are preserved.
func (s *Session) handleScanFailure(code int) {
	s.logger.WithField("code", code).Error("BLE scan failed")
	s.state.Set(StateError("Scan failed: %d", code))
}

// snapshotLocked builds an immutable result list in first-sighting order.
// Caller holds s.mu.
func (s *Session) snapshotLocked() []ScanResult {
	out := make([]ScanResult, 0, s.scanSet.Len())
	for pair := s.scanSet.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}
