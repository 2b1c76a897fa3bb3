package session

import (
	"github.com/sirupsen/logrus"

	"github.com/srg/blesession/transport"
)

// Connect drives the session toward an established, I/O-ready link with
// peer. It returns as soon as the connect request is issued; progress is
// published on the connection state stream (Connecting, then Connected on
// link-up, then Connected with Ready once discovery completes). On
// permission denial the state becomes an error and no driver call is made.
func (s *Session) Connect(peer transport.Peer) {
	if !s.gate.HasRequiredCapabilities() {
		s.logger.Warn("Connect requested without radio permission")
		s.state.Set(StateError("Permission not granted"))
		return
	}

	s.logger.WithFields(logrus.Fields{
		"address": peer.ID,
		"name":    peer.Name,
	}).Info("Connecting to BLE device...")
	s.state.Set(StateConnecting())

	cb := transport.ConnCallbacks{
		StateChange: func(h transport.ConnHandle, connected bool) {
			if connected {
				s.post(linkUpEvent{handle: h})
			} else {
				s.post(linkDownEvent{handle: h})
			}
		},
		ServicesDiscovered: func(h transport.ConnHandle, ok bool, code int) {
			s.post(discoveryDoneEvent{handle: h, ok: ok, code: code})
		},
		CharacteristicRead: func(h transport.ConnHandle, _ transport.Characteristic, data []byte, ok bool) {
			if ok {
				s.post(dataEvent{handle: h, payload: cloneBytes(data)})
			}
		},
		CharacteristicChanged: func(h transport.ConnHandle, _ transport.Characteristic, data []byte) {
			s.post(dataEvent{handle: h, payload: cloneBytes(data)})
		},
	}

	// Hold the lock across the issuing call so the handle is stored before
	// the run loop applies any callback event for it.
	s.mu.Lock()
	handle, err := s.driver.Connect(peer, cb)
	if err == nil {
		s.connHandle = handle
	}
	s.mu.Unlock()

	if err != nil {
		s.reportFault("connect", err)
	}
}

// Disconnect tears the connection down. With permission denied it is a
// silent no-op; otherwise the held handle (if any) is released through the
// driver and the state unconditionally becomes Disconnected. Safe and
// idempotent with no active connection.
func (s *Session) Disconnect() {
	if !s.gate.HasRequiredCapabilities() {
		return
	}

	s.mu.Lock()
	handle := s.connHandle
	s.connHandle = nil
	s.mu.Unlock()

	if handle != nil {
		if err := s.driver.DisconnectAndClose(handle); err != nil {
			s.logger.WithError(err).Debug("Driver disconnect failed")
		}
	}

	s.state.Set(StateDisconnected())
}

// ReadCharacteristic requests a read of the characteristic addressed by
// service and characteristic UUID. The return value reflects only whether
// the request was accepted by the driver; data arrives later on the
// received-data stream.
func (s *Session) ReadCharacteristic(serviceUUID, charUUID string) bool {
	if !s.gate.HasRequiredCapabilities() {
		return false
	}

	handle, chr, ok := s.resolve(serviceUUID, charUUID)
	if !ok {
		return false
	}

	accepted, err := s.driver.ReadCharacteristic(handle, chr)
	if err != nil {
		s.reportFault("read characteristic", err)
		return false
	}
	return accepted
}

// WriteCharacteristic writes data to the addressed characteristic and
// reports success. The two transport generations (status-coded vs. legacy
// boolean writes) are normalized behind this one boolean; callers never
// learn which path served the request.
func (s *Session) WriteCharacteristic(serviceUUID, charUUID string, data []byte) bool {
	if !s.gate.HasRequiredCapabilities() {
		return false
	}

	handle, chr, ok := s.resolve(serviceUUID, charUUID)
	if !ok {
		return false
	}
	return s.writeCharacteristic(handle, chr, data)
}

// EnableNotification enables notify delivery for the addressed
// characteristic: local delivery is requested from the driver, then the
// standard configuration descriptor is written with the enable value. A
// missing descriptor fails the call but leaves local delivery requested.
func (s *Session) EnableNotification(serviceUUID, charUUID string) bool {
	if !s.gate.HasRequiredCapabilities() {
		return false
	}

	handle, chr, ok := s.resolve(serviceUUID, charUUID)
	if !ok {
		return false
	}

	okLocal, err := s.driver.SetLocalNotification(handle, chr, true)
	if err != nil {
		s.reportFault("set local notification", err)
		return false
	}
	if !okLocal {
		s.logger.WithField("char_uuid", charUUID).Warn("Local notification request rejected")
	}

	desc, ok := s.driver.ResolveDescriptor(chr, transport.ClientCharacteristicConfigUUID)
	if !ok {
		// Local delivery stays enabled. Remote notifications will not flow
		// without the descriptor write, so the call still fails.
		s.logger.WithField("char_uuid", charUUID).Debug("Configuration descriptor not found")
		return false
	}

	return s.writeDescriptor(handle, desc, transport.NotificationEnableValue())
}

// resolve fetches the live handle and resolves service and characteristic
// fresh, as required for every operation. Resolution misses are local,
// boolean-only failures; they never mutate the observable state.
func (s *Session) resolve(serviceUUID, charUUID string) (transport.ConnHandle, transport.Characteristic, bool) {
	s.mu.Lock()
	handle := s.connHandle
	s.mu.Unlock()

	if handle == nil {
		s.logger.Debug("No active connection")
		return nil, nil, false
	}

	svc, ok := s.driver.ResolveService(handle, serviceUUID)
	if !ok {
		s.logger.WithField("service_uuid", serviceUUID).Debug("Service not found")
		return nil, nil, false
	}

	chr, ok := s.driver.ResolveCharacteristic(svc, charUUID)
	if !ok {
		s.logger.WithFields(logrus.Fields{
			"service_uuid": serviceUUID,
			"char_uuid":    charUUID,
		}).Debug("Characteristic not found")
		return nil, nil, false
	}

	return handle, chr, true
}

func (s *Session) writeCharacteristic(h transport.ConnHandle, chr transport.Characteristic, data []byte) bool {
	if s.driver.SupportsStatusWrites() {
		status, err := s.driver.WriteCharacteristicModern(h, chr, data, transport.WriteWithResponse)
		if err != nil {
			s.reportFault("write characteristic", err)
			return false
		}
		// A non-success status is a plain failure, not an error-state event.
		return status == transport.WriteSuccess
	}

	ok, err := s.driver.WriteCharacteristicLegacy(h, chr, data)
	if err != nil {
		s.reportFault("write characteristic", err)
		return false
	}
	return ok
}

func (s *Session) writeDescriptor(h transport.ConnHandle, d transport.Descriptor, data []byte) bool {
	if s.driver.SupportsStatusWrites() {
		status, err := s.driver.WriteDescriptorModern(h, d, data)
		if err != nil {
			s.reportFault("write descriptor", err)
			return false
		}
		return status == transport.WriteSuccess
	}

	ok, err := s.driver.WriteDescriptorLegacy(h, d, data)
	if err != nil {
		s.reportFault("write descriptor", err)
		return false
	}
	return ok
}

// cloneBytes copies a driver-owned payload so the received-data stream holds
// an immutable snapshot even if the driver reuses its buffer.
func cloneBytes(data []byte) []byte {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
