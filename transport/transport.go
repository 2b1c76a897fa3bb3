// Package transport defines the contracts between the session layer and the
// underlying BLE radio driver: the Driver interface the session consumes, the
// PermissionGate consulted before every radio-touching call, and the protocol
// constants shared by all driver implementations.
//
// The package holds no radio code itself; transport/goble provides the
// go-ble-backed Driver, and internal/testutils provides a scripted fake for
// the session test suites.
package transport

// ClientCharacteristicConfigUUID is the Bluetooth SIG Client Characteristic
// Configuration Descriptor. Writing to it toggles notify/indicate delivery
// for the owning characteristic. It is a protocol constant, not peer-specific.
const ClientCharacteristicConfigUUID = "00002902-0000-1000-8000-00805f9b34fb"

// NotificationEnableValue returns the standard two-byte CCCD payload that
// enables notifications. A fresh slice is returned on every call so callers
// cannot corrupt the constant.
func NotificationEnableValue() []byte {
	return []byte{0x01, 0x00}
}

// Peer identifies a remote BLE peripheral. ID is the platform-stable device
// address and the uniqueness key for scan deduplication; Name is the
// advertised human-readable name and may be empty.
type Peer struct {
	ID   string
	Name string
}

// Advertisement is an immutable snapshot of one received advertisement packet.
type Advertisement interface {
	Addr() string
	LocalName() string
	RSSI() int
	Connectable() bool
	Services() []string
	Raw() []byte
}

// Service is an opaque handle to a discovered GATT service. Resolution is
// fresh per operation; callers must not cache these across calls.
type Service interface {
	UUID() string
}

// Characteristic is an opaque handle to a discovered GATT characteristic.
type Characteristic interface {
	UUID() string
}

// Descriptor is an opaque handle to a discovered GATT descriptor.
type Descriptor interface {
	UUID() string
}

// ScanHandle identifies one scan issued to the driver. Opaque to the session.
type ScanHandle interface{}

// ConnHandle identifies one connection attempt issued to the driver. The
// session releases it on disconnect; drivers tag every asynchronous callback
// with the handle it belongs to so late callbacks for a released handle can
// be recognized and ignored.
type ConnHandle interface{}

// WriteStatus is the status code reported by the modern, status-coded write
// path. Only WriteSuccess counts as success; every other value is a failure.
type WriteStatus int

// WriteSuccess is the designated success status of the modern write path.
const WriteSuccess WriteStatus = 0

// WriteType selects how a characteristic write is performed on the modern path.
type WriteType int

const (
	WriteWithResponse WriteType = iota
	WriteWithoutResponse
)

// ConnCallbacks carries the asynchronous event handlers registered with
// Connect. The driver invokes them from its own goroutines, in hardware
// order, each tagged with the connection handle they belong to. No handler
// may be nil.
type ConnCallbacks struct {
	// StateChange reports link-level connect (true) and disconnect (false).
	// A disconnect may arrive at any time, including before discovery.
	StateChange func(h ConnHandle, connected bool)

	// ServicesDiscovered reports completion of service discovery. code is
	// driver-specific and only meaningful when ok is false.
	ServicesDiscovered func(h ConnHandle, ok bool, code int)

	// CharacteristicRead reports completion of an accepted read request.
	CharacteristicRead func(h ConnHandle, c Characteristic, data []byte, ok bool)

	// CharacteristicChanged reports an unsolicited notification.
	CharacteristicChanged func(h ConnHandle, c Characteristic, data []byte)
}

// Driver is the radio transport consumed by the session layer. Requests
// return as soon as they are issued; outcomes arrive via callbacks. Any
// method touching the radio may fail with a *PermissionError if the platform
// revokes radio access mid-call.
type Driver interface {
	// Scan starts device discovery. onResult may fire any number of times,
	// concurrently with the caller; onFailure reports an asynchronous driver
	// failure with a driver-specific code.
	Scan(onResult func(Advertisement), onFailure func(code int)) (ScanHandle, error)

	// StopScan stops the scan identified by h.
	StopScan(h ScanHandle) error

	// Connect issues a connection request to peer and returns its handle.
	// Success or failure is reported only through cb.StateChange.
	Connect(peer Peer, cb ConnCallbacks) (ConnHandle, error)

	// DisconnectAndClose tears down the connection and releases driver
	// resources for h.
	DisconnectAndClose(h ConnHandle) error

	// DiscoverServices requests service discovery on an established link.
	// Completion arrives via cb.ServicesDiscovered.
	DiscoverServices(h ConnHandle) error

	// ResolveService looks up a discovered service by UUID.
	ResolveService(h ConnHandle, serviceUUID string) (Service, bool)

	// ResolveCharacteristic looks up a characteristic within svc by UUID.
	ResolveCharacteristic(svc Service, charUUID string) (Characteristic, bool)

	// ResolveDescriptor looks up a descriptor on c by UUID.
	ResolveDescriptor(c Characteristic, descriptorUUID string) (Descriptor, bool)

	// ReadCharacteristic requests a read. The returned bool reflects only
	// whether the request was accepted; data arrives via
	// cb.CharacteristicRead.
	ReadCharacteristic(h ConnHandle, c Characteristic) (bool, error)

	// WriteCharacteristicLegacy performs a boolean-returning write
	// (pre-status-code transport generation).
	WriteCharacteristicLegacy(h ConnHandle, c Characteristic, data []byte) (bool, error)

	// WriteCharacteristicModern performs a status-coded write.
	WriteCharacteristicModern(h ConnHandle, c Characteristic, data []byte, wt WriteType) (WriteStatus, error)

	// WriteDescriptorLegacy performs a boolean-returning descriptor write.
	WriteDescriptorLegacy(h ConnHandle, d Descriptor, data []byte) (bool, error)

	// WriteDescriptorModern performs a status-coded descriptor write.
	WriteDescriptorModern(h ConnHandle, d Descriptor, data []byte) (WriteStatus, error)

	// SetLocalNotification enables or disables local delivery of
	// notifications for c. Remote delivery is controlled separately through
	// the configuration descriptor.
	SetLocalNotification(h ConnHandle, c Characteristic, enabled bool) (bool, error)

	// SupportsStatusWrites reports whether the modern, status-coded
	// write/notify primitives are available on this platform. The session
	// consults it once per write to pick the code path; callers of the
	// session never learn which generation served them.
	SupportsStatusWrites() bool
}

// PermissionGate grants or denies radio access. Implementations are expected
// to evaluate fresh on every call; neither the gate nor its callers cache
// results across calls.
type PermissionGate interface {
	HasRequiredCapabilities() bool
}

// GateFunc adapts a plain function to the PermissionGate interface.
type GateFunc func() bool

// HasRequiredCapabilities calls f.
func (f GateFunc) HasRequiredCapabilities() bool { return f() }
