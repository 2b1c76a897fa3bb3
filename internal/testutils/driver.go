// Package testutils provides a scripted transport driver and permission gate
// for session tests. The driver performs no radio I/O: tests configure its
// responses up front and fire asynchronous callbacks explicitly, which makes
// every state transition reproducible without hardware.
package testutils

import (
	"sync"

	"github.com/srg/blesession/transport"
)

// FakeGate is a PermissionGate with a switchable grant.
type FakeGate struct {
	mu      sync.Mutex
	granted bool
}

// NewFakeGate creates a gate with the given initial grant.
func NewFakeGate(granted bool) *FakeGate {
	return &FakeGate{granted: granted}
}

// SetGranted flips the grant. Takes effect on the next check; nothing caches.
func (g *FakeGate) SetGranted(granted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted = granted
}

// HasRequiredCapabilities implements transport.PermissionGate.
func (g *FakeGate) HasRequiredCapabilities() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted
}

// FakeAdvertisement is a canned advertisement snapshot.
type FakeAdvertisement struct {
	AddrValue    string
	NameValue    string
	RSSIValue    int
	Connectable_ bool
	ServiceUUIDs []string
	RawValue     []byte
}

func (a *FakeAdvertisement) Addr() string       { return a.AddrValue }
func (a *FakeAdvertisement) LocalName() string  { return a.NameValue }
func (a *FakeAdvertisement) RSSI() int          { return a.RSSIValue }
func (a *FakeAdvertisement) Connectable() bool  { return a.Connectable_ }
func (a *FakeAdvertisement) Services() []string { return a.ServiceUUIDs }
func (a *FakeAdvertisement) Raw() []byte        { return a.RawValue }

// Adv is shorthand for the common case: address and signal strength only.
func Adv(addr string, rssi int) *FakeAdvertisement {
	return &FakeAdvertisement{AddrValue: addr, RSSIValue: rssi, Connectable_: true}
}

type fakeScanHandle struct{ id int }
type fakeConnHandle struct{ id int }

type fakeService struct{ uuid string }

func (s *fakeService) UUID() string { return s.uuid }

type fakeCharacteristic struct {
	uuid        string
	service     string
	descriptors []string
}

func (c *fakeCharacteristic) UUID() string { return c.uuid }

type fakeDescriptor struct{ uuid string }

func (d *fakeDescriptor) UUID() string { return d.uuid }

// FakeDriver is a scripted transport.Driver. Zero-value responses are
// failures; NewFakeDriver configures the happy path. All fields guarded by
// the mutex; Fire* methods invoke the callbacks registered by the session.
type FakeDriver struct {
	mu sync.Mutex

	// Scripted responses.
	ScanErr            error
	ConnectErr         error
	DiscoverErr        error
	ReadAccepted       bool
	ReadErr            error
	ModernWrites       bool
	WriteStatus        transport.WriteStatus
	WriteErr           error
	LegacyWriteOK      bool
	DescWriteStatus    transport.WriteStatus
	DescLegacyWriteOK  bool
	DescWriteErr       error
	LocalNotifyOK      bool
	LocalNotifyErr     error
	StopScanErr        error
	DisconnectCloseErr error

	topology map[string]*fakeService
	chars    map[string]map[string]*fakeCharacteristic

	calls []string

	nextID    int
	onResult  func(transport.Advertisement)
	onFailure func(code int)
	scanH     transport.ScanHandle
	connH     transport.ConnHandle
	cb        transport.ConnCallbacks
}

// NewFakeDriver creates a driver scripted for the happy path: requests
// accepted, writes succeed, modern (status-coded) generation.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		ReadAccepted:      true,
		ModernWrites:      true,
		WriteStatus:       transport.WriteSuccess,
		LegacyWriteOK:     true,
		DescWriteStatus:   transport.WriteSuccess,
		DescLegacyWriteOK: true,
		LocalNotifyOK:     true,
		topology:          make(map[string]*fakeService),
		chars:             make(map[string]map[string]*fakeCharacteristic),
	}
}

// AddCharacteristic declares a discoverable characteristic (and its service
// and descriptors) in the fake GATT catalog. UUIDs are normalized on entry.
func (d *FakeDriver) AddCharacteristic(serviceUUID, charUUID string, descriptorUUIDs ...string) *FakeDriver {
	d.mu.Lock()
	defer d.mu.Unlock()

	svc := transport.NormalizeUUID(serviceUUID)
	chr := transport.NormalizeUUID(charUUID)
	if _, ok := d.topology[svc]; !ok {
		d.topology[svc] = &fakeService{uuid: svc}
		d.chars[svc] = make(map[string]*fakeCharacteristic)
	}
	d.chars[svc][chr] = &fakeCharacteristic{
		uuid:        chr,
		service:     svc,
		descriptors: transport.NormalizeUUIDs(descriptorUUIDs),
	}
	return d
}

func (d *FakeDriver) record(call string) {
	d.calls = append(d.calls, call)
}

// Calls returns the ordered list of driver invocations.
func (d *FakeDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

// CallCount returns how many times the named driver call was made.
func (d *FakeDriver) CallCount(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Scan implements transport.Driver.
func (d *FakeDriver) Scan(onResult func(transport.Advertisement), onFailure func(code int)) (transport.ScanHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Scan")
	if d.ScanErr != nil {
		return nil, d.ScanErr
	}
	d.nextID++
	d.scanH = &fakeScanHandle{id: d.nextID}
	d.onResult = onResult
	d.onFailure = onFailure
	return d.scanH, nil
}

// StopScan implements transport.Driver.
func (d *FakeDriver) StopScan(h transport.ScanHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("StopScan")
	return d.StopScanErr
}

// Connect implements transport.Driver.
func (d *FakeDriver) Connect(peer transport.Peer, cb transport.ConnCallbacks) (transport.ConnHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Connect")
	if d.ConnectErr != nil {
		return nil, d.ConnectErr
	}
	d.nextID++
	d.connH = &fakeConnHandle{id: d.nextID}
	d.cb = cb
	return d.connH, nil
}

// DisconnectAndClose implements transport.Driver.
func (d *FakeDriver) DisconnectAndClose(h transport.ConnHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DisconnectAndClose")
	return d.DisconnectCloseErr
}

// DiscoverServices implements transport.Driver.
func (d *FakeDriver) DiscoverServices(h transport.ConnHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DiscoverServices")
	return d.DiscoverErr
}

// ResolveService implements transport.Driver.
func (d *FakeDriver) ResolveService(h transport.ConnHandle, serviceUUID string) (transport.Service, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ResolveService")
	svc, ok := d.topology[transport.NormalizeUUID(serviceUUID)]
	return svc, ok
}

// ResolveCharacteristic implements transport.Driver.
func (d *FakeDriver) ResolveCharacteristic(svc transport.Service, charUUID string) (transport.Characteristic, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ResolveCharacteristic")
	chars, ok := d.chars[svc.UUID()]
	if !ok {
		return nil, false
	}
	chr, ok := chars[transport.NormalizeUUID(charUUID)]
	return chr, ok
}

// ResolveDescriptor implements transport.Driver.
func (d *FakeDriver) ResolveDescriptor(c transport.Characteristic, descriptorUUID string) (transport.Descriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ResolveDescriptor")
	fc, ok := c.(*fakeCharacteristic)
	if !ok {
		return nil, false
	}
	want := transport.NormalizeUUID(descriptorUUID)
	for _, uuid := range fc.descriptors {
		if uuid == want {
			return &fakeDescriptor{uuid: uuid}, true
		}
	}
	return nil, false
}

// ReadCharacteristic implements transport.Driver.
func (d *FakeDriver) ReadCharacteristic(h transport.ConnHandle, c transport.Characteristic) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ReadCharacteristic")
	if d.ReadErr != nil {
		return false, d.ReadErr
	}
	return d.ReadAccepted, nil
}

// WriteCharacteristicLegacy implements transport.Driver.
func (d *FakeDriver) WriteCharacteristicLegacy(h transport.ConnHandle, c transport.Characteristic, data []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("WriteCharacteristicLegacy")
	if d.WriteErr != nil {
		return false, d.WriteErr
	}
	return d.LegacyWriteOK, nil
}

// WriteCharacteristicModern implements transport.Driver.
func (d *FakeDriver) WriteCharacteristicModern(h transport.ConnHandle, c transport.Characteristic, data []byte, wt transport.WriteType) (transport.WriteStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("WriteCharacteristicModern")
	if d.WriteErr != nil {
		return 0, d.WriteErr
	}
	return d.WriteStatus, nil
}

// WriteDescriptorLegacy implements transport.Driver.
func (d *FakeDriver) WriteDescriptorLegacy(h transport.ConnHandle, desc transport.Descriptor, data []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("WriteDescriptorLegacy")
	if d.DescWriteErr != nil {
		return false, d.DescWriteErr
	}
	return d.DescLegacyWriteOK, nil
}

// WriteDescriptorModern implements transport.Driver.
func (d *FakeDriver) WriteDescriptorModern(h transport.ConnHandle, desc transport.Descriptor, data []byte) (transport.WriteStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("WriteDescriptorModern")
	if d.DescWriteErr != nil {
		return 0, d.DescWriteErr
	}
	return d.DescWriteStatus, nil
}

// SetLocalNotification implements transport.Driver.
func (d *FakeDriver) SetLocalNotification(h transport.ConnHandle, c transport.Characteristic, enabled bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SetLocalNotification")
	if d.LocalNotifyErr != nil {
		return false, d.LocalNotifyErr
	}
	return d.LocalNotifyOK, nil
}

// SupportsStatusWrites implements transport.Driver.
func (d *FakeDriver) SupportsStatusWrites() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ModernWrites
}

// ConnHandle returns the handle issued by the most recent Connect.
func (d *FakeDriver) ConnHandle() transport.ConnHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connH
}

// FireScanResult delivers one advertisement through the registered scan
// callback, as the radio would.
func (d *FakeDriver) FireScanResult(adv transport.Advertisement) {
	d.mu.Lock()
	fn := d.onResult
	d.mu.Unlock()
	if fn != nil {
		fn(adv)
	}
}

// FireScanFailure delivers an asynchronous scan failure.
func (d *FakeDriver) FireScanFailure(code int) {
	d.mu.Lock()
	fn := d.onFailure
	d.mu.Unlock()
	if fn != nil {
		fn(code)
	}
}

// FireLinkUp reports link establishment for the current connection.
func (d *FakeDriver) FireLinkUp() {
	d.fireState(d.ConnHandle(), true)
}

// FireLinkDown reports link loss for the current connection.
func (d *FakeDriver) FireLinkDown() {
	d.fireState(d.ConnHandle(), false)
}

// FireLinkDownFor reports link loss for an explicit (possibly stale) handle.
func (d *FakeDriver) FireLinkDownFor(h transport.ConnHandle) {
	d.fireState(h, false)
}

func (d *FakeDriver) fireState(h transport.ConnHandle, connected bool) {
	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb.StateChange != nil {
		cb.StateChange(h, connected)
	}
}

// FireDiscovery reports service-discovery completion.
func (d *FakeDriver) FireDiscovery(ok bool, code int) {
	d.FireDiscoveryFor(d.ConnHandle(), ok, code)
}

// FireDiscoveryFor reports discovery completion for an explicit handle.
func (d *FakeDriver) FireDiscoveryFor(h transport.ConnHandle, ok bool, code int) {
	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb.ServicesDiscovered != nil {
		cb.ServicesDiscovered(h, ok, code)
	}
}

// FireRead reports completion of an accepted read with the given payload.
func (d *FakeDriver) FireRead(data []byte, ok bool) {
	d.mu.Lock()
	cb := d.cb
	h := d.connH
	d.mu.Unlock()
	if cb.CharacteristicRead != nil {
		cb.CharacteristicRead(h, nil, data, ok)
	}
}

// FireChanged reports an unsolicited notification with the given payload.
func (d *FakeDriver) FireChanged(data []byte) {
	d.mu.Lock()
	cb := d.cb
	h := d.connH
	d.mu.Unlock()
	if cb.CharacteristicChanged != nil {
		cb.CharacteristicChanged(h, nil, data)
	}
}
