// Package goble implements the transport.Driver contract on top of the
// go-ble stack. All radio work happens on driver-owned goroutines; outcomes
// are reported through the callbacks registered at Connect time, each tagged
// with the connection they belong to.
package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/blesession/internal/groutine"
	"github.com/srg/blesession/transport"
)

const (
	// DefaultConnectTimeout bounds a single dial attempt.
	DefaultConnectTimeout = 30 * time.Second

	// codeScanAborted and codeDiscoveryFailed are the driver-specific codes
	// reported through the asynchronous failure callbacks.
	codeScanAborted     = 1
	codeDiscoveryFailed = 1

	// writeRejected is reported by the status-coded write path when the
	// stack refuses a write for a non-permission reason.
	writeRejected transport.WriteStatus = 1
)

// Options configures a Driver. The zero value is usable.
type Options struct {
	// ConnectTimeout bounds each dial attempt. Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// LegacyWrites forces the boolean write/notify primitives even where the
	// status-coded generation is available.
	LegacyWrites bool
}

// Driver is the go-ble-backed transport.Driver. A single underlying
// ble.Device is created lazily and shared by all scans and connections.
type Driver struct {
	logger *logrus.Logger
	opts   Options

	mu  sync.Mutex
	dev ble.Device
}

// New creates a Driver. A nil logger falls back to a default logrus logger,
// and a nil opts to defaults.
func New(logger *logrus.Logger, opts *Options) *Driver {
	if logger == nil {
		logger = logrus.New()
	}
	d := &Driver{logger: logger}
	if opts != nil {
		d.opts = *opts
	}
	if d.opts.ConnectTimeout <= 0 {
		d.opts.ConnectTimeout = DefaultConnectTimeout
	}
	return d
}

// device returns the shared ble.Device, creating it on first use.
func (d *Driver) device() (ble.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev != nil {
		return d.dev, nil
	}
	dev, err := DeviceFactory()
	if err != nil {
		return nil, normalizeError("device init", err)
	}
	ble.SetDefaultDevice(dev)
	d.dev = dev
	return dev, nil
}

type scanHandle struct {
	cancel context.CancelFunc
}

// Scan starts continuous discovery with duplicate advertisements allowed, so
// repeated sightings of a peer keep flowing to onResult.
func (d *Driver) Scan(onResult func(transport.Advertisement), onFailure func(code int)) (transport.ScanHandle, error) {
	dev, err := d.device()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &scanHandle{cancel: cancel}

	groutine.Go(ctx, "goble-scan", func(ctx context.Context) {
		err := dev.Scan(ctx, true, func(adv ble.Advertisement) {
			onResult(newAdvertisement(adv))
		})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			d.logger.WithError(normalizeError("scan", err)).Error("BLE scan terminated with error")
			onFailure(codeScanAborted)
		}
	})

	return h, nil
}

// StopScan cancels the scan identified by h.
func (d *Driver) StopScan(h transport.ScanHandle) error {
	sh, ok := h.(*scanHandle)
	if !ok {
		return fmt.Errorf("goble: foreign scan handle %T", h)
	}
	sh.cancel()
	return nil
}

// connection is the driver-side state behind one transport.ConnHandle.
type connection struct {
	drv    *Driver
	peer   transport.Peer
	cb     transport.ConnCallbacks
	cancel context.CancelFunc

	mu      sync.RWMutex
	client  ble.Client
	profile *ble.Profile
}

// Connect issues an asynchronous dial to peer. The handle is live
// immediately; link state arrives via cb.StateChange.
func (d *Driver) Connect(peer transport.Peer, cb transport.ConnCallbacks) (transport.ConnHandle, error) {
	if _, err := d.device(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{drv: d, peer: peer, cb: cb, cancel: cancel}
	groutine.Go(ctx, "goble-dial", c.dial)
	return c, nil
}

func (c *connection) dial(ctx context.Context) {
	log := c.drv.logger.WithField("address", c.peer.ID)
	log.Debug("Dialing BLE device...")

	dialCtx, cancel := context.WithTimeout(ctx, c.drv.opts.ConnectTimeout)
	defer cancel()

	client, err := ble.Dial(dialCtx, ble.NewAddr(c.peer.ID))
	if err != nil {
		log.WithError(normalizeError("connect", err)).Error("Failed to connect to BLE device")
		c.cb.StateChange(c, false)
		return
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	// Monitor go-ble client Disconnected() channel (Darwin-specific)
	if darwinClient, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		groutine.Go(ctx, "goble-link-monitor", func(ctx context.Context) {
			select {
			case <-darwinClient.Disconnected():
				log.Warn("CoreBluetooth reported disconnection")
				c.cb.StateChange(c, false)
			case <-ctx.Done():
			}
		})
	} else {
		log.Debug("Client does not support Disconnected() channel (non-Darwin platform?)")
	}

	log.Info("BLE device connected")
	c.cb.StateChange(c, true)
}

// snapshot returns the client and profile under the connection lock.
func (c *connection) snapshot() (ble.Client, *ble.Profile) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client, c.profile
}

func (d *Driver) conn(h transport.ConnHandle) (*connection, error) {
	c, ok := h.(*connection)
	if !ok {
		return nil, fmt.Errorf("goble: foreign connection handle %T", h)
	}
	return c, nil
}

// DisconnectAndClose cancels the connection and stops its monitor goroutines.
// Errors from the stack are reported to the caller but the handle is dead
// either way.
func (d *Driver) DisconnectAndClose(h transport.ConnHandle) error {
	c, err := d.conn(h)
	if err != nil {
		return err
	}

	c.cancel()

	client, _ := c.snapshot()
	if client == nil {
		return nil
	}
	if err := client.CancelConnection(); err != nil {
		return normalizeError("disconnect", err)
	}
	return nil
}

// DiscoverServices launches profile discovery on an established link.
// Completion arrives via cb.ServicesDiscovered.
func (d *Driver) DiscoverServices(h transport.ConnHandle) error {
	c, err := d.conn(h)
	if err != nil {
		return err
	}
	client, _ := c.snapshot()
	if client == nil {
		return fmt.Errorf("goble: link not established")
	}

	groutine.Go(context.Background(), "goble-discover", func(context.Context) {
		profile, err := client.DiscoverProfile(true)
		if err != nil {
			d.logger.WithField("address", c.peer.ID).
				WithError(normalizeError("discover", err)).
				Error("Service discovery failed")
			c.cb.ServicesDiscovered(c, false, codeDiscoveryFailed)
			return
		}

		c.mu.Lock()
		c.profile = profile
		c.mu.Unlock()

		d.logger.WithFields(logrus.Fields{
			"address":  c.peer.ID,
			"services": len(profile.Services),
		}).Debug("Service discovery complete")
		c.cb.ServicesDiscovered(c, true, 0)
	})
	return nil
}

// ResolveService looks up a discovered service by UUID.
func (d *Driver) ResolveService(h transport.ConnHandle, serviceUUID string) (transport.Service, bool) {
	c, err := d.conn(h)
	if err != nil {
		return nil, false
	}
	_, profile := c.snapshot()
	if profile == nil {
		return nil, false
	}

	want := transport.NormalizeUUID(serviceUUID)
	for _, svc := range profile.Services {
		if transport.NormalizeUUID(svc.UUID.String()) == want {
			return &service{conn: c, raw: svc}, true
		}
	}
	return nil, false
}

// ResolveCharacteristic looks up a characteristic within svc by UUID.
func (d *Driver) ResolveCharacteristic(svc transport.Service, charUUID string) (transport.Characteristic, bool) {
	s, ok := svc.(*service)
	if !ok {
		return nil, false
	}

	want := transport.NormalizeUUID(charUUID)
	for _, chr := range s.raw.Characteristics {
		if transport.NormalizeUUID(chr.UUID.String()) == want {
			return &characteristic{conn: s.conn, raw: chr}, true
		}
	}
	return nil, false
}

// ResolveDescriptor looks up a descriptor on chr by UUID.
func (d *Driver) ResolveDescriptor(chr transport.Characteristic, descriptorUUID string) (transport.Descriptor, bool) {
	ch, ok := chr.(*characteristic)
	if !ok {
		return nil, false
	}

	want := transport.NormalizeUUID(descriptorUUID)
	for _, desc := range ch.raw.Descriptors {
		if transport.NormalizeUUID(desc.UUID.String()) == want {
			return &descriptor{conn: ch.conn, raw: desc}, true
		}
	}
	return nil, false
}

// ReadCharacteristic accepts a read request and completes it asynchronously
// via cb.CharacteristicRead.
func (d *Driver) ReadCharacteristic(h transport.ConnHandle, chr transport.Characteristic) (bool, error) {
	c, err := d.conn(h)
	if err != nil {
		return false, err
	}
	ch, ok := chr.(*characteristic)
	if !ok {
		return false, fmt.Errorf("goble: foreign characteristic %T", chr)
	}
	client, _ := c.snapshot()
	if client == nil {
		return false, nil
	}

	groutine.Go(context.Background(), "goble-read", func(context.Context) {
		data, err := client.ReadCharacteristic(ch.raw)
		if err != nil {
			d.logger.WithFields(logrus.Fields{
				"address": c.peer.ID,
				"uuid":    ch.UUID(),
			}).WithError(normalizeError("read", err)).Error("Characteristic read failed")
			c.cb.CharacteristicRead(c, ch, nil, false)
			return
		}
		c.cb.CharacteristicRead(c, ch, data, true)
	})
	return true, nil
}

// WriteCharacteristicLegacy performs a boolean-returning write.
func (d *Driver) WriteCharacteristicLegacy(h transport.ConnHandle, chr transport.Characteristic, data []byte) (bool, error) {
	status, err := d.WriteCharacteristicModern(h, chr, data, transport.WriteWithResponse)
	if err != nil {
		return false, err
	}
	return status == transport.WriteSuccess, nil
}

// WriteCharacteristicModern performs a status-coded write. Permission loss is
// returned as an error; every other stack rejection maps to a non-success
// status.
func (d *Driver) WriteCharacteristicModern(h transport.ConnHandle, chr transport.Characteristic, data []byte, wt transport.WriteType) (transport.WriteStatus, error) {
	c, err := d.conn(h)
	if err != nil {
		return writeRejected, err
	}
	ch, ok := chr.(*characteristic)
	if !ok {
		return writeRejected, fmt.Errorf("goble: foreign characteristic %T", chr)
	}
	client, _ := c.snapshot()
	if client == nil {
		return writeRejected, fmt.Errorf("goble: link not established")
	}

	noRsp := wt == transport.WriteWithoutResponse
	if err := client.WriteCharacteristic(ch.raw, data, noRsp); err != nil {
		err = normalizeError("write", err)
		if _, denied := transport.AsPermissionError(err); denied {
			return writeRejected, err
		}
		d.logger.WithFields(logrus.Fields{
			"address": c.peer.ID,
			"uuid":    ch.UUID(),
		}).WithError(err).Warn("Characteristic write rejected")
		return writeRejected, nil
	}
	return transport.WriteSuccess, nil
}

// WriteDescriptorLegacy performs a boolean-returning descriptor write.
func (d *Driver) WriteDescriptorLegacy(h transport.ConnHandle, desc transport.Descriptor, data []byte) (bool, error) {
	status, err := d.WriteDescriptorModern(h, desc, data)
	if err != nil {
		return false, err
	}
	return status == transport.WriteSuccess, nil
}

// WriteDescriptorModern performs a status-coded descriptor write.
func (d *Driver) WriteDescriptorModern(h transport.ConnHandle, desc transport.Descriptor, data []byte) (transport.WriteStatus, error) {
	c, err := d.conn(h)
	if err != nil {
		return writeRejected, err
	}
	ds, ok := desc.(*descriptor)
	if !ok {
		return writeRejected, fmt.Errorf("goble: foreign descriptor %T", desc)
	}
	client, _ := c.snapshot()
	if client == nil {
		return writeRejected, fmt.Errorf("goble: link not established")
	}

	if err := client.WriteDescriptor(ds.raw, data); err != nil {
		err = normalizeError("write descriptor", err)
		if _, denied := transport.AsPermissionError(err); denied {
			return writeRejected, err
		}
		d.logger.WithFields(logrus.Fields{
			"address": c.peer.ID,
			"uuid":    ds.UUID(),
		}).WithError(err).Warn("Descriptor write rejected")
		return writeRejected, nil
	}
	return transport.WriteSuccess, nil
}

// SetLocalNotification subscribes or unsubscribes local delivery of value
// changes for chr. Subscribing tries notify first and falls back to indicate;
// unsubscribing tries both modes and fails only when both fail.
func (d *Driver) SetLocalNotification(h transport.ConnHandle, chr transport.Characteristic, enabled bool) (bool, error) {
	c, err := d.conn(h)
	if err != nil {
		return false, err
	}
	ch, ok := chr.(*characteristic)
	if !ok {
		return false, fmt.Errorf("goble: foreign characteristic %T", chr)
	}
	client, _ := c.snapshot()
	if client == nil {
		return false, fmt.Errorf("goble: link not established")
	}

	if !enabled {
		err1 := client.Unsubscribe(ch.raw, false) // notify
		err2 := client.Unsubscribe(ch.raw, true)  // indicate
		if err1 != nil && err2 != nil {
			d.logger.WithFields(logrus.Fields{
				"uuid":        ch.UUID(),
				"notifyErr":   err1,
				"indicateErr": err2,
			}).Error("Failed to unsubscribe from characteristic notifications")
			return false, nil
		}
		return true, nil
	}

	handler := func(data []byte) {
		c.cb.CharacteristicChanged(c, ch, data)
	}
	if err := client.Subscribe(ch.raw, false, handler); err != nil {
		err = normalizeError("subscribe", err)
		if _, denied := transport.AsPermissionError(err); denied {
			return false, err
		}
		if err2 := client.Subscribe(ch.raw, true, handler); err2 != nil {
			d.logger.WithFields(logrus.Fields{
				"uuid":        ch.UUID(),
				"notifyErr":   err,
				"indicateErr": err2,
			}).Error("Failed to subscribe to characteristic notifications")
			return false, nil
		}
	}
	return true, nil
}

// SupportsStatusWrites reports whether the status-coded write primitives are
// in use. It is false only when the driver was configured for legacy writes.
func (d *Driver) SupportsStatusWrites() bool {
	return !d.opts.LegacyWrites
}
