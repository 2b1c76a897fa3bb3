package goble

import (
	"github.com/go-ble/ble"

	"github.com/srg/blesession/transport"
)

// advertisement is an immutable snapshot of one ble.Advertisement. Fields are
// copied at construction because go-ble reuses the underlying packet buffer
// between callback invocations.
type advertisement struct {
	addr        string
	localName   string
	rssi        int
	connectable bool
	services    []string
	raw         []byte
}

func newAdvertisement(adv ble.Advertisement) transport.Advertisement {
	bleServices := adv.Services()
	services := make([]string, len(bleServices))
	for i, svc := range bleServices {
		services[i] = transport.NormalizeUUID(svc.String())
	}

	// Manufacturer payload is the only raw advertisement content go-ble
	// exposes across platforms.
	var raw []byte
	if md := adv.ManufacturerData(); len(md) > 0 {
		raw = make([]byte, len(md))
		copy(raw, md)
	}

	return &advertisement{
		addr:        adv.Addr().String(),
		localName:   adv.LocalName(),
		rssi:        adv.RSSI(),
		connectable: adv.Connectable(),
		services:    services,
		raw:         raw,
	}
}

func (a *advertisement) Addr() string       { return a.addr }
func (a *advertisement) LocalName() string  { return a.localName }
func (a *advertisement) RSSI() int          { return a.rssi }
func (a *advertisement) Connectable() bool  { return a.connectable }
func (a *advertisement) Services() []string { return a.services }
func (a *advertisement) Raw() []byte        { return a.raw }
