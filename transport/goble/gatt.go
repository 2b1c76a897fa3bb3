package goble

import (
	"github.com/go-ble/ble"

	"github.com/srg/blesession/transport"
)

// service wraps a discovered ble.Service. Handles stay tied to the connection
// they were resolved on so characteristic and descriptor lookups can reach the
// owning client.
type service struct {
	conn *connection
	raw  *ble.Service
}

func (s *service) UUID() string { return transport.NormalizeUUID(s.raw.UUID.String()) }

type characteristic struct {
	conn *connection
	raw  *ble.Characteristic
}

func (c *characteristic) UUID() string { return transport.NormalizeUUID(c.raw.UUID.String()) }

type descriptor struct {
	conn *connection
	raw  *ble.Descriptor
}

func (d *descriptor) UUID() string { return transport.NormalizeUUID(d.raw.UUID.String()) }
