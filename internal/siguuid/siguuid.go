// Package siguuid maps well-known Bluetooth SIG UUIDs to their assigned
// names for display purposes. The table covers the services and
// characteristics most commonly met in the field; unknown UUIDs resolve to
// an empty string and callers fall back to the raw UUID.
package siguuid

import "github.com/srg/blesession/transport"

var serviceNames = map[string]string{
	"1800": "Generic Access",
	"1801": "Generic Attribute",
	"180a": "Device Information",
	"180d": "Heart Rate",
	"180f": "Battery Service",
	"1810": "Blood Pressure",
	"1812": "Human Interface Device",
	"1816": "Cycling Speed and Cadence",
	"1818": "Cycling Power",
	"181a": "Environmental Sensing",
	"1826": "Fitness Machine",
	"fe59": "Nordic Secure DFU",
}

var characteristicNames = map[string]string{
	"2a00": "Device Name",
	"2a01": "Appearance",
	"2a05": "Service Changed",
	"2a19": "Battery Level",
	"2a24": "Model Number String",
	"2a25": "Serial Number String",
	"2a26": "Firmware Revision String",
	"2a29": "Manufacturer Name String",
	"2a37": "Heart Rate Measurement",
	"2a38": "Body Sensor Location",
	"2a39": "Heart Rate Control Point",
	"2a6e": "Temperature",
	"2a6f": "Humidity",
}

var descriptorNames = map[string]string{
	"2900": "Characteristic Extended Properties",
	"2901": "Characteristic User Description",
	"2902": "Client Characteristic Configuration",
	"2903": "Server Characteristic Configuration",
	"2904": "Characteristic Presentation Format",
}

// ServiceName returns the assigned name for a service UUID, or "".
func ServiceName(uuid string) string {
	return serviceNames[transport.NormalizeUUID(uuid)]
}

// CharacteristicName returns the assigned name for a characteristic UUID, or "".
func CharacteristicName(uuid string) string {
	return characteristicNames[transport.NormalizeUUID(uuid)]
}

// DescriptorName returns the assigned name for a descriptor UUID, or "".
func DescriptorName(uuid string) string {
	return descriptorNames[transport.NormalizeUUID(uuid)]
}

// Label renders a UUID together with its assigned name when one is known,
// e.g. "180d (Heart Rate)".
func Label(uuid string, lookup func(string) string) string {
	normalized := transport.NormalizeUUID(uuid)
	if normalized == "" {
		return uuid
	}
	if name := lookup(normalized); name != "" {
		return normalized + " (" + name + ")"
	}
	return normalized
}
