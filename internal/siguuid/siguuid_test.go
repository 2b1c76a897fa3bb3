package siguuid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceName(t *testing.T) {
	assert.Equal(t, "Heart Rate", ServiceName("180d"))
	assert.Equal(t, "Heart Rate", ServiceName("180D"))
	// Full SIG-base form normalizes down to the short form
	assert.Equal(t, "Heart Rate", ServiceName("0000180d-0000-1000-8000-00805f9b34fb"))
	assert.Equal(t, "", ServiceName("ffff"))
}

func TestCharacteristicName(t *testing.T) {
	assert.Equal(t, "Heart Rate Measurement", CharacteristicName("2a37"))
	assert.Equal(t, "Battery Level", CharacteristicName("2A19"))
	assert.Equal(t, "", CharacteristicName("beef"))
}

func TestDescriptorName(t *testing.T) {
	assert.Equal(t, "Client Characteristic Configuration", DescriptorName("2902"))
	assert.Equal(t, "Client Characteristic Configuration",
		DescriptorName("00002902-0000-1000-8000-00805f9b34fb"))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "180d (Heart Rate)", Label("180D", ServiceName))
	assert.Equal(t, "abcd", Label("ABCD", ServiceName))
	// Unparseable input falls back to the raw string
	assert.Equal(t, "not-a-uuid", Label("not-a-uuid", ServiceName))
}
