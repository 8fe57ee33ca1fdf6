package msp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	frame := Encode(0x2D, []byte{0xEE, 0xEF, 0x00, 0x01})
	require.Equal(t, []byte{'$', 'M', '<'}, frame[:3])
	require.Equal(t, byte(4), frame[3])
	require.Equal(t, byte(0x2D), frame[4])
	require.Equal(t, []byte{0xEE, 0xEF, 0x00, 0x01}, frame[5:9])
	require.Equal(t, Checksum(frame[3:9]), frame[9])
	require.Len(t, frame, 10)
}

func TestEncodeEmptyPayload(t *testing.T) {
	frame := Encode(0xF5, nil)
	require.Equal(t, []byte{'$', 'M', '<', 0, 0xF5, 0xF5}, frame)
}

func TestCommandHelpers(t *testing.T) {
	testCases := []struct {
		name     string
		frame    []byte
		function byte
		payload  []byte
	}{
		{name: "bind", frame: Bind(), function: FuncTelemetryPush,
			payload: []byte{0xEE, 0xEF, 0x00, 0x01}},
		{name: "discovery", frame: Discovery(), function: FuncDeviceDiscovery,
			payload: []byte{0x00, 0xEA}},
		{name: "link stats", frame: LinkStatsRequest(false), function: FuncTelemetryPush,
			payload: []byte{0xEE, 0xEF, 0x00, 0x00}},
		{name: "link stats with spectrum", frame: LinkStatsRequest(true), function: FuncTelemetryPush,
			payload: []byte{0xEE, 0xEF, 0x00, 0x01}},
		{name: "power up", frame: PowerUp(), function: FuncPowerControl, payload: []byte{0x01}},
		{name: "power down", frame: PowerDown(), function: FuncPowerControl, payload: []byte{0x00}},
		{name: "model select", frame: ModelSelect(3), function: FuncModelSelect, payload: []byte{0x03}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, byte(len(tc.payload)), tc.frame[3])
			require.Equal(t, tc.function, tc.frame[4])
			require.Equal(t, tc.payload, tc.frame[5:len(tc.frame)-1])
			require.Equal(t, Checksum(tc.frame[3:len(tc.frame)-1]), tc.frame[len(tc.frame)-1])
		})
	}
}
