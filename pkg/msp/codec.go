package msp

// ELRS MSP function ids.
const (
	// FuncDeviceDiscovery scans the crossfire bus for devices.
	FuncDeviceDiscovery byte = 0x28
	// FuncTelemetryPush carries ELRS parameter pushes outbound and
	// link statistics inbound.
	FuncTelemetryPush byte = 0x2D
	// FuncBattery carries battery telemetry inbound.
	FuncBattery byte = 0x2E
	// FuncPowerControl steps TX power up or down.
	FuncPowerControl byte = 0xF5
	// FuncModelSelect switches the active model slot.
	FuncModelSelect byte = 0xF6
)

// Crossfire device ids used in ELRS parameter pushes.
const (
	DeviceIDTxModule byte = 0xEE
	DeviceIDHandset  byte = 0xEF
)

// Checksum computes the MSP v1 XOR checksum over data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// Encode builds an outbound MSP v1 request:
// $M< [len] [function] [payload...] [xor of len, function, payload].
func Encode(function byte, payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+6)
	frame = append(frame, '$', 'M', '<', byte(len(payload)), function)
	frame = append(frame, payload...)
	frame = append(frame, Checksum(frame[3:]))
	return frame
}

// Bind requests the TX module to enter binding mode.
func Bind() []byte {
	return Encode(FuncTelemetryPush, []byte{DeviceIDTxModule, DeviceIDHandset, 0x00, 0x01})
}

// Discovery scans for ELRS devices on the bus.
func Discovery() []byte {
	return Encode(FuncDeviceDiscovery, []byte{0x00, 0xEA})
}

// LinkStatsRequest queries link statistics. When includeSpectrum is
// set, bit0 of the status byte asks the module to append spectrum bins.
func LinkStatsRequest(includeSpectrum bool) []byte {
	status := byte(0x00)
	if includeSpectrum {
		status = 0x01
	}
	return Encode(FuncTelemetryPush, []byte{DeviceIDTxModule, DeviceIDHandset, 0x00, status})
}

// PowerUp steps TX power one level up.
func PowerUp() []byte {
	return Encode(FuncPowerControl, []byte{0x01})
}

// PowerDown steps TX power one level down.
func PowerDown() []byte {
	return Encode(FuncPowerControl, []byte{0x00})
}

// ModelSelect switches the module to the given model slot.
func ModelSelect(modelID byte) []byte {
	return Encode(FuncModelSelect, []byte{modelID})
}
