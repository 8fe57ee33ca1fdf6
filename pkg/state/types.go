package state

import "time"

// ConnectionStatus indicates the state of the serial link to the module.
type ConnectionStatus int32

const (
	// Disconnected means no port is open.
	Disconnected ConnectionStatus = iota
	// Connecting means the port is being acquired.
	Connecting
	// Connected means the link is up.
	Connected
	// Failed means the link reported a transport error.
	Failed
	// Timeout means the module stopped answering.
	Timeout
)

func (s ConnectionStatus) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Failed:
		return "Error"
	case Timeout:
		return "Timeout"
	}
	return "Unknown"
}

// Mode is the radio operation mode.
type Mode int32

const (
	ModeNormal Mode = iota
	ModeBinding
	ModeTesting
	ModeUpdating
	ModeConfiguration
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "Normal"
	case ModeBinding:
		return "Binding"
	case ModeTesting:
		return "Testing"
	case ModeUpdating:
		return "Updating"
	case ModeConfiguration:
		return "Configuration"
	}
	return "Unknown"
}

// DeviceConfig describes the connected transmitter module.
type DeviceConfig struct {
	ProductName     string `json:"productName,omitempty"`
	Manufacturer    string `json:"manufacturer,omitempty"`
	SerialNumber    string `json:"serialNumber,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
	HardwareVersion string `json:"hardwareVersion,omitempty"`
	VID             uint16 `json:"vid,omitempty"`
	PID             uint16 `json:"pid,omitempty"`

	Frequency string `json:"frequency,omitempty"`
	Protocol  string `json:"protocol,omitempty"`
	BaudRate  int    `json:"baudRate,omitempty"`
	Verified  bool   `json:"verified,omitempty"`
}

// LiveTelemetry is the latest decoded telemetry snapshot.
type LiveTelemetry struct {
	RSSI1       int `json:"rssi1"`
	RSSI2       int `json:"rssi2"`
	LinkQuality int `json:"linkQuality"`
	SNR         int `json:"snr"`
	TxPower     int `json:"txPower"`

	PacketsReceived    uint32 `json:"packetsReceived"`
	PacketsTransmitted uint32 `json:"packetsTransmitted"`
	PacketsLost        uint32 `json:"packetsLost"`

	Voltage     float64 `json:"voltage"`
	Current     float64 `json:"current"`
	Temperature int     `json:"temperature"`

	LastUpdate time.Time `json:"lastUpdate"`
	Valid      bool      `json:"valid"`
}
