// Package telemetry routes decoded frames from the reader loop to the
// shared radio state and to optional typed callbacks.
package telemetry

import (
	"sync"

	"github.com/golang/glog"

	"github.com/rcwire/elrsctl/pkg/crsf"
	"github.com/rcwire/elrsctl/pkg/msp"
	"github.com/rcwire/elrsctl/pkg/state"
)

// LinkStats is the latest decoded link statistics reply.
type LinkStats struct {
	RSSI1       int
	RSSI2       int
	LinkQuality int
	SNR         int
	TxPower     int
	Valid       bool
}

// BatteryInfo is the latest decoded battery reply.
type BatteryInfo struct {
	VoltageMV   int
	CurrentMA   int
	CapacityMAH int
	Valid       bool
}

// Handler dispatches inbound frames by MSP function id. Callbacks run
// on the reader goroutine and follow the observer contract: never
// block, never reenter state mutation APIs.
type Handler struct {
	State *state.RadioState

	// Optional typed callbacks, set before the reader starts.
	OnLinkStats func(LinkStats)
	OnBattery   func(BatteryInfo)
	OnSpectrum  func([]int)

	mu      sync.Mutex
	link    LinkStats
	battery BatteryInfo
	decoded uint32
}

// NewHandler creates a Handler publishing into st.
func NewHandler(st *state.RadioState) *Handler {
	return &Handler{State: st}
}

// FramesDecoded reports how many telemetry frames were dispatched.
func (h *Handler) FramesDecoded() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.decoded
}

// LatestLinkStats returns the most recent link statistics.
func (h *Handler) LatestLinkStats() LinkStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.link
}

// LatestBattery returns the most recent battery reading.
func (h *Handler) LatestBattery() BatteryInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.battery
}

// HandleMSP consumes one decoded inbound MSP frame. Frames with an
// unexpected length for a known function mutate nothing.
func (h *Handler) HandleMSP(f msp.Frame) {
	switch f.Function {
	case msp.FuncTelemetryPush:
		h.handleLinkStats(f.Payload)
	case msp.FuncBattery:
		h.handleBattery(f.Payload)
	default:
		glog.V(3).Infof("ignoring MSP function 0x%02X (%d bytes)", f.Function, len(f.Payload))
	}
}

// HandleCRSF consumes one decoded inbound CRSF frame. Primary
// telemetry arrives via MSP; this is a hook point for firmware that
// mirrors CRSF telemetry onto the host link.
func (h *Handler) HandleCRSF(f crsf.Frame) {
	glog.V(3).Infof("CRSF frame type 0x%02X from 0x%02X (%d bytes)", f.Type, f.Addr, len(f.Payload))
}

func (h *Handler) handleLinkStats(p []byte) {
	var ls LinkStats
	var binStart int
	switch {
	case len(p) >= 10:
		// Legacy layout with dual RSSI; spectrum bins follow byte 10.
		ls = LinkStats{
			RSSI1:       int(int8(p[0])),
			RSSI2:       int(int8(p[1])),
			LinkQuality: int(p[2]),
			SNR:         int(int8(p[3])),
			TxPower:     int(p[4]),
			Valid:       true,
		}
		binStart = 10
	case len(p) >= 4:
		// Compact layout; spectrum bins follow byte 4.
		ls = LinkStats{
			RSSI1:       int(int8(p[0])),
			RSSI2:       int(int8(p[0])),
			LinkQuality: int(p[1]),
			SNR:         int(int8(p[2])),
			TxPower:     int(p[3]),
			Valid:       true,
		}
		binStart = 4
	default:
		glog.V(2).Infof("link stats payload too short: %d bytes", len(p))
		return
	}

	h.mu.Lock()
	h.link = ls
	h.decoded++
	h.mu.Unlock()

	h.State.AddPacketsReceived(1)
	h.State.UpdateLinkStats(ls.RSSI1, ls.RSSI2, ls.LinkQuality, ls.SNR, ls.TxPower)
	if h.OnLinkStats != nil {
		h.OnLinkStats(ls)
	}

	if len(p) > binStart {
		bins := make([]int, len(p)-binStart)
		for i, b := range p[binStart:] {
			bins[i] = int(b)
		}
		h.State.UpdateSpectrum(bins)
		if h.OnSpectrum != nil {
			h.OnSpectrum(bins)
		}
	}
}

func (h *Handler) handleBattery(p []byte) {
	if len(p) < 6 {
		glog.V(2).Infof("battery payload too short: %d bytes", len(p))
		return
	}
	bi := BatteryInfo{
		VoltageMV:   int(p[0])<<8 | int(p[1]),
		CurrentMA:   int(p[2])<<8 | int(p[3]),
		CapacityMAH: int(p[4])<<8 | int(p[5]),
		Valid:       true,
	}

	h.mu.Lock()
	h.battery = bi
	h.decoded++
	h.mu.Unlock()

	h.State.AddPacketsReceived(1)
	h.State.UpdateBattery(float64(bi.VoltageMV)/1000, float64(bi.CurrentMA)/1000)
	if h.OnBattery != nil {
		h.OnBattery(bi)
	}
}
