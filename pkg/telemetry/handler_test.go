package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcwire/elrsctl/pkg/msp"
	"github.com/rcwire/elrsctl/pkg/state"
)

func TestLinkStatsCompact(t *testing.T) {
	st := state.New()
	h := NewHandler(st)
	var got LinkStats
	h.OnLinkStats = func(ls LinkStats) { got = ls }

	h.HandleMSP(msp.Frame{Function: 0x2D, Payload: []byte{0xA4, 0x5A, 0x0A, 0x14}})

	expected := LinkStats{RSSI1: -92, RSSI2: -92, LinkQuality: 90, SNR: 10, TxPower: 20, Valid: true}
	require.Equal(t, expected, got)
	require.Equal(t, expected, h.LatestLinkStats())

	live := st.LiveTelemetry()
	require.Equal(t, -92, live.RSSI1)
	require.Equal(t, -92, live.RSSI2)
	require.Equal(t, 90, live.LinkQuality)
	require.Equal(t, 10, live.SNR)
	require.Equal(t, 20, live.TxPower)
	require.True(t, live.Valid)
	require.Equal(t, uint32(1), live.PacketsReceived)
}

func TestLinkStatsCompactWithSpectrum(t *testing.T) {
	st := state.New()
	h := NewHandler(st)
	var bins []int
	h.OnSpectrum = func(b []int) { bins = b }

	// Compact layouts hold at most 5 trailing bins; a longer payload
	// would select the legacy layout instead.
	payload := []byte{0xA4, 0x5A, 0x0A, 0x14, 1, 2, 3, 4, 5}
	h.HandleMSP(msp.Frame{Function: 0x2D, Payload: payload})

	require.Equal(t, []int{1, 2, 3, 4, 5}, bins)
	got, _ := st.Spectrum()
	require.Equal(t, bins, got)
	require.True(t, st.SpectrumFresh(time.Second))

	ls := h.LatestLinkStats()
	require.Equal(t, LinkStats{RSSI1: -92, RSSI2: -92, LinkQuality: 90, SNR: 10, TxPower: 20, Valid: true}, ls)
}

func TestLinkStatsLegacyLayout(t *testing.T) {
	st := state.New()
	h := NewHandler(st)

	payload := []byte{0xB0, 0xB2, 0x5F, 0x05, 0x19, 0, 0, 0, 0, 0, 9, 8, 7}
	h.HandleMSP(msp.Frame{Function: 0x2D, Payload: payload})

	ls := h.LatestLinkStats()
	require.Equal(t, LinkStats{RSSI1: -80, RSSI2: -78, LinkQuality: 95, SNR: 5, TxPower: 25, Valid: true}, ls)
	bins, _ := st.Spectrum()
	require.Equal(t, []int{9, 8, 7}, bins)
}

func TestLinkStatsTooShortDiscarded(t *testing.T) {
	st := state.New()
	h := NewHandler(st)
	var calls int
	st.Subscribe(func() { calls++ })

	h.HandleMSP(msp.Frame{Function: 0x2D, Payload: []byte{0xA4, 0x5A}})

	require.Zero(t, calls, "discarded frame must not mutate state")
	require.False(t, h.LatestLinkStats().Valid)
	require.False(t, st.LiveTelemetry().Valid)
}

func TestBattery(t *testing.T) {
	st := state.New()
	h := NewHandler(st)
	var got BatteryInfo
	h.OnBattery = func(b BatteryInfo) { got = b }

	// 16.8V, 12.5A, 1500mAh big-endian.
	h.HandleMSP(msp.Frame{Function: 0x2E, Payload: []byte{0x41, 0xA0, 0x30, 0xD4, 0x05, 0xDC}})

	require.Equal(t, BatteryInfo{VoltageMV: 16800, CurrentMA: 12500, CapacityMAH: 1500, Valid: true}, got)
	live := st.LiveTelemetry()
	require.InDelta(t, 16.8, live.Voltage, 1e-9)
	require.InDelta(t, 12.5, live.Current, 1e-9)
}

func TestBatteryTooShortDiscarded(t *testing.T) {
	st := state.New()
	h := NewHandler(st)
	h.HandleMSP(msp.Frame{Function: 0x2E, Payload: []byte{1, 2, 3}})
	require.False(t, h.LatestBattery().Valid)
}

func TestUnknownFunctionIgnored(t *testing.T) {
	st := state.New()
	h := NewHandler(st)
	var calls int
	st.Subscribe(func() { calls++ })

	h.HandleMSP(msp.Frame{Function: 0x99, Payload: []byte{1, 2, 3}})

	require.Zero(t, calls)
	require.Zero(t, h.FramesDecoded())
}
