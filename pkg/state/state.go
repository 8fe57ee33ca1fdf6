// Package state provides the process-wide observable store of radio
// link state. One RadioState is constructed at startup and handed by
// reference to the transmitter façade and to observers.
package state

import (
	"sync"
	"sync/atomic"
	"time"
)

// MaxHistorySize bounds each telemetry history; eviction is FIFO.
const MaxHistorySize = 200

// MaxSpectrumBins bounds the spectrum snapshot.
const MaxSpectrumBins = 256

// Observer is invoked after every state mutation. It runs on the
// mutating goroutine: it must not block and must not reenter any
// RadioState mutation API.
type Observer func()

// RadioState is a shared observable store. Updates never fail;
// staleness is the reader's concern via the freshness accessors.
type RadioState struct {
	status atomic.Int32
	mode   atomic.Int32

	mu           sync.Mutex
	device       DeviceConfig
	live         LiveTelemetry
	rssiHist     []int
	lqHist       []int
	powerHist    []int
	spectrum     []int
	lastSpectrum time.Time
	lastErr      error
	observer     Observer

	startTime time.Time
}

// New creates a RadioState stamped with the process start time.
func New() *RadioState {
	now := time.Now()
	return &RadioState{
		startTime: now,
		live:      LiveTelemetry{RSSI1: -120, RSSI2: -120, LastUpdate: now},
		rssiHist:  make([]int, 0, MaxHistorySize),
		lqHist:    make([]int, 0, MaxHistorySize),
		powerHist: make([]int, 0, MaxHistorySize),
	}
}

// Subscribe installs the observer. The slot is single: a new
// subscription replaces the prior one. A nil observer unsubscribes.
func (s *RadioState) Subscribe(obs Observer) {
	s.mu.Lock()
	s.observer = obs
	s.mu.Unlock()
}

// SetConnectionStatus updates the link status.
func (s *RadioState) SetConnectionStatus(status ConnectionStatus) {
	s.status.Store(int32(status))
	s.notify()
}

// ConnectionStatus reads the link status.
func (s *RadioState) ConnectionStatus() ConnectionStatus {
	return ConnectionStatus(s.status.Load())
}

// SetMode updates the radio mode.
func (s *RadioState) SetMode(m Mode) {
	s.mode.Store(int32(m))
	s.notify()
}

// Mode reads the radio mode.
func (s *RadioState) Mode() Mode {
	return Mode(s.mode.Load())
}

// SetDeviceConfig records the connected device descriptor.
func (s *RadioState) SetDeviceConfig(cfg DeviceConfig) {
	s.mu.Lock()
	s.device = cfg
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// DeviceConfig returns a copy of the device descriptor.
func (s *RadioState) DeviceConfig() DeviceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// UpdateTelemetry replaces the live snapshot and appends the signal
// scalars to their histories.
func (s *RadioState) UpdateTelemetry(t LiveTelemetry) {
	s.mu.Lock()
	s.live = t
	s.touchLocked()
	s.pushLocked(&s.rssiHist, t.RSSI1)
	s.pushLocked(&s.lqHist, s.live.LinkQuality)
	s.pushLocked(&s.powerHist, t.TxPower)
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// UpdateLinkStats updates all signal scalars from one decoded link
// statistics frame under a single critical section, appending each to
// its history, with one observer invocation.
func (s *RadioState) UpdateLinkStats(rssi1, rssi2, quality, snr, power int) {
	if quality < 0 {
		quality = 0
	} else if quality > 100 {
		quality = 100
	}
	s.mu.Lock()
	s.live.RSSI1, s.live.RSSI2 = rssi1, rssi2
	s.live.LinkQuality = quality
	s.live.SNR = snr
	s.live.TxPower = power
	s.touchLocked()
	s.pushLocked(&s.rssiHist, rssi1)
	s.pushLocked(&s.lqHist, quality)
	s.pushLocked(&s.powerHist, power)
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// UpdateRSSI updates both RSSI readings.
func (s *RadioState) UpdateRSSI(rssi1, rssi2 int) {
	s.mu.Lock()
	s.live.RSSI1, s.live.RSSI2 = rssi1, rssi2
	s.touchLocked()
	s.pushLocked(&s.rssiHist, rssi1)
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// UpdateLinkQuality updates LQ, clamped to [0, 100].
func (s *RadioState) UpdateLinkQuality(quality int) {
	if quality < 0 {
		quality = 0
	} else if quality > 100 {
		quality = 100
	}
	s.mu.Lock()
	s.live.LinkQuality = quality
	s.touchLocked()
	s.pushLocked(&s.lqHist, quality)
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// UpdateTxPower updates the reported TX power.
func (s *RadioState) UpdateTxPower(power int) {
	s.mu.Lock()
	s.live.TxPower = power
	s.touchLocked()
	s.pushLocked(&s.powerHist, power)
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// UpdatePacketStats updates the wire-driven packet counters.
func (s *RadioState) UpdatePacketStats(rx, tx, lost uint32) {
	s.mu.Lock()
	s.live.PacketsReceived = rx
	s.live.PacketsTransmitted = tx
	s.live.PacketsLost = lost
	s.touchLocked()
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// AddPacketsReceived advances the received counter. Counters are
// driven only by actually decoded frames.
func (s *RadioState) AddPacketsReceived(n uint32) {
	s.mu.Lock()
	s.live.PacketsReceived += n
	s.touchLocked()
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// AddPacketsTransmitted advances the transmitted counter. Counters are
// driven only by actually emitted frames.
func (s *RadioState) AddPacketsTransmitted(n uint32) {
	s.mu.Lock()
	s.live.PacketsTransmitted += n
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// UpdateBattery updates voltage (V) and current (A).
func (s *RadioState) UpdateBattery(voltage, current float64) {
	s.mu.Lock()
	s.live.Voltage = voltage
	s.live.Current = current
	s.touchLocked()
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// UpdateTemperature updates the module temperature.
func (s *RadioState) UpdateTemperature(temp int) {
	s.mu.Lock()
	s.live.Temperature = temp
	s.touchLocked()
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// UpdateSpectrum replaces the spectrum snapshot, truncated to
// MaxSpectrumBins, and stamps it.
func (s *RadioState) UpdateSpectrum(bins []int) {
	if len(bins) > MaxSpectrumBins {
		bins = bins[:MaxSpectrumBins]
	}
	s.mu.Lock()
	s.spectrum = append(s.spectrum[:0], bins...)
	s.lastSpectrum = time.Now()
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// LiveTelemetry returns a copy of the live snapshot.
func (s *RadioState) LiveTelemetry() LiveTelemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Spectrum returns a copy of the spectrum snapshot and its timestamp.
func (s *RadioState) Spectrum() ([]int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bins := make([]int, len(s.spectrum))
	copy(bins, s.spectrum)
	return bins, s.lastSpectrum
}

// RSSIHistory returns up to maxPoints most recent RSSI samples.
func (s *RadioState) RSSIHistory(maxPoints int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.rssiHist, maxPoints)
}

// LinkQualityHistory returns up to maxPoints most recent LQ samples.
func (s *RadioState) LinkQualityHistory(maxPoints int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.lqHist, maxPoints)
}

// TxPowerHistory returns up to maxPoints most recent power samples.
func (s *RadioState) TxPowerHistory(maxPoints int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.powerHist, maxPoints)
}

// SetLastError records a transport-level failure.
func (s *RadioState) SetLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// LastError returns the recorded failure, nil if none.
func (s *RadioState) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError drops the recorded failure.
func (s *RadioState) ClearError() {
	s.SetLastError(nil)
}

// TelemetryFresh reports whether live telemetry is newer than maxAge.
func (s *RadioState) TelemetryFresh(maxAge time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.Valid && time.Since(s.live.LastUpdate) < maxAge
}

// SpectrumFresh reports whether the spectrum snapshot is newer than maxAge.
func (s *RadioState) SpectrumFresh(maxAge time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lastSpectrum.IsZero() && time.Since(s.lastSpectrum) < maxAge
}

// PacketLossRate returns lost packets as a percentage of the total.
func (s *RadioState) PacketLossRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.live.PacketsReceived + s.live.PacketsLost
	if total == 0 {
		return 0
	}
	return float64(s.live.PacketsLost) / float64(total) * 100
}

// ResetStatistics clears counters and histories and restarts the clock.
func (s *RadioState) ResetStatistics() {
	s.mu.Lock()
	s.live.PacketsReceived = 0
	s.live.PacketsTransmitted = 0
	s.live.PacketsLost = 0
	s.rssiHist = s.rssiHist[:0]
	s.lqHist = s.lqHist[:0]
	s.powerHist = s.powerHist[:0]
	s.startTime = time.Now()
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

// StartTime returns when this store was created or last reset.
func (s *RadioState) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime
}

// Uptime returns the time elapsed since StartTime.
func (s *RadioState) Uptime() time.Duration {
	return time.Since(s.StartTime())
}

func (s *RadioState) touchLocked() {
	s.live.LastUpdate = time.Now()
	s.live.Valid = true
}

func (s *RadioState) pushLocked(hist *[]int, v int) {
	h := *hist
	if len(h) >= MaxHistorySize {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	*hist = append(h, v)
}

func (s *RadioState) notify() {
	s.mu.Lock()
	cb := s.observer
	s.mu.Unlock()
	invoke(cb)
}

func tail(h []int, maxPoints int) []int {
	if maxPoints > 0 && len(h) > maxPoints {
		h = h[len(h)-maxPoints:]
	}
	out := make([]int, len(h))
	copy(out, h)
	return out
}

func invoke(cb Observer) {
	if cb != nil {
		cb()
	}
}
