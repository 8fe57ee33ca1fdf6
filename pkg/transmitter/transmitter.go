// Package transmitter drives an ELRS TX module over its serial
// endpoint: a 250Hz CRSF channel stream outbound, MSP commands on
// demand, and a reader loop decoding interleaved telemetry inbound.
package transmitter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/rcwire/elrsctl/pkg/framework"
	"github.com/rcwire/elrsctl/pkg/msp"
	"github.com/rcwire/elrsctl/pkg/state"
	"github.com/rcwire/elrsctl/pkg/telemetry"
)

// ErrNotConnected indicates a command was attempted without an open port.
var ErrNotConnected = errors.New("not connected")

// DevicePort is the façade's view of the serial endpoint. The real
// implementation is *port.Port; tests substitute a stub.
type DevicePort interface {
	Write(p []byte) error
	Read(buf []byte, timeout time.Duration) (int, error)
	Close() error
}

// ControlInputs are the control axes and switches fed to the TX loop.
// Axes are in [-1, +1], throttle in [0, +1]; the codec clamps
// out-of-range values rather than rejecting them.
type ControlInputs struct {
	Roll     float64
	Pitch    float64
	Yaw      float64
	Throttle float64
	Armed    bool
	Mode1    bool
	Mode2    bool
}

// TxInterval is the CRSF frame period: 250Hz.
const TxInterval = 4 * time.Millisecond

// readTimeout bounds each blocking read in the reader loop.
const readTimeout = 20 * time.Millisecond

// Transmitter wires the serial port, TX scheduler, telemetry handler
// and MSP command builder together. It exclusively owns the port: the
// TX loop and command helpers serialise writes through an internal
// mutex, and the reader loop is the only reader.
type Transmitter struct {
	st      *state.RadioState
	handler *telemetry.Handler

	portMu sync.Mutex
	port   DevicePort

	writeMu sync.Mutex

	inputsMu sync.Mutex
	inputs   ControlInputs

	runMu  sync.Mutex
	cancel context.CancelFunc
	doneCh chan struct{}

	tx txLoop
}

// New creates a Transmitter owning the given open port.
func New(p DevicePort, st *state.RadioState) *Transmitter {
	t := &Transmitter{
		st:      st,
		handler: telemetry.NewHandler(st),
		port:    p,
	}
	t.tx.transmitter = t
	return t
}

// Telemetry exposes the telemetry handler for callback attachment.
// Callbacks must be set before Start.
func (t *Transmitter) Telemetry() *telemetry.Handler {
	return t.handler
}

// Start spawns the TX and reader loops. Calling Start on a running
// transmitter is a no-op.
func (t *Transmitter) Start() error {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.cancel != nil {
		return nil
	}
	if t.getPort() == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	done := make(chan struct{})
	t.doneCh = done
	go func() {
		defer close(done)
		if err := t.run(ctx); err != nil && err != context.Canceled {
			glog.Errorf("transmitter stopped: %v", err)
		}
	}()
	return nil
}

// Stop cancels both loops, joins them and releases the port. Calling
// Stop on a stopped transmitter is a no-op.
func (t *Transmitter) Stop() {
	t.runMu.Lock()
	cancel, done := t.cancel, t.doneCh
	t.cancel, t.doneCh = nil, nil
	t.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	t.portMu.Lock()
	p := t.port
	t.port = nil
	t.portMu.Unlock()
	if p != nil {
		p.Close()
	}
	t.st.SetConnectionStatus(state.Disconnected)
}

// Run drives both loops until ctx is cancelled. It is the Runnable
// form used by daemons that manage lifecycle themselves; Start/Stop
// wrap it for interactive use.
func (t *Transmitter) Run(ctx context.Context) error {
	return t.run(ctx)
}

// Name implements framework.Named.
func (t *Transmitter) Name() string {
	return "transmitter"
}

func (t *Transmitter) run(ctx context.Context) error {
	t.st.SetConnectionStatus(state.Connected)
	runner := framework.NewRunnerWith(ctx)
	runner.Go(
		framework.NamedRun("tx-loop", framework.NewTickLoop(TxInterval, &t.tx)),
		framework.NamedRun("reader", framework.RunFunc(t.runReader)),
	)
	return runner.Wait()
}

// SetControlInputs replaces the control snapshot read by the TX loop.
func (t *Transmitter) SetControlInputs(in ControlInputs) {
	t.inputsMu.Lock()
	t.inputs = in
	t.inputsMu.Unlock()
}

// GetControlInputs returns the current control snapshot.
func (t *Transmitter) GetControlInputs() ControlInputs {
	t.inputsMu.Lock()
	defer t.inputsMu.Unlock()
	return t.inputs
}

// SetArmed sets only the arm switch.
func (t *Transmitter) SetArmed(armed bool) {
	t.inputsMu.Lock()
	t.inputs.Armed = armed
	t.inputsMu.Unlock()
	if armed {
		glog.Warning("ARM set: motors may spin")
	} else {
		glog.Info("disarmed")
	}
}

// EmergencyStop zeroes all axes and forces every switch off. The next
// frame on the wire encodes the safe state.
func (t *Transmitter) EmergencyStop() {
	t.inputsMu.Lock()
	t.inputs = ControlInputs{}
	t.inputsMu.Unlock()
	glog.Warning("emergency stop: all controls zeroed and disarmed")
}

// SendBind asks the module to enter binding mode.
func (t *Transmitter) SendBind() error {
	return t.sendMsp(msp.Bind())
}

// SendDeviceDiscovery scans the crossfire bus for devices.
func (t *Transmitter) SendDeviceDiscovery() error {
	return t.sendMsp(msp.Discovery())
}

// SendLinkStatsRequest queries link statistics, optionally asking for
// appended spectrum bins.
func (t *Transmitter) SendLinkStatsRequest(includeSpectrum bool) error {
	return t.sendMsp(msp.LinkStatsRequest(includeSpectrum))
}

// SendPowerUp steps TX power one level up.
func (t *Transmitter) SendPowerUp() error {
	return t.sendMsp(msp.PowerUp())
}

// SendPowerDown steps TX power one level down.
func (t *Transmitter) SendPowerDown() error {
	return t.sendMsp(msp.PowerDown())
}

// SendModelSelect switches the module to the given model slot.
func (t *Transmitter) SendModelSelect(modelID byte) error {
	return t.sendMsp(msp.ModelSelect(modelID))
}

// sendMsp reports whether the bytes were accepted by the OS write
// path, not whether the module acted on them.
func (t *Transmitter) sendMsp(frame []byte) error {
	p := t.getPort()
	if p == nil {
		return ErrNotConnected
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return p.Write(frame)
}

func (t *Transmitter) getPort() DevicePort {
	t.portMu.Lock()
	defer t.portMu.Unlock()
	return t.port
}
