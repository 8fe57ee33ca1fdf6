package transmitter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcwire/elrsctl/pkg/crsf"
	"github.com/rcwire/elrsctl/pkg/msp"
	"github.com/rcwire/elrsctl/pkg/port"
	"github.com/rcwire/elrsctl/pkg/state"
)

// stubPort records writes and serves injected read bytes.
type stubPort struct {
	mu         sync.Mutex
	writes     [][]byte
	writeTimes []time.Time
	rx         []byte
	writeErr   error
	closed     bool
}

func (s *stubPort) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return port.ErrClosed
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	b := make([]byte, len(p))
	copy(b, p)
	s.writes = append(s.writes, b)
	s.writeTimes = append(s.writeTimes, time.Now())
	return nil
}

func (s *stubPort) Read(buf []byte, timeout time.Duration) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, port.ErrClosed
	}
	if len(s.rx) > 0 {
		n := copy(buf, s.rx)
		s.rx = s.rx[n:]
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (s *stubPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubPort) inject(p []byte) {
	s.mu.Lock()
	s.rx = append(s.rx, p...)
	s.mu.Unlock()
}

func (s *stubPort) rcFrames() ([][]byte, []time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var frames [][]byte
	var times []time.Time
	for i, w := range s.writes {
		if len(w) == crsf.RCFrameSize && w[0] == crsf.AddrFlightController {
			frames = append(frames, w)
			times = append(times, s.writeTimes[i])
		}
	}
	return frames, times
}

func frameChannels(t *testing.T, frame []byte) [crsf.ChannelCount]uint16 {
	t.Helper()
	require.Len(t, frame, crsf.RCFrameSize)
	require.Equal(t, crsf.TypeRCChannelsPacked, frame[2])
	return crsf.UnpackChannels(frame[3 : 3+crsf.PackedChannelsSize])
}

func tickOnce(t *testing.T, tx *Transmitter) []byte {
	t.Helper()
	require.NoError(t, tx.tx.Tick(context.Background(), time.Now()))
	frames, _ := tx.port.(*stubPort).rcFrames()
	require.NotEmpty(t, frames)
	return frames[len(frames)-1]
}

func TestTickEncodesControlInputs(t *testing.T) {
	stub := &stubPort{}
	tx := New(stub, state.New())
	tx.SetControlInputs(ControlInputs{Roll: -1, Pitch: 1, Yaw: 0, Throttle: 1, Armed: true, Mode2: true})

	ch := frameChannels(t, tickOnce(t, tx))
	require.Equal(t, crsf.ChannelMin, ch[0])
	require.Equal(t, crsf.ChannelMax, ch[1])
	require.Equal(t, crsf.ChannelMax, ch[2])
	require.Equal(t, crsf.ChannelMid, ch[3])
	require.Equal(t, crsf.ChannelMax, ch[4], "AUX1 arm high")
	require.Equal(t, crsf.ChannelMin, ch[5])
	require.Equal(t, crsf.ChannelMax, ch[6])
	for i := 7; i < crsf.ChannelCount; i++ {
		require.Equal(t, crsf.ChannelMid, ch[i])
	}
}

func TestEmergencyStop(t *testing.T) {
	stub := &stubPort{}
	tx := New(stub, state.New())
	tx.SetControlInputs(ControlInputs{Throttle: 0.9, Armed: true})
	tickOnce(t, tx)

	tx.EmergencyStop()
	in := tx.GetControlInputs()
	require.False(t, in.Armed)
	require.Zero(t, in.Roll)
	require.Zero(t, in.Pitch)
	require.Zero(t, in.Yaw)
	require.Zero(t, in.Throttle)

	ch := frameChannels(t, tickOnce(t, tx))
	require.Equal(t, crsf.ChannelMin, ch[2], "throttle low")
	require.Equal(t, crsf.ChannelMin, ch[4], "disarmed")
}

func TestTickContinuesOnWriteFailure(t *testing.T) {
	stub := &stubPort{writeErr: errors.New("bus gone")}
	tx := New(stub, state.New())
	for i := 0; i < 3; i++ {
		require.NoError(t, tx.tx.Tick(context.Background(), time.Now()))
	}
	require.Equal(t, uint64(3), tx.tx.WriteErrors())
}

func TestSendCommandsWriteFrames(t *testing.T) {
	stub := &stubPort{}
	tx := New(stub, state.New())

	require.NoError(t, tx.SendBind())
	require.NoError(t, tx.SendPowerUp())
	require.NoError(t, tx.SendModelSelect(2))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.writes, 3)
	require.Equal(t, msp.Bind(), stub.writes[0])
	require.Equal(t, msp.PowerUp(), stub.writes[1])
	require.Equal(t, msp.ModelSelect(2), stub.writes[2])
}

func TestSendFailsWhenNotConnected(t *testing.T) {
	tx := New(nil, state.New())
	require.ErrorIs(t, tx.SendBind(), ErrNotConnected)
	require.ErrorIs(t, tx.SendLinkStatsRequest(true), ErrNotConnected)
}

func TestStartStopIdempotent(t *testing.T) {
	stub := &stubPort{}
	st := state.New()
	tx := New(stub, st)

	require.NoError(t, tx.Start())
	require.NoError(t, tx.Start())
	require.Eventually(t, func() bool {
		return st.ConnectionStatus() == state.Connected
	}, time.Second, time.Millisecond)

	tx.Stop()
	tx.Stop()
	require.Equal(t, state.Disconnected, st.ConnectionStatus())
	require.ErrorIs(t, tx.SendBind(), ErrNotConnected)
}

func TestReaderDispatchesTelemetry(t *testing.T) {
	stub := &stubPort{}
	st := state.New()
	tx := New(stub, st)

	payload := []byte{0xA4, 0x5A, 0x0A, 0x14}
	reply := []byte{'$', 'M', '>', byte(len(payload)), 0x2D}
	reply = append(reply, payload...)
	reply = append(reply, msp.Checksum(reply[3:]))
	stub.inject(reply)

	require.NoError(t, tx.Start())
	defer tx.Stop()

	require.Eventually(t, func() bool {
		return st.LiveTelemetry().Valid
	}, time.Second, 5*time.Millisecond)
	live := st.LiveTelemetry()
	require.Equal(t, -92, live.RSSI1)
	require.Equal(t, 90, live.LinkQuality)
}

func TestCadence250Hz(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	stub := &stubPort{}
	tx := New(stub, state.New())
	require.NoError(t, tx.Start())
	time.Sleep(time.Second)
	tx.Stop()

	frames, times := stub.rcFrames()
	require.InDelta(t, 250, len(frames), 5)
	require.GreaterOrEqual(t, len(times), 2)
	mean := times[len(times)-1].Sub(times[0]) / time.Duration(len(times)-1)
	require.Greater(t, mean, 3800*time.Microsecond)
	require.Less(t, mean, 4200*time.Microsecond)
}
