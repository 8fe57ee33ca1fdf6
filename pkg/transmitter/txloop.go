package transmitter

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/rcwire/elrsctl/pkg/crsf"
)

// statsFoldInterval is how many frames the TX loop emits between
// folds of its local counter into the shared state. Folding per frame
// would fire the observer at 250Hz from the hot path.
const statsFoldInterval = 250

// txLoop is the 250Hz transmit scheduler. The tick path performs no
// allocation in steady state: the frame buffer and channel array are
// reused across ticks.
type txLoop struct {
	transmitter *Transmitter

	frame    [crsf.RCFrameSize]byte
	channels [crsf.ChannelCount]uint16
	sent     uint32
	errors   uint64
}

// Tick implements framework.Ticker.
func (l *txLoop) Tick(ctx context.Context, now time.Time) error {
	t := l.transmitter
	in := t.GetControlInputs()

	l.channels[0] = crsf.MapStick(in.Roll)
	l.channels[1] = crsf.MapStick(in.Pitch)
	l.channels[2] = crsf.MapThrottle(in.Throttle)
	l.channels[3] = crsf.MapStick(in.Yaw)
	l.channels[4] = crsf.MapSwitch(in.Armed) // AUX1: arm
	l.channels[5] = crsf.MapSwitch(in.Mode1)
	l.channels[6] = crsf.MapSwitch(in.Mode2)
	for i := 7; i < crsf.ChannelCount; i++ {
		l.channels[i] = crsf.ChannelMid
	}
	crsf.EncodeRCChannels(&l.channels, l.frame[:])

	p := t.getPort()
	if p == nil {
		return ErrNotConnected
	}
	t.writeMu.Lock()
	err := p.Write(l.frame[:])
	t.writeMu.Unlock()
	if err != nil {
		// Count and continue; the module may come back after a bus
		// re-enumeration and backpressure sits in the OS buffer.
		l.errors++
		if l.errors%50 == 1 {
			glog.V(1).Infof("CRSF write failed (count %d): %v", l.errors, err)
		}
		return nil
	}

	l.sent++
	if l.sent%statsFoldInterval == 0 {
		t.st.AddPacketsTransmitted(statsFoldInterval)
	}
	return nil
}

// WriteErrors reports the number of failed frame writes.
func (l *txLoop) WriteErrors() uint64 {
	return l.errors
}
