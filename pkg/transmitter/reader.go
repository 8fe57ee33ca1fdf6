package transmitter

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/rcwire/elrsctl/pkg/crsf"
	"github.com/rcwire/elrsctl/pkg/msp"
	"github.com/rcwire/elrsctl/pkg/port"
	"github.com/rcwire/elrsctl/pkg/state"
)

// runReader reads serial bytes and feeds every byte to both deframers
// in sequence. Decoded frames dispatch synchronously on this
// goroutine, so observer callbacks execute here.
func (t *Transmitter) runReader(ctx context.Context) error {
	buf := make([]byte, 256)
	var crsfDef crsf.Deframer
	var mspDef msp.Deframer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p := t.getPort()
		if p == nil {
			return nil
		}
		n, err := p.Read(buf, readTimeout)
		if err != nil {
			if errors.Is(err, port.ErrClosed) {
				return nil
			}
			t.st.SetLastError(err)
			t.st.SetConnectionStatus(state.Failed)
			glog.V(1).Infof("serial read failed: %v", err)
			// Stay alive: the endpoint may return after the USB bus
			// re-enumerates.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		// n == 0 is a read timeout, not an error.
		for _, b := range buf[:n] {
			if f, ok := mspDef.Push(b); ok {
				t.handler.HandleMSP(f)
			}
			if f, ok := crsfDef.Push(b); ok {
				t.handler.HandleCRSF(f)
			}
		}
	}
}
