// Package port provides scoped access to the CDC serial endpoint of
// an ELRS transmitter module.
package port

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// DefaultBaudRate is the CRSF line rate of ELRS modules.
const DefaultBaudRate = 420000

// DefaultReadTimeout keeps reader loops responsive; a zero-byte read
// after this interval is a timeout, not an error.
const DefaultReadTimeout = 20 * time.Millisecond

// ErrClosed indicates an operation on a released port.
var ErrClosed = errors.New("port closed")

// Port is one exclusively-owned serial endpoint, 8-N-1 with no flow
// control and modem lines held low.
type Port struct {
	name        string
	dev         serial.Port
	readTimeout time.Duration
}

// Open acquires the named endpoint and purges both directions.
func Open(name string, baudRate int) (*Port, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	dev, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	// ELRS modules reset on asserted modem lines.
	dev.SetDTR(false)
	dev.SetRTS(false)
	dev.ResetInputBuffer()
	dev.ResetOutputBuffer()
	if err := dev.SetReadTimeout(DefaultReadTimeout); err != nil {
		dev.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	glog.V(2).Infof("opened %s at %d baud", name, baudRate)
	return &Port{name: name, dev: dev, readTimeout: DefaultReadTimeout}, nil
}

// Name returns the endpoint name the port was opened with.
func (p *Port) Name() string {
	return p.name
}

// Write emits the whole buffer or fails.
func (p *Port) Write(b []byte) error {
	if p.dev == nil {
		return ErrClosed
	}
	n, err := p.dev.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}

// Read fills buf with whatever arrives within timeout and returns the
// count. Zero on timeout is not an error.
func (p *Port) Read(buf []byte, timeout time.Duration) (int, error) {
	if p.dev == nil {
		return 0, ErrClosed
	}
	if timeout != p.readTimeout {
		if err := p.dev.SetReadTimeout(timeout); err != nil {
			return 0, err
		}
		p.readTimeout = timeout
	}
	return p.dev.Read(buf)
}

// Close releases the endpoint. Safe to call more than once.
func (p *Port) Close() error {
	if p.dev == nil {
		return nil
	}
	dev := p.dev
	p.dev = nil
	glog.V(2).Infof("closed %s", p.name)
	return dev.Close()
}
