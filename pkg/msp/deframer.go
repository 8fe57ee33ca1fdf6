package msp

// MaxPayloadSize caps inbound payload buffers. Length semantics allow
// up to 255 but module replies never approach that; larger lengths
// reset the parser instead of growing the buffer.
const MaxPayloadSize = 128

// Frame contains the information of a parsed inbound MSP reply.
type Frame struct {
	Function byte
	Payload  []byte
}

type parseState int

const (
	stateIdle parseState = iota
	stateExpectM
	stateExpectDir
	stateExpectLen
	stateExpectFunc
	stateReadPayload
	stateExpectChecksum
)

// Deframer parses bytes received into validated MSP v1 frames.
// Only frames with direction '>' (module to host) are surfaced.
type Deframer struct {
	state       parseState
	fromDevice  bool
	expectedLen int
	function    byte
	checksum    byte
	payload     [MaxPayloadSize]byte
	recvLen     int

	checksumErrors uint64
}

// ChecksumErrors reports the number of frames dropped for checksum mismatch.
func (d *Deframer) ChecksumErrors() uint64 {
	return d.checksumErrors
}

// Reset resets the internal state of the deframer.
func (d *Deframer) Reset() {
	d.state = stateIdle
	d.fromDevice = false
	d.expectedLen = 0
	d.function = 0
	d.checksum = 0
	d.recvLen = 0
}

// Push consumes one byte and returns a complete frame when the byte
// finishes one. Malformed frames are dropped silently.
func (d *Deframer) Push(b byte) (Frame, bool) {
	switch d.state {
	case stateIdle:
		if b == '$' {
			d.state = stateExpectM
		}
	case stateExpectM:
		if b == 'M' {
			d.state = stateExpectDir
		} else {
			d.Reset()
		}
	case stateExpectDir:
		if b != '<' && b != '>' {
			d.Reset()
			break
		}
		d.fromDevice = b == '>'
		d.state = stateExpectLen
	case stateExpectLen:
		if int(b) > MaxPayloadSize {
			d.Reset()
			break
		}
		d.expectedLen = int(b)
		d.checksum = b
		d.recvLen = 0
		d.state = stateExpectFunc
	case stateExpectFunc:
		d.function = b
		d.checksum ^= b
		if d.expectedLen == 0 {
			d.state = stateExpectChecksum
		} else {
			d.state = stateReadPayload
		}
	case stateReadPayload:
		d.payload[d.recvLen] = b
		d.checksum ^= b
		d.recvLen++
		if d.recvLen >= d.expectedLen {
			d.state = stateExpectChecksum
		}
	case stateExpectChecksum:
		frame, ok := d.finish(b)
		d.Reset()
		if ok {
			return frame, true
		}
	}
	return Frame{}, false
}

func (d *Deframer) finish(sum byte) (Frame, bool) {
	if sum != d.checksum {
		d.checksumErrors++
		return Frame{}, false
	}
	if !d.fromDevice {
		// Host-to-module echo, not a reply.
		return Frame{}, false
	}
	payload := make([]byte, d.recvLen)
	copy(payload, d.payload[:d.recvLen])
	return Frame{Function: d.function, Payload: payload}, true
}
