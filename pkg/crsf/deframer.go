package crsf

// Frame contains the information of a parsed CRSF frame.
type Frame struct {
	Addr    byte
	Type    byte
	Payload []byte
}

type parseState int

const (
	stateWaitAddr parseState = iota
	stateWaitLen
	stateReadBody
)

// Deframer parses bytes received into validated CRSF frames.
// It has no timeout: resync happens organically when the next
// valid address byte is seen.
type Deframer struct {
	state   parseState
	addr    byte
	bodyLen int
	body    [MaxFrameSize]byte
	recvLen int

	crcErrors uint64
}

// CRCErrors reports the number of frames dropped for CRC mismatch.
func (d *Deframer) CRCErrors() uint64 {
	return d.crcErrors
}

// Reset resets the internal state of the deframer.
func (d *Deframer) Reset() {
	d.state = stateWaitAddr
	d.recvLen = 0
}

// Push consumes one byte and returns a complete frame when the byte
// finishes one. Malformed frames are dropped silently.
func (d *Deframer) Push(b byte) (Frame, bool) {
	switch d.state {
	case stateWaitAddr:
		if isSyncAddr(b) {
			d.addr = b
			d.state = stateWaitLen
		}
	case stateWaitLen:
		// Length counts type + payload + crc, so it is at least 2,
		// and the whole frame never exceeds MaxFrameSize.
		if b < 2 || int(b) > MaxFrameSize-2 {
			d.Reset()
			break
		}
		d.bodyLen = int(b)
		d.recvLen = 0
		d.state = stateReadBody
	case stateReadBody:
		d.body[d.recvLen] = b
		d.recvLen++
		if d.recvLen < d.bodyLen {
			break
		}
		frame, ok := d.finish()
		d.Reset()
		if ok {
			return frame, true
		}
	}
	return Frame{}, false
}

func (d *Deframer) finish() (Frame, bool) {
	body := d.body[:d.bodyLen]
	// Trailing byte is the CRC over type and payload.
	if CRC8(body[:len(body)-1]) != body[len(body)-1] {
		d.crcErrors++
		return Frame{}, false
	}
	payload := make([]byte, len(body)-2)
	copy(payload, body[1:len(body)-1])
	return Frame{Addr: d.addr, Type: body[0], Payload: payload}, true
}

func isSyncAddr(b byte) bool {
	switch b {
	case AddrFlightController, AddrRadioTransmitter, AddrTransmitterModule:
		return true
	}
	return false
}
