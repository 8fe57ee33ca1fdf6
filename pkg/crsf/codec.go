package crsf

// Frame layout constants.
const (
	// AddrFlightController is the destination address of RC frames.
	AddrFlightController byte = 0xC8
	// AddrRadioTransmitter is used by the handset side.
	AddrRadioTransmitter byte = 0xEA
	// AddrTransmitterModule is the external TX module address.
	AddrTransmitterModule byte = 0xEE

	// TypeRCChannelsPacked is the frame type of packed RC channels.
	TypeRCChannelsPacked byte = 0x16
	// TypeLinkStatistics is the frame type of link statistics.
	TypeLinkStatistics byte = 0x14

	// ChannelCount is the number of channels in one RC frame.
	ChannelCount = 16
	// PackedChannelsSize is the size of 16 packed 11-bit channels.
	PackedChannelsSize = 22
	// RCFrameSize is the total size of an RC channels frame.
	RCFrameSize = PackedChannelsSize + 4 // addr, len, type, crc

	// MaxFrameSize bounds any CRSF frame on the wire.
	MaxFrameSize = 64
)

// Channel value range in 11-bit CRSF units.
const (
	ChannelMin uint16 = 172
	ChannelMid uint16 = 992
	ChannelMax uint16 = 1811
)

// crc8Table is CRC-8/DVB-S2: poly 0xD5, init 0, no reflection.
var crc8Table [256]byte

func init() {
	for i := 0; i < 256; i++ {
		crc := byte(i)
		for bit := 0; bit < 8; bit++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0xD5
			} else {
				crc <<= 1
			}
		}
		crc8Table[i] = crc
	}
}

// CRC8 computes CRC-8/DVB-S2 over data.
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc = crc8Table[crc^b]
	}
	return crc
}

// PackChannels packs 16 channels, low 11 bits each, LSB-first into out.
// out must hold at least PackedChannelsSize bytes.
func PackChannels(channels *[ChannelCount]uint16, out []byte) {
	_ = out[PackedChannelsSize-1]
	var acc uint32
	var nbits uint
	idx := 0
	for _, ch := range channels {
		acc |= uint32(ch&0x07FF) << nbits
		nbits += 11
		for nbits >= 8 {
			out[idx] = byte(acc)
			acc >>= 8
			nbits -= 8
			idx++
		}
	}
}

// UnpackChannels is the inverse of PackChannels. packed must hold at
// least PackedChannelsSize bytes.
func UnpackChannels(packed []byte) (channels [ChannelCount]uint16) {
	_ = packed[PackedChannelsSize-1]
	var acc uint32
	var nbits uint
	idx := 0
	for i := range channels {
		for nbits < 11 {
			acc |= uint32(packed[idx]) << nbits
			nbits += 8
			idx++
		}
		channels[i] = uint16(acc & 0x07FF)
		acc >>= 11
		nbits -= 11
	}
	return
}

// EncodeRCChannels encodes a complete RC channels frame into frame,
// which must hold at least RCFrameSize bytes.
// Layout: [addr] [len=24] [type=0x16] [22 bytes packed] [crc].
// The CRC covers length, type and payload; the address is excluded.
func EncodeRCChannels(channels *[ChannelCount]uint16, frame []byte) {
	_ = frame[RCFrameSize-1]
	frame[0] = AddrFlightController
	frame[1] = PackedChannelsSize + 2 // type + payload + crc
	frame[2] = TypeRCChannelsPacked
	PackChannels(channels, frame[3:])
	frame[RCFrameSize-1] = CRC8(frame[1 : RCFrameSize-1])
}

// MapStick maps a stick axis in [-1, +1] to a channel value.
// Out-of-range inputs are clamped, never rejected.
func MapStick(v float64) uint16 {
	return mapUnit((v + 1) / 2)
}

// MapThrottle maps throttle in [0, +1] to a channel value.
func MapThrottle(v float64) uint16 {
	return mapUnit(v)
}

// MapSwitch maps a boolean switch to the channel endpoints.
func MapSwitch(on bool) uint16 {
	if on {
		return ChannelMax
	}
	return ChannelMin
}

func mapUnit(n float64) uint16 {
	if n < 0 {
		n = 0
	} else if n > 1 {
		n = 1
	}
	return uint16(float64(ChannelMin) + n*float64(ChannelMax-ChannelMin) + 0.5)
}
