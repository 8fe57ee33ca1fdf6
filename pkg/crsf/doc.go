// Package crsf implements the host side of the Crossfire serial
// protocol: RC channel packing, frame encoding with CRC-8/DVB-S2,
// and a byte-at-a-time deframer for inbound frames.
package crsf

// The outbound hot path is the RC channels frame, repeated every 4ms
// by the transmit scheduler. Encoding writes into a caller-provided
// buffer so the scheduler allocates nothing in steady state.
//
// Producer: transmit scheduler
// Consumer: ELRS TX module (flight controller address)
