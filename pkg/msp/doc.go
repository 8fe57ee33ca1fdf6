// Package msp implements MSP v1 framing as used by ELRS TX modules:
// an outbound request builder with the documented ELRS function
// helpers, and a byte-at-a-time deframer for inbound replies.
package msp

// MSP v1 runs out-of-band on the same serial stream as CRSF and
// carries configuration commands and telemetry queries. There are no
// sequence numbers; replies correlate to requests by function id only,
// and the direction byte disambiguates the 0x2D request/response pair.
