// Package core defines sentinel errors.
package core

import "errors"

var (
	// Decoding errors
	ErrTruncatedInput = errors.New("linkprobe: truncated input")
	ErrBadChecksum    = errors.New("linkprobe: bad header checksum")

	// Exchange errors
	ErrTransport = errors.New("linkprobe: transport error")
	ErrTimeout   = errors.New("linkprobe: timed out waiting for frame")

	// Invocation and setup errors
	ErrUsage           = errors.New("linkprobe: usage error")
	ErrPayloadTooLarge = errors.New("linkprobe: payload exceeds frame size")
	ErrNoIPv4Address   = errors.New("linkprobe: interface has no IPv4 address")
	ErrConfigInvalid   = errors.New("linkprobe: invalid configuration")
)
