package gip

import "errors"

// ErrShortFrame is returned when a packet is smaller than a GIP header.
var ErrShortFrame = errors.New("gip: packet shorter than a frame header")
