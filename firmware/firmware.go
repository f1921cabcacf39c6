// Package firmware embeds the radio's MCU firmware blob and parses its
// header.
package firmware

import (
	_ "embed"
	"fmt"

	"github.com/xgipd/xgipd/internal/buffer"
)

// Blob is the firmware image uploaded to the radio at boot: a Header
// followed by ILM then DLM.
//
//go:embed blob.bin
var Blob []byte

// HeaderSize is the fixed, packed size of Header on the wire.
const HeaderSize = 32

// Header describes the firmware image preceding the ILM/DLM payload.
type Header struct {
	ILMLength       uint32
	DLMLength       uint32
	BuildVersion    uint16
	FirmwareVersion uint16
	_               uint32 // reserved
	BuildTime       [16]byte
}

// ParseHeader decodes the fixed header at the start of blob. ILM begins
// immediately after the header; DLM begins ILMLength bytes after that.
func ParseHeader(blob []byte) (Header, error) {
	if len(blob) < HeaderSize {
		return Header{}, fmt.Errorf("firmware: blob too short for header: %d bytes", len(blob))
	}
	v := buffer.NewView(blob)

	var h Header
	h.ILMLength = v.U32(0)
	h.DLMLength = v.U32(4)
	h.BuildVersion = v.U16(8)
	h.FirmwareVersion = v.U16(10)
	copy(h.BuildTime[:], v.Slice(16, 16).Bytes())
	return h, nil
}

// ILM returns the instruction-local-memory region of blob.
func ILM(blob []byte, h Header) []byte {
	start := HeaderSize
	end := start + int(h.ILMLength)
	if end > len(blob) {
		end = len(blob)
	}
	return blob[start:end]
}

// DLM returns the data-local-memory region of blob, immediately
// following ILM.
func DLM(blob []byte, h Header) []byte {
	start := HeaderSize + int(h.ILMLength)
	end := start + int(h.DLMLength)
	if start > len(blob) {
		return nil
	}
	if end > len(blob) {
		end = len(blob)
	}
	return blob[start:end]
}
