// ===== internal/dhcp/options.go =====
package dhcp

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	// DefaultOptionsOffset is where the options area starts in a message
	// with a standard 236-byte fixed header and a 4-byte magic cookie
	DefaultOptionsOffset = 240

	OptionPad     uint8 = 0
	OptionEnd     uint8 = 255
	OptionRequest uint8 = 50
	OptionMsgType uint8 = 53
	OptionServer  uint8 = 54
)

// MagicCookie marks the start of the options area
var MagicCookie = []byte{0x63, 0x82, 0x53, 0x63}

// ErrTruncatedOption is reported when an option's declared length runs past
// the end of the buffer. The options read before it are still returned.
var ErrTruncatedOption = errors.New("truncated dhcp option")

// Scanner walks the TLV options area of a DHCP message
type Scanner struct {
	// Offset is the byte position of the first option
	Offset int
	// RequireCookie rejects buffers whose four bytes before Offset are not
	// the magic cookie
	RequireCookie bool
}

// DefaultScanner scans from the conventional fixed offset
var DefaultScanner = Scanner{Offset: DefaultOptionsOffset}

// ScanOptions scans buf with the default scanner and drops any truncation report
func ScanOptions(buf []byte) map[uint8][]byte {
	options, _ := DefaultScanner.Scan(buf)
	return options
}

// Scan extracts option code to payload. A later duplicate of a code
// replaces the earlier one. The returned map is always usable; the error
// only reports a truncated trailing option.
func (s Scanner) Scan(buf []byte) (map[uint8][]byte, error) {
	options := make(map[uint8][]byte)

	offset := s.Offset
	if offset < 0 {
		offset = 0
	}
	if len(buf) <= offset {
		return options, nil
	}

	if s.RequireCookie {
		if offset < len(MagicCookie) || !bytes.Equal(buf[offset-len(MagicCookie):offset], MagicCookie) {
			return options, nil
		}
	}

	cursor := offset
	for cursor < len(buf) {
		code := buf[cursor]
		if code == OptionPad || code == OptionEnd {
			break
		}

		if cursor+1 >= len(buf) {
			return options, fmt.Errorf("%w: option %d at %d has no length byte", ErrTruncatedOption, code, cursor)
		}

		length := int(buf[cursor+1])
		end := cursor + 2 + length
		if end > len(buf) {
			return options, fmt.Errorf("%w: option %d at %d declares %d bytes, %d available",
				ErrTruncatedOption, code, cursor, length, len(buf)-cursor-2)
		}

		payload := make([]byte, length)
		copy(payload, buf[cursor+2:end])
		options[code] = payload

		cursor = end
	}

	return options, nil
}
