// ===== internal/dhcp/decode.go =====
package dhcp

import (
	"fmt"
	"sort"

	"dhcpwatch/internal/log"
	"dhcpwatch/pkg/models"
)

// DecodeValue renders an option payload for display. It never fails.
func DecodeValue(code uint8, payload []byte) string {
	switch code {
	case OptionMsgType:
		if len(payload) == 1 {
			if name, ok := messageTypeNames[payload[0]]; ok {
				return name
			}
		}
	case OptionRequest, OptionServer:
		if len(payload) == 4 {
			return formatIPv4(payload)
		}
	}
	return EncodeHex(payload)
}

// DecodeOptions resolves names and values for a scan result, ordered by code
func DecodeOptions(raw map[uint8][]byte) []models.DHCPOption {
	codes := make([]int, 0, len(raw))
	for code := range raw {
		codes = append(codes, int(code))
	}
	sort.Ints(codes)

	options := make([]models.DHCPOption, 0, len(codes))
	for _, c := range codes {
		code := uint8(c)
		payload := raw[code]
		options = append(options, models.DHCPOption{
			Code:    code,
			Length:  len(payload),
			Payload: payload,
			Name:    OptionName(code),
			Value:   DecodeValue(code, payload),
		})
	}

	return options
}

// Decoder runs normalization, scanning and value decoding for a record
type Decoder struct {
	Scanner Scanner
}

// NewDecoder creates a decoder using the given scanner settings
func NewDecoder(scanner Scanner) *Decoder {
	return &Decoder{Scanner: scanner}
}

// Decode returns the options of a raw buffer. A malformed buffer yields no
// options and ErrMalformedBuffer; a truncated option yields the options read
// before it and no error.
func (d *Decoder) Decode(raw models.RawData) ([]models.DHCPOption, error) {
	buf, err := Normalize(raw)
	if err != nil {
		return []models.DHCPOption{}, err
	}

	scanned, err := d.Scanner.Scan(buf)
	if err != nil {
		log.Logger.Debugf("Stopped option scan early: %v", err)
	}

	return DecodeOptions(scanned), nil
}

// Summary is the record-level projection of a DHCP message
type Summary struct {
	PacketType models.PacketType
	Option50   string
	Options    map[uint8][]byte
}

// Summarize extracts the packet type and requested address from a message
func (d *Decoder) Summarize(buf []byte) Summary {
	scanned, err := d.Scanner.Scan(buf)
	if err != nil {
		log.Logger.Debugf("Summarizing partial options: %v", err)
	}

	summary := Summary{
		PacketType: models.PacketUnknown,
		Options:    scanned,
	}

	if msgType, ok := scanned[OptionMsgType]; ok && len(msgType) == 1 {
		summary.PacketType = PacketTypeFor(msgType[0])
	}

	if requested, ok := scanned[OptionRequest]; ok && len(requested) == 4 {
		summary.Option50 = formatIPv4(requested)
	}

	return summary
}

func formatIPv4(b []byte) string {
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}
