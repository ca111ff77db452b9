// ===== internal/dhcp/rawdata.go =====
package dhcp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"dhcpwatch/pkg/models"
)

// ErrMalformedBuffer is returned when raw packet text does not parse as
// either supported encoding
var ErrMalformedBuffer = errors.New("malformed packet buffer")

// Normalize converts the textual raw data of a record into bytes
func Normalize(raw models.RawData) ([]byte, error) {
	switch raw.Encoding {
	case models.DecimalList:
		return parseDecimalList(raw.Text)
	case models.HexEncoded:
		return parseHexPairs(raw.Text)
	default:
		return nil, fmt.Errorf("%w: unknown encoding %d", ErrMalformedBuffer, raw.Encoding)
	}
}

// parseDecimalList parses "[d, d, d]"
func parseDecimalList(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return nil, fmt.Errorf("%w: missing brackets", ErrMalformedBuffer)
	}

	body := strings.TrimSpace(text[1 : len(text)-1])
	if body == "" {
		return []byte{}, nil
	}

	tokens := strings.Split(body, ",")
	buf := make([]byte, 0, len(tokens))
	for i, token := range tokens {
		token = strings.TrimSpace(token)
		value, err := strconv.ParseUint(token, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d %q is not a byte", ErrMalformedBuffer, i, token)
		}
		buf = append(buf, byte(value))
	}

	return buf, nil
}

// parseHexPairs parses hex byte tokens split on any rune that is neither a
// letter nor a digit
func parseHexPairs(text string) ([]byte, error) {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	buf := make([]byte, 0, len(tokens))
	for i, token := range tokens {
		if len(token) == 1 {
			token = "0" + token
		}
		value, err := strconv.ParseUint(token, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d %q is not a hex byte", ErrMalformedBuffer, i, token)
		}
		buf = append(buf, byte(value))
	}

	return buf, nil
}

// EncodeHex renders bytes as space separated two-digit hex pairs
func EncodeHex(buf []byte) string {
	var sb strings.Builder
	sb.Grow(len(buf) * 3)
	for i, b := range buf {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

// EncodeDecimalList renders bytes as "[d, d, d]"
func EncodeDecimalList(buf []byte) string {
	var sb strings.Builder
	sb.Grow(len(buf)*5 + 2)
	sb.WriteByte('[')
	for i, b := range buf {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(int(b)))
	}
	sb.WriteByte(']')
	return sb.String()
}

// Encode renders bytes in the requested encoding
func Encode(buf []byte, enc models.Encoding) models.RawData {
	if enc == models.HexEncoded {
		return models.RawData{Encoding: models.HexEncoded, Text: EncodeHex(buf)}
	}
	return models.RawData{Encoding: models.DecimalList, Text: EncodeDecimalList(buf)}
}
