// ===== pkg/models/models.go =====
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// PacketType is the DHCP message type carried by a captured packet
type PacketType string

// Packet types reported for captured records
const (
	PacketDiscover PacketType = "DISCOVER"
	PacketOffer    PacketType = "OFFER"
	PacketRequest  PacketType = "REQUEST"
	PacketAck      PacketType = "ACK"
	PacketNack     PacketType = "NACK"
	PacketDecline  PacketType = "DECLINE"
	PacketRelease  PacketType = "RELEASE"
	PacketInform   PacketType = "INFORM"
	PacketUnknown  PacketType = "UNKNOWN"
)

// PacketTypes lists every packet type in display order
var PacketTypes = []PacketType{
	PacketDiscover,
	PacketOffer,
	PacketRequest,
	PacketAck,
	PacketNack,
	PacketDecline,
	PacketRelease,
	PacketInform,
	PacketUnknown,
}

// Encoding identifies the textual form of a packet byte buffer
type Encoding int

const (
	// HexEncoded is a separator-delimited list of hexadecimal byte pairs
	HexEncoded Encoding = iota
	// DecimalList is a bracketed, comma-separated list of decimal bytes
	DecimalList
)

func (e Encoding) String() string {
	switch e {
	case HexEncoded:
		return "hex"
	case DecimalList:
		return "decimal"
	default:
		return "unknown"
	}
}

// RawData is a packet byte buffer in one of its two textual encodings.
// The encoding is resolved once when the value is built.
type RawData struct {
	Encoding Encoding
	Text     string
}

// NewRawData classifies text as a decimal list when it is wrapped in
// brackets and as hex pairs otherwise
func NewRawData(text string) RawData {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		return RawData{Encoding: DecimalList, Text: trimmed}
	}
	return RawData{Encoding: HexEncoded, Text: text}
}

func (r RawData) String() string {
	return r.Text
}

// MarshalJSON encodes the raw data as its plain text
func (r RawData) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Text)
}

// UnmarshalJSON decodes plain text and resolves its encoding
func (r *RawData) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*r = NewRawData(text)
	return nil
}

// LogRecord represents one observed DHCP packet
type LogRecord struct {
	ID            string     `json:"id"`
	Timestamp     time.Time  `json:"timestamp"`
	PacketType    PacketType `json:"packet_type"`
	SourceIP      string     `json:"source_ip"`
	DestinationIP string     `json:"destination_ip"`
	Option50      string     `json:"option_50,omitempty"`
	Interface     string     `json:"interface"`
	RawData       RawData    `json:"raw_data"`
}

// HasOption50 reports whether the packet carried a Requested IP Address
func (r LogRecord) HasOption50() bool {
	return r.Option50 != ""
}

// DHCPOption is a single decoded TLV option
type DHCPOption struct {
	Code    uint8  `json:"code"`
	Length  int    `json:"length"`
	Payload []byte `json:"payload"`
	Name    string `json:"name"`
	Value   string `json:"value"`
}

// Statistics summarises a set of log records
type Statistics struct {
	Total        int                `json:"total"`
	WithOption50 int                `json:"with_option_50"`
	Percentage   int                `json:"percentage"`
	ByType       map[PacketType]int `json:"by_type"`
}

// BootpHeader holds the fixed-header fields of a DHCPv4 message
type BootpHeader struct {
	OpCode        string    `json:"op"`
	TransactionID string    `json:"xid"`
	ClientHWAddr  string    `json:"chaddr"`
	ClientIP      string    `json:"ciaddr"`
	YourIP        string    `json:"yiaddr"`
	ServerIP      string    `json:"siaddr"`
	GatewayIP     string    `json:"giaddr"`
	Vendor        *OUIEntry `json:"vendor,omitempty"`
}

// PacketDetails is the inspection view of a single record
type PacketDetails struct {
	Record      LogRecord    `json:"record"`
	Options     []DHCPOption `json:"options"`
	Header      *BootpHeader `json:"header,omitempty"`
	DecodeError string       `json:"decode_error,omitempty"`
}

// NetworkInterface describes a capture-capable interface
type NetworkInterface struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Addresses   []string `json:"addresses"`
	IsLoopback  bool     `json:"is_loopback"`
	IsUp        bool     `json:"is_up"`
	RealName    string   `json:"real_name"`
}

// UpdateInfo is the result of a release check
type UpdateInfo struct {
	CurrentVersion string `json:"current_version"`
	LatestVersion  string `json:"latest_version,omitempty"`
	HasUpdate      bool   `json:"has_update"`
	ReleaseInfo    string `json:"release_info,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
}

// OUIEntry represents MAC address vendor information
type OUIEntry struct {
	OUI         string `json:"oui"`
	Private     bool   `json:"isPrivate"`
	Company     string `json:"companyName"`
	Address     string `json:"companyAddress"`
	CountryCode string `json:"countryCode"`
	BlockSize   string `json:"assignmentBlockSize"`
	Created     string `json:"dateCreated"`
	Updated     string `json:"dateUpdated"`
}
