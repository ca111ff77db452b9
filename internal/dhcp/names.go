// ===== internal/dhcp/names.go =====
package dhcp

import (
	"fmt"

	"dhcpwatch/pkg/models"
)

var optionNames = map[uint8]string{
	1:   "Subnet Mask",
	2:   "Time Offset",
	3:   "Router",
	6:   "DNS Server",
	12:  "Hostname",
	15:  "Domain Name",
	28:  "Broadcast Address",
	50:  "Requested IP Address",
	51:  "IP Address Lease Time",
	53:  "DHCP Message Type",
	54:  "Server Identifier",
	55:  "Parameter Request List",
	60:  "Vendor Class Identifier",
	61:  "Client Identifier",
	66:  "TFTP Server Name",
	67:  "Bootfile Name",
	82:  "Agent Information",
	255: "End",
}

// Option 53 mnemonics shown when a packet is inspected
var messageTypeNames = map[byte]string{
	1: "DISCOVER",
	2: "OFFER",
	3: "REQUEST",
	5: "ACK",
	6: "NAK",
	7: "DECLINE",
	8: "RELEASE",
	9: "INFORM",
}

// Option 53 values as reported on captured records
var recordPacketTypes = map[byte]models.PacketType{
	1: models.PacketDiscover,
	2: models.PacketOffer,
	3: models.PacketRequest,
	5: models.PacketAck,
	6: models.PacketNack,
	7: models.PacketDecline,
	8: models.PacketRelease,
	9: models.PacketInform,
}

// OptionName returns the display name of an option code
func OptionName(code uint8) string {
	if name, ok := optionNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Option %d", code)
}

// PacketTypeFor maps an Option 53 byte to the record packet type
func PacketTypeFor(msgType byte) models.PacketType {
	if t, ok := recordPacketTypes[msgType]; ok {
		return t
	}
	return models.PacketUnknown
}
