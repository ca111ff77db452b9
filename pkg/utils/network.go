// ===== pkg/utils/network.go =====
package utils

import (
	"encoding/binary"
	"net"
)

// IPToInt converts an IPv4 address to a 32-bit integer for sorting.
// Anything that is not IPv4 sorts as zero.
func IPToInt(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}

// IPStringToInt parses a dotted quad and converts it with IPToInt
func IPStringToInt(s string) uint32 {
	return IPToInt(net.ParseIP(s))
}

// IsPrivateMAC checks if a MAC address is a locally administered (private) MAC
func IsPrivateMAC(mac net.HardwareAddr) bool {
	if len(mac) == 0 {
		return false
	}
	// Check if the locally administered bit (bit 1 of the first octet) is set
	return (mac[0] & 0x02) != 0
}
