// ===== internal/dhcp/header.go =====
package dhcp

import (
	"fmt"

	"github.com/insomniacslk/dhcp/dhcpv4"

	"dhcpwatch/pkg/models"
)

// ParseHeader decodes the BOOTP fixed header of a complete DHCPv4 message
func ParseHeader(buf []byte) (*models.BootpHeader, error) {
	msg, err := dhcpv4.FromBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("not a dhcpv4 message: %w", err)
	}

	header := &models.BootpHeader{
		OpCode:        msg.OpCode.String(),
		TransactionID: msg.TransactionID.String(),
		ClientIP:      msg.ClientIPAddr.String(),
		YourIP:        msg.YourIPAddr.String(),
		ServerIP:      msg.ServerIPAddr.String(),
		GatewayIP:     msg.GatewayIPAddr.String(),
	}
	if len(msg.ClientHWAddr) > 0 {
		header.ClientHWAddr = msg.ClientHWAddr.String()
	}

	return header, nil
}

// IsMessage reports whether buf parses as a DHCPv4 message
func IsMessage(buf []byte) bool {
	_, err := dhcpv4.FromBytes(buf)
	return err == nil
}
