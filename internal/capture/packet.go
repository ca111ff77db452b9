// ===== internal/capture/packet.go =====
package capture

import (
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/uuid"

	"dhcpwatch/internal/dhcp"
	"dhcpwatch/internal/log"
	"dhcpwatch/pkg/models"
)

const (
	serverPort = 67
	clientPort = 68
)

// RecordBuilder turns captured frames into log records
type RecordBuilder struct {
	decoder  *dhcp.Decoder
	encoding models.Encoding
	newID    func() string
	now      func() time.Time
}

// NewRecordBuilder creates a builder that decodes with decoder and stores
// raw data in the given encoding
func NewRecordBuilder(decoder *dhcp.Decoder, encoding models.Encoding) *RecordBuilder {
	return &RecordBuilder{
		decoder:  decoder,
		encoding: encoding,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

func isDHCPPort(port layers.UDPPort) bool {
	return port == serverPort || port == clientPort
}

// Build returns the record for a DHCP packet. Frames that are not DHCP
// over UDP ports 67/68 are rejected.
func (b *RecordBuilder) Build(packet gopacket.Packet, iface string) (models.LogRecord, bool) {
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return models.LogRecord{}, false
	}
	udp := udpLayer.(*layers.UDP)

	if !isDHCPPort(udp.SrcPort) && !isDHCPPort(udp.DstPort) {
		return models.LogRecord{}, false
	}

	payload := udp.Payload
	if !dhcp.IsMessage(payload) {
		log.Logger.Debugf("Skipping non-DHCP payload on %s (%d bytes)", iface, len(payload))
		return models.LogRecord{}, false
	}

	sourceIP, destinationIP := "0.0.0.0", "255.255.255.255"
	if ipLayer := packet.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		ip := ipLayer.(*layers.IPv4)
		sourceIP = ip.SrcIP.String()
		destinationIP = ip.DstIP.String()
	}

	timestamp := packet.Metadata().Timestamp
	if timestamp.IsZero() {
		timestamp = b.now()
	}

	summary := b.decoder.Summarize(payload)
	record := models.LogRecord{
		ID:            b.newID(),
		Timestamp:     timestamp.UTC(),
		PacketType:    summary.PacketType,
		SourceIP:      sourceIP,
		DestinationIP: destinationIP,
		Option50:      summary.Option50,
		Interface:     iface,
		RawData:       dhcp.Encode(payload, b.encoding),
	}

	log.Logger.Debugf("DHCP %s %s -> %s on %s (option 50: %q)",
		record.PacketType, sourceIP, destinationIP, iface, record.Option50)

	return record, true
}
