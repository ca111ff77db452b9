package capture

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhcpwatch/internal/dhcp"
	"dhcpwatch/pkg/models"
)

var clientMAC = net.HardwareAddr{0x02, 0x00, 0xde, 0xad, 0xbe, 0xef}

func dhcpMessage(t *testing.T, msgType dhcpv4.MessageType, requested net.IP) []byte {
	t.Helper()

	modifiers := []dhcpv4.Modifier{
		dhcpv4.WithHwAddr(clientMAC),
		dhcpv4.WithMessageType(msgType),
	}
	if requested != nil {
		modifiers = append(modifiers, dhcpv4.WithOption(dhcpv4.OptRequestedIPAddress(requested)))
	}

	msg, err := dhcpv4.New(modifiers...)
	require.NoError(t, err)
	return msg.ToBytes()
}

func udpFrame(t *testing.T, src, dst net.IP, srcPort, dstPort layers.UDPPort, payload []byte) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       clientMAC,
		DstMAC:       layers.EthernetBroadcast,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    src,
		DstIP:    dst,
	}
	udp := &layers.UDP{SrcPort: srcPort, DstPort: dstPort}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func writePcap(t *testing.T, frames ...[]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dhcp.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * time.Second),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		require.NoError(t, w.WritePacket(ci, frame))
	}

	return path
}

func newTestEngine(path string, enc models.Encoding) *Engine {
	builder := NewRecordBuilder(dhcp.NewDecoder(dhcp.DefaultScanner), enc)
	return NewEngine(NewFileOpener(path), builder, NewBuffer(10))
}

func TestEngineReplaysPcapFile(t *testing.T) {
	requested := net.IPv4(192, 168, 1, 100).To4()
	path := writePcap(t,
		udpFrame(t, net.IPv4zero.To4(), net.IPv4bcast.To4(), 68, 67, dhcpMessage(t, dhcpv4.MessageTypeDiscover, requested)),
		udpFrame(t, net.IPv4(10, 0, 0, 1).To4(), net.IPv4(10, 0, 0, 2).To4(), 5353, 53, []byte("not dhcp")),
		udpFrame(t, net.IPv4(192, 168, 1, 1).To4(), net.IPv4(192, 168, 1, 100).To4(), 67, 68, dhcpMessage(t, dhcpv4.MessageTypeOffer, nil)),
	)

	engine := newTestEngine(path, models.DecimalList)
	require.NoError(t, engine.Start("dhcp.pcap"))
	defer engine.Stop()

	require.Eventually(t, func() bool {
		records, _ := engine.Logs()
		return len(records) == 2
	}, 2*time.Second, 10*time.Millisecond)

	records, err := engine.Logs()
	require.NoError(t, err)

	discover := records[0]
	assert.NotEmpty(t, discover.ID)
	assert.Equal(t, models.PacketDiscover, discover.PacketType)
	assert.Equal(t, "0.0.0.0", discover.SourceIP)
	assert.Equal(t, "255.255.255.255", discover.DestinationIP)
	assert.Equal(t, "192.168.1.100", discover.Option50)
	assert.Equal(t, "dhcp.pcap", discover.Interface)
	assert.Equal(t, models.DecimalList, discover.RawData.Encoding)
	assert.True(t, discover.Timestamp.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))

	options, err := dhcp.NewDecoder(dhcp.DefaultScanner).Decode(discover.RawData)
	require.NoError(t, err)
	var decoded string
	for _, opt := range options {
		if opt.Code == 50 {
			decoded = opt.Value
		}
	}
	assert.Equal(t, discover.Option50, decoded)

	offer := records[1]
	assert.Equal(t, models.PacketOffer, offer.PacketType)
	assert.False(t, offer.HasOption50())
	assert.Equal(t, "192.168.1.1", offer.SourceIP)
}

func TestEngineHexEncoding(t *testing.T) {
	path := writePcap(t,
		udpFrame(t, net.IPv4zero.To4(), net.IPv4bcast.To4(), 68, 67, dhcpMessage(t, dhcpv4.MessageTypeRequest, net.IPv4(10, 1, 1, 5))),
	)

	engine := newTestEngine(path, models.HexEncoded)
	require.NoError(t, engine.Start("dhcp.pcap"))
	defer engine.Stop()

	require.Eventually(t, func() bool {
		records, _ := engine.Logs()
		return len(records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	records, _ := engine.Logs()
	assert.Equal(t, models.HexEncoded, records[0].RawData.Encoding)
	assert.Equal(t, models.PacketRequest, records[0].PacketType)
	assert.Equal(t, "10.1.1.5", records[0].Option50)
}

func TestEngineStartErrors(t *testing.T) {
	engine := newTestEngine(filepath.Join(t.TempDir(), "missing.pcap"), models.DecimalList)
	err := engine.Start("missing.pcap")
	assert.ErrorIs(t, err, ErrCaptureUnavailable)

	path := writePcap(t)
	engine = newTestEngine(path, models.DecimalList)
	err = engine.Start("eth9")
	assert.ErrorIs(t, err, ErrCaptureUnavailable)

	_, capturing := engine.Capturing()
	assert.False(t, capturing)
	assert.ErrorIs(t, engine.Stop(), ErrNotCapturing)
}

func TestEngineClearLogs(t *testing.T) {
	path := writePcap(t,
		udpFrame(t, net.IPv4zero.To4(), net.IPv4bcast.To4(), 68, 67, dhcpMessage(t, dhcpv4.MessageTypeDiscover, nil)),
	)

	engine := newTestEngine(path, models.DecimalList)
	require.NoError(t, engine.Start("dhcp"))
	defer engine.Stop()

	require.Eventually(t, func() bool {
		records, _ := engine.Logs()
		return len(records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, engine.ClearLogs())

	records, err := engine.Logs()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestEngineSessionEndsWithReplayFile(t *testing.T) {
	path := writePcap(t,
		udpFrame(t, net.IPv4zero.To4(), net.IPv4bcast.To4(), 68, 67, dhcpMessage(t, dhcpv4.MessageTypeDiscover, nil)),
		udpFrame(t, net.IPv4zero.To4(), net.IPv4bcast.To4(), 68, 67, dhcpMessage(t, dhcpv4.MessageTypeRequest, nil)),
	)

	engine := newTestEngine(path, models.DecimalList)
	require.NoError(t, engine.Start("dhcp.pcap"))

	require.Eventually(t, func() bool {
		_, capturing := engine.Capturing()
		return !capturing
	}, 2*time.Second, 10*time.Millisecond)

	records, err := engine.Logs()
	require.NoError(t, err)
	assert.Len(t, records, 2, "records survive the end of the session")
	assert.ErrorIs(t, engine.Stop(), ErrNotCapturing)

	// a finished session can be started again
	require.NoError(t, engine.Start("dhcp.pcap"))
	require.Eventually(t, func() bool {
		records, _ := engine.Logs()
		return len(records) == 4
	}, 2*time.Second, 10*time.Millisecond)
	engine.Stop()
}

func TestBufferDropsOldest(t *testing.T) {
	buffer := NewBuffer(2)
	for _, id := range []string{"a", "b", "c"} {
		buffer.Add(models.LogRecord{ID: id})
	}

	records := buffer.Snapshot()
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].ID)
	assert.Equal(t, "c", records[1].ID)

	buffer.Clear()
	assert.Equal(t, 0, buffer.Len())
	assert.Equal(t, DefaultBufferLimit, NewBuffer(0).limit)
}

func TestFindInterface(t *testing.T) {
	ifaces := []models.NetworkInterface{
		{Name: "Ethernet (Intel)", Description: "Intel(R) Ethernet Connection", RealName: `\Device\NPF_{1234}`},
		{Name: "eth0", Description: "eth0", RealName: "eth0"},
	}

	got, ok := FindInterface(ifaces, "eth0")
	require.True(t, ok)
	assert.Equal(t, "eth0", got.RealName)

	got, ok = FindInterface(ifaces, "Ethernet (Intel)")
	require.True(t, ok)
	assert.Equal(t, `\Device\NPF_{1234}`, got.RealName)

	got, ok = FindInterface(ifaces, "Connection")
	require.True(t, ok)
	assert.Equal(t, "Ethernet (Intel)", got.Name)

	_, ok = FindInterface(ifaces, "wlan0")
	assert.False(t, ok)
	_, ok = FindInterface(ifaces, "")
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	seen := map[string]int{}
	npf := `\Device\NPF_{ABCD}`

	assert.Equal(t, "eth0", DisplayName("anything", "eth0", seen))
	assert.Equal(t, "Ethernet (Realtek)", DisplayName("Realtek PCIe GbE Family Controller Gigabit", npf, seen))
	assert.Equal(t, "Wi-Fi", DisplayName("Intel(R) Wireless-AC 9560", npf, seen))
	assert.Equal(t, "Loopback", DisplayName("Adapter for loopback traffic capture", npf, seen))
	assert.Equal(t, "Virtual Interface", DisplayName("Hyper-V Virtual Switch", npf, seen))
	assert.Equal(t, "Kernel Interface", DisplayName("Microsoft Kernel Debug Adapter", npf, seen))
	assert.Equal(t, "Microsoft Interface", DisplayName("WAN Miniport (Microsoft)", npf, seen))
	assert.Equal(t, "Microsoft Interface 2", DisplayName("Teredo Microsoft Tunnel", npf, seen))
	assert.Equal(t, "TAP-Windows", DisplayName("TAP-Windows Adapter V9", npf, seen))
	assert.Equal(t, "Network Interface", DisplayName("VPN", npf, seen))
}
