// ===== internal/capture/live/pcap.go =====
package live

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"dhcpwatch/internal/capture"
	"dhcpwatch/internal/log"
	"dhcpwatch/pkg/models"
)

// DHCPFilter selects BOOTP/DHCP traffic
const DHCPFilter = "udp and (port 67 or port 68)"

// libpcap interface flags
const (
	flagLoopback = 0x00000001
	flagUp       = 0x00000002
)

// Opener captures from network interfaces through libpcap or Npcap
type Opener struct {
	SnapLen     int32
	Promiscuous bool
	Timeout     time.Duration
	Filter      string
}

// NewOpener creates a live opener with the DHCP filter applied
func NewOpener(snapLen int, promiscuous bool) *Opener {
	if snapLen <= 0 {
		snapLen = 1600
	}
	return &Opener{
		SnapLen:     int32(snapLen),
		Promiscuous: promiscuous,
		Timeout:     100 * time.Millisecond,
		Filter:      DHCPFilter,
	}
}

// DriverInstalled reports whether the capture library is usable
func (o *Opener) DriverInstalled() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Warnf("Warning: capture library unavailable: %v", r)
			ok = false
		}
	}()

	if pcap.Version() == "" {
		return false
	}
	_, err := pcap.FindAllDevs()
	return err == nil
}

// Interfaces lists capture devices
func (o *Opener) Interfaces() ([]models.NetworkInterface, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}

	seen := make(map[string]int)
	ifaces := make([]models.NetworkInterface, 0, len(devs))
	for _, dev := range devs {
		description := dev.Description
		if description == "" {
			description = "Network Interface"
		}

		addresses := make([]string, 0, len(dev.Addresses))
		for _, addr := range dev.Addresses {
			if addr.IP != nil {
				addresses = append(addresses, addr.IP.String())
			}
		}

		loopback := dev.Flags&flagLoopback != 0 || capture.IsLoopbackDescription(description)
		ifaces = append(ifaces, models.NetworkInterface{
			Name:        capture.DisplayName(description, dev.Name, seen),
			Description: description,
			Addresses:   addresses,
			IsLoopback:  loopback,
			IsUp:        dev.Flags&flagUp != 0 || len(addresses) > 0,
			RealName:    dev.Name,
		})
	}

	return ifaces, nil
}

// Open starts a live capture on device with the DHCP filter installed
func (o *Opener) Open(device string) (capture.Handle, error) {
	handle, err := pcap.OpenLive(device, o.SnapLen, o.Promiscuous, o.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}

	if o.Filter != "" {
		if err := handle.SetBPFFilter(o.Filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set filter %q: %w", o.Filter, err)
		}
	}

	return &liveHandle{handle: handle}, nil
}

type liveHandle struct {
	handle *pcap.Handle
}

func (h *liveHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := h.handle.ReadPacketData()
	if errors.Is(err, pcap.NextErrorTimeoutExpired) {
		return nil, ci, capture.ErrReadTimeout
	}
	return data, ci, err
}

func (h *liveHandle) LinkType() layers.LinkType {
	return h.handle.LinkType()
}

func (h *liveHandle) Close() {
	h.handle.Close()
}
