// ===== internal/capture/replay.go =====
package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"dhcpwatch/pkg/models"
)

// FileOpener replays a pcap or pcapng file as a single pseudo interface
type FileOpener struct {
	Path string
}

// NewFileOpener creates an opener for the capture file at path
func NewFileOpener(path string) *FileOpener {
	return &FileOpener{Path: path}
}

// Interfaces returns the pseudo interface backed by the file
func (o *FileOpener) Interfaces() ([]models.NetworkInterface, error) {
	if _, err := os.Stat(o.Path); err != nil {
		return nil, fmt.Errorf("capture file unavailable: %w", err)
	}

	return []models.NetworkInterface{{
		Name:        filepath.Base(o.Path),
		Description: "Capture file " + o.Path,
		Addresses:   []string{},
		IsUp:        true,
		RealName:    o.Path,
	}}, nil
}

// DriverInstalled reports whether the file can be read
func (o *FileOpener) DriverInstalled() bool {
	_, err := os.Stat(o.Path)
	return err == nil
}

// Open opens the capture file, detecting pcap or pcapng framing
func (o *FileOpener) Open(device string) (Handle, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	if r, err := pcapgo.NewReader(f); err == nil {
		return &fileHandle{source: r, linkType: r.LinkType(), file: f}, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rewind capture file: %w", err)
	}

	r, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("unrecognised capture file %s: %w", device, err)
	}

	return &fileHandle{source: r, linkType: r.LinkType(), file: f}, nil
}

type fileHandle struct {
	source   gopacket.PacketDataSource
	linkType layers.LinkType
	file     *os.File
}

func (h *fileHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return h.source.ReadPacketData()
}

func (h *fileHandle) LinkType() layers.LinkType {
	return h.linkType
}

func (h *fileHandle) Close() {
	h.file.Close()
}
