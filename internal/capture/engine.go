// ===== internal/capture/engine.go =====
package capture

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"dhcpwatch/internal/log"
	"dhcpwatch/pkg/models"
)

var (
	// ErrCaptureUnavailable is returned when the capture driver is missing or
	// the requested interface cannot be opened
	ErrCaptureUnavailable = errors.New("capture unavailable")

	// ErrReadTimeout is returned by a Handle when no packet arrived within its
	// read timeout
	ErrReadTimeout = errors.New("capture read timeout")

	// ErrNotCapturing is returned by Stop when no session is running
	ErrNotCapturing = errors.New("capture not running")
)

// Handle is an open packet source
type Handle interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
	Close()
}

// Opener lists interfaces and opens packet sources on them
type Opener interface {
	Interfaces() ([]models.NetworkInterface, error)
	DriverInstalled() bool
	Open(device string) (Handle, error)
}

type session struct {
	iface  models.NetworkInterface
	handle Handle
	stopCh chan struct{}
	done   chan struct{}
}

// Engine captures DHCP packets from an Opener into a bounded buffer
type Engine struct {
	opener  Opener
	builder *RecordBuilder
	buffer  *Buffer

	mu      sync.Mutex
	session *session
}

// NewEngine creates a capture engine
func NewEngine(opener Opener, builder *RecordBuilder, buffer *Buffer) *Engine {
	return &Engine{
		opener:  opener,
		builder: builder,
		buffer:  buffer,
	}
}

// Interfaces returns the interfaces available for capture
func (e *Engine) Interfaces() ([]models.NetworkInterface, error) {
	return e.opener.Interfaces()
}

// DriverInstalled reports whether packet capture is possible on this host
func (e *Engine) DriverInstalled() bool {
	return e.opener.DriverInstalled()
}

// Start begins capturing on the named interface, stopping any running session
func (e *Engine) Start(name string) error {
	if !e.opener.DriverInstalled() {
		return fmt.Errorf("%w: capture driver is not installed", ErrCaptureUnavailable)
	}

	ifaces, err := e.opener.Interfaces()
	if err != nil {
		return fmt.Errorf("%w: failed to list interfaces: %v", ErrCaptureUnavailable, err)
	}

	iface, ok := FindInterface(ifaces, name)
	if !ok {
		return fmt.Errorf("%w: interface %q not found", ErrCaptureUnavailable, name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		log.Logger.Infof("Restarting capture, stopping session on %s", e.session.iface.Name)
		e.stopLocked()
	}

	handle, err := e.opener.Open(iface.RealName)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %v", ErrCaptureUnavailable, iface.RealName, err)
	}

	s := &session{
		iface:  iface,
		handle: handle,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	e.session = s

	log.Logger.Infof("Capture started on %s (%s)", iface.Name, iface.RealName)
	go e.run(s)

	return nil
}

// Stop ends the running capture session
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNotCapturing
	}

	e.stopLocked()
	return nil
}

func (e *Engine) stopLocked() {
	s := e.session
	e.session = nil

	close(s.stopCh)
	<-s.done
	s.handle.Close()

	log.Logger.Infof("Capture stopped on %s", s.iface.Name)
}

// Capturing reports whether a session is running and on which interface
func (e *Engine) Capturing() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return "", false
	}
	return e.session.iface.Name, true
}

// Logs returns a full snapshot of the captured records
func (e *Engine) Logs() ([]models.LogRecord, error) {
	return e.buffer.Snapshot(), nil
}

// ClearLogs drops every captured record
func (e *Engine) ClearLogs() error {
	e.buffer.Clear()
	return nil
}

func (e *Engine) run(s *session) {
	exhausted := e.read(s)
	close(s.done)

	if exhausted {
		e.release(s)
	}
}

// read copies DHCP records from the handle into the buffer. It reports true
// when the source ended on its own rather than through Stop.
func (e *Engine) read(s *session) bool {
	var count int
	for {
		select {
		case <-s.stopCh:
			log.Logger.Debugf("Capture loop on %s exiting after %d DHCP packets", s.iface.Name, count)
			return false
		default:
		}

		data, ci, err := s.handle.ReadPacketData()
		switch {
		case err == nil:
		case errors.Is(err, ErrReadTimeout):
			continue
		case errors.Is(err, io.EOF):
			log.Logger.Infof("Capture source on %s exhausted after %d DHCP packets", s.iface.Name, count)
			return true
		default:
			log.Logger.Warnf("Warning: capture on %s failed: %v", s.iface.Name, err)
			return true
		}

		packet := gopacket.NewPacket(data, s.handle.LinkType(), gopacket.Default)
		packet.Metadata().CaptureInfo = ci

		if record, ok := e.builder.Build(packet, s.iface.Name); ok {
			e.buffer.Add(record)
			count++
		}
	}
}

// release ends a session whose reader has returned. A concurrent Stop or
// restart has already detached the session and closes the handle itself.
func (e *Engine) release(s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != s {
		return
	}
	e.session = nil
	s.handle.Close()

	log.Logger.Infof("Capture ended on %s", s.iface.Name)
}

// FindInterface picks the interface matching name by display name, device
// name, or a substring of either or of its description
func FindInterface(ifaces []models.NetworkInterface, name string) (models.NetworkInterface, bool) {
	if name == "" {
		return models.NetworkInterface{}, false
	}

	for _, iface := range ifaces {
		if iface.Name == name || iface.RealName == name {
			return iface, true
		}
	}

	for _, iface := range ifaces {
		if strings.Contains(iface.RealName, name) ||
			strings.Contains(iface.Name, name) ||
			strings.Contains(iface.Description, name) {
			return iface, true
		}
	}

	return models.NetworkInterface{}, false
}
