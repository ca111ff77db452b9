// ===== internal/monitor/monitor.go =====
package monitor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"dhcpwatch/internal/capture"
	"dhcpwatch/internal/config"
	"dhcpwatch/internal/dhcp"
	"dhcpwatch/internal/log"
	"dhcpwatch/internal/logs"
	"dhcpwatch/internal/mac"
	"dhcpwatch/pkg/models"
)

// ErrRecordNotFound is returned when an inspected record is not in the store
var ErrRecordNotFound = errors.New("log record not found")

// Engine is the capture engine the monitor drives
type Engine interface {
	Interfaces() ([]models.NetworkInterface, error)
	DriverInstalled() bool
	Start(name string) error
	Stop() error
	Capturing() (string, bool)
	Logs() ([]models.LogRecord, error)
	ClearLogs() error
}

// Monitor ties the capture engine to the local log store
type Monitor struct {
	cfg       *config.Config
	engine    Engine
	decoder   *dhcp.Decoder
	macDB     *mac.Database
	store     *logs.Store
	refresher *logs.Refresher

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once

	// session serialises StartCapture and StopCapture
	session sync.Mutex
	cancel  context.CancelFunc
	polling chan struct{}
}

// New creates a new monitor instance
func New(cfg *config.Config, engine Engine, decoder *dhcp.Decoder, macDB *mac.Database) *Monitor {
	m := &Monitor{
		cfg:     cfg,
		engine:  engine,
		decoder: decoder,
		macDB:   macDB,
		store:   logs.NewStore(cfg.MaxLogs),
		stopCh:  make(chan struct{}),
	}
	m.refresher = logs.NewRefresher(m, m.store, cfg.Refresh())
	return m
}

// Start loads the current snapshot and begins watching the config file
func (m *Monitor) Start() error {
	if err := m.refresher.Pull(context.Background()); err != nil {
		log.Logger.Warnf("Warning: failed to load initial logs: %v", err)
	}

	if m.cfg.File == "" {
		return nil
	}

	var err error
	m.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	go m.watchFiles()

	// Watch the directory so editors that replace the file are still seen
	if err := m.watcher.Add(filepath.Dir(m.cfg.File)); err != nil {
		log.Logger.Warnf("Warning: failed to watch config file %s: %v", m.cfg.File, err)
	}

	return nil
}

// Stop stops capture, the refresher and the file watcher. Calls after the
// first do nothing.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)

		if err := m.StopCapture(); err != nil && !errors.Is(err, capture.ErrNotCapturing) {
			log.Logger.Warnf("Warning: failed to stop capture: %v", err)
		}

		if m.watcher != nil {
			m.watcher.Close()
		}
	})
}

func (m *Monitor) watchFiles() {
	absConfig, _ := filepath.Abs(m.cfg.File)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			absEvent, _ := filepath.Abs(event.Name)
			if absEvent != absConfig {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				log.Logger.Infof("Config file modified: %s", event.Name)
				m.reloadConfig()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Logger.Warnf("File watcher error: %v", err)

		case <-m.stopCh:
			return
		}
	}
}

// reloadConfig applies refresh settings from the config file
func (m *Monitor) reloadConfig() {
	next, err := config.New(m.cfg.File)
	if err != nil {
		log.Logger.Warnf("Warning: ignoring invalid config change: %v", err)
		return
	}

	m.mu.Lock()
	m.cfg.RefreshInterval = next.RefreshInterval
	m.cfg.AutoRefresh = next.AutoRefresh
	m.mu.Unlock()

	m.refresher.SetConfig(next.Refresh())
}

// RefreshConfig returns the active refresh settings
func (m *Monitor) RefreshConfig() logs.RefreshConfig {
	return m.refresher.Config()
}

// SetRefreshConfig changes the refresh settings for this session
func (m *Monitor) SetRefreshConfig(cfg logs.RefreshConfig) {
	m.refresher.SetConfig(cfg)
}

// Interfaces returns the capture interfaces
func (m *Monitor) Interfaces() ([]models.NetworkInterface, error) {
	ifaces, err := m.engine.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", logs.ErrIPCFailure, err)
	}
	return ifaces, nil
}

// DriverInstalled reports whether capture is possible
func (m *Monitor) DriverInstalled() bool {
	return m.engine.DriverInstalled()
}

// CaptureStatus returns the capturing interface, if any
func (m *Monitor) CaptureStatus() (string, bool) {
	return m.engine.Capturing()
}

// StartCapture starts the engine and polls it while capture runs. Starting
// while capturing replaces the running session and its poller.
func (m *Monitor) StartCapture(name string) error {
	m.session.Lock()
	defer m.session.Unlock()

	if err := m.engine.Start(name); err != nil {
		return err
	}

	m.stopPolling()

	ctx, cancel := context.WithCancel(context.Background())
	polling := make(chan struct{})

	m.mu.Lock()
	m.cancel, m.polling = cancel, polling
	m.mu.Unlock()

	go func() {
		defer close(polling)
		m.refresher.Run(ctx)
	}()

	return nil
}

// StopCapture stops the engine and takes one last snapshot. The poller is
// stopped even when the session had already ended on its own.
func (m *Monitor) StopCapture() error {
	m.session.Lock()
	defer m.session.Unlock()

	err := m.engine.Stop()
	polled := m.stopPolling()

	if err != nil && !(polled && errors.Is(err, capture.ErrNotCapturing)) {
		return err
	}

	if err := m.refresher.Pull(context.Background()); err != nil {
		log.Logger.Warnf("Warning: failed to pull logs after stopping capture: %v", err)
	}
	return nil
}

// stopPolling cancels the session poller and waits for it to return. It
// reports whether a poller was installed. Callers hold m.session.
func (m *Monitor) stopPolling() bool {
	m.mu.Lock()
	cancel, polling := m.cancel, m.polling
	m.cancel, m.polling = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-polling
	return true
}

// Logs returns the engine snapshot for the refresher. Once the engine has
// no running session the poller is cancelled; this pull is its last.
func (m *Monitor) Logs() ([]models.LogRecord, error) {
	records, err := m.engine.Logs()

	if _, capturing := m.engine.Capturing(); !capturing {
		m.mu.Lock()
		if m.cancel != nil {
			m.cancel()
		}
		m.mu.Unlock()
	}

	return records, err
}

// Refresh pulls one snapshot on demand
func (m *Monitor) Refresh() error {
	return m.refresher.Pull(context.Background())
}

// ClearLogs clears the engine buffer and then the local store. The store is
// left alone when the engine could not be cleared.
func (m *Monitor) ClearLogs() error {
	if err := m.engine.ClearLogs(); err != nil {
		return fmt.Errorf("%w: %v", logs.ErrIPCFailure, err)
	}

	m.store.Clear()
	log.Logger.Info("Logs cleared")
	return nil
}

// GetLogs returns the stored records matching query
func (m *Monitor) GetLogs(query string) []models.LogRecord {
	return logs.Filter(m.store.Snapshot(), query)
}

// GetOption50Logs returns the stored records with Option 50 matching query
func (m *Monitor) GetOption50Logs(query string) []models.LogRecord {
	return logs.Filter(logs.Option50Records(m.store.Snapshot()), query)
}

// GetStatistics summarises the whole store
func (m *Monitor) GetStatistics() models.Statistics {
	return logs.Statistics(m.store.Snapshot())
}

// Decode decodes the options of an arbitrary raw buffer
func (m *Monitor) Decode(raw models.RawData) ([]models.DHCPOption, error) {
	return m.decoder.Decode(raw)
}

// Inspect decodes a stored record. Decode failures are reported inside the
// details rather than as an error.
func (m *Monitor) Inspect(id string) (models.PacketDetails, error) {
	record, ok := m.store.Get(id)
	if !ok {
		return models.PacketDetails{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	details := models.PacketDetails{
		Record:  record,
		Options: []models.DHCPOption{},
	}

	buf, err := dhcp.Normalize(record.RawData)
	if err != nil {
		log.Logger.Debugf("Record %s has malformed raw data: %v", id, err)
		details.DecodeError = err.Error()
		return details, nil
	}

	scanned, err := m.decoder.Scanner.Scan(buf)
	if err != nil {
		log.Logger.Debugf("Record %s: %v", id, err)
	}
	details.Options = dhcp.DecodeOptions(scanned)

	if header, err := dhcp.ParseHeader(buf); err == nil {
		if m.macDB != nil && header.ClientHWAddr != "" {
			header.Vendor = m.macDB.LookupString(header.ClientHWAddr)
		}
		details.Header = header
	}

	return details, nil
}
