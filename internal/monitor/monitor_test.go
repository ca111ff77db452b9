package monitor

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhcpwatch/internal/capture"
	"dhcpwatch/internal/config"
	"dhcpwatch/internal/dhcp"
	"dhcpwatch/internal/logs"
	"dhcpwatch/internal/mac"
	"dhcpwatch/pkg/models"
)

type fakeEngine struct {
	mu        sync.Mutex
	records   []models.LogRecord
	logsErr   error
	clearErr  error
	startErr  error
	iface     string
	capturing bool
	cleared   int
	pulls     int
}

func (f *fakeEngine) Interfaces() ([]models.NetworkInterface, error) {
	return []models.NetworkInterface{{Name: "eth0", RealName: "eth0", IsUp: true}}, nil
}

func (f *fakeEngine) DriverInstalled() bool { return true }

func (f *fakeEngine) Start(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.iface, f.capturing = name, true
	return nil
}

func (f *fakeEngine) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.capturing {
		return capture.ErrNotCapturing
	}
	f.capturing = false
	return nil
}

func (f *fakeEngine) Capturing() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.iface, f.capturing
}

func (f *fakeEngine) Logs() ([]models.LogRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return append([]models.LogRecord(nil), f.records...), nil
}

func (f *fakeEngine) ClearLogs() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.records = nil
	f.cleared++
	return nil
}

// end simulates a capture source that ran out of packets
func (f *fakeEngine) end() {
	f.mu.Lock()
	f.capturing = false
	f.mu.Unlock()
}

func (f *fakeEngine) pullCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulls
}

func (f *fakeEngine) add(r models.LogRecord) {
	f.mu.Lock()
	f.records = append(f.records, r)
	f.mu.Unlock()
}

func requestRecord(t *testing.T, id string) models.LogRecord {
	t.Helper()
	hw, _ := net.ParseMAC("00:11:22:33:44:55")
	msg, err := dhcpv4.New(
		dhcpv4.WithHwAddr(hw),
		dhcpv4.WithMessageType(dhcpv4.MessageTypeRequest),
		dhcpv4.WithOption(dhcpv4.OptRequestedIPAddress(net.IPv4(192, 168, 1, 100))),
	)
	require.NoError(t, err)

	return models.LogRecord{
		ID:            id,
		Timestamp:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		PacketType:    models.PacketRequest,
		SourceIP:      "0.0.0.0",
		DestinationIP: "255.255.255.255",
		Option50:      "192.168.1.100",
		Interface:     "eth0",
		RawData:       dhcp.Encode(msg.ToBytes(), models.DecimalList),
	}
}

func newTestMonitor(t *testing.T, engine *fakeEngine) *Monitor {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RefreshInterval = 10 * time.Millisecond
	cfg.AutoRefresh = true

	db, err := mac.NewDatabase("")
	require.NoError(t, err)

	return New(cfg, engine, dhcp.NewDecoder(cfg.Scanner()), db)
}

func TestInspectDecodesStoredRecord(t *testing.T) {
	engine := &fakeEngine{}
	engine.add(requestRecord(t, "r1"))
	m := newTestMonitor(t, engine)
	require.NoError(t, m.Refresh())

	details, err := m.Inspect("r1")
	require.NoError(t, err)
	assert.Empty(t, details.DecodeError)
	assert.Equal(t, "r1", details.Record.ID)

	var found bool
	for _, opt := range details.Options {
		if opt.Code == dhcp.OptionRequest {
			found = true
			assert.Equal(t, details.Record.Option50, opt.Value)
		}
	}
	assert.True(t, found, "option 50 should be decoded")

	require.NotNil(t, details.Header)
	assert.Equal(t, "00:11:22:33:44:55", details.Header.ClientHWAddr)
	assert.NotNil(t, details.Header.Vendor)
}

func TestInspectMalformedBuffer(t *testing.T) {
	engine := &fakeEngine{}
	engine.add(models.LogRecord{ID: "bad", RawData: models.NewRawData("[1, 2, 300]")})
	m := newTestMonitor(t, engine)
	require.NoError(t, m.Refresh())

	details, err := m.Inspect("bad")
	require.NoError(t, err)
	assert.NotEmpty(t, details.DecodeError)
	assert.Empty(t, details.Options)
	assert.Nil(t, details.Header)
}

func TestInspectUnknownRecord(t *testing.T) {
	m := newTestMonitor(t, &fakeEngine{})
	_, err := m.Inspect("missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestClearLogs(t *testing.T) {
	engine := &fakeEngine{}
	engine.add(requestRecord(t, "r1"))
	m := newTestMonitor(t, engine)
	require.NoError(t, m.Refresh())

	require.NoError(t, m.ClearLogs())
	assert.Empty(t, m.GetLogs(""))
	assert.Equal(t, 1, engine.cleared)
}

func TestClearLogsKeepsStoreWhenEngineFails(t *testing.T) {
	engine := &fakeEngine{}
	engine.add(requestRecord(t, "r1"))
	m := newTestMonitor(t, engine)
	require.NoError(t, m.Refresh())

	engine.clearErr = errors.New("engine gone")
	err := m.ClearLogs()
	assert.ErrorIs(t, err, logs.ErrIPCFailure)
	assert.Len(t, m.GetLogs(""), 1)
}

func TestRefreshFailureKeepsStore(t *testing.T) {
	engine := &fakeEngine{}
	engine.add(requestRecord(t, "r1"))
	m := newTestMonitor(t, engine)
	require.NoError(t, m.Refresh())

	engine.logsErr = errors.New("engine gone")
	assert.ErrorIs(t, m.Refresh(), logs.ErrIPCFailure)
	assert.Len(t, m.GetLogs(""), 1)
}

func TestStartCaptureUnavailable(t *testing.T) {
	engine := &fakeEngine{startErr: capture.ErrCaptureUnavailable}
	m := newTestMonitor(t, engine)

	err := m.StartCapture("eth9")
	assert.ErrorIs(t, err, capture.ErrCaptureUnavailable)
	_, capturing := m.CaptureStatus()
	assert.False(t, capturing)
}

func TestCaptureSessionPullsRecords(t *testing.T) {
	engine := &fakeEngine{}
	m := newTestMonitor(t, engine)

	require.NoError(t, m.StartCapture("eth0"))
	engine.add(requestRecord(t, "r1"))

	assert.Eventually(t, func() bool {
		return len(m.GetLogs("")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	engine.add(requestRecord(t, "r2"))
	require.NoError(t, m.StopCapture())
	assert.Len(t, m.GetLogs(""), 2, "stop performs a final pull")

	_, capturing := m.CaptureStatus()
	assert.False(t, capturing)
	assert.ErrorIs(t, m.StopCapture(), capture.ErrNotCapturing)
}

func TestConcurrentStartCaptureKeepsOnePoller(t *testing.T) {
	for trial := 0; trial < 10; trial++ {
		engine := &fakeEngine{}
		m := newTestMonitor(t, engine)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, m.StartCapture("eth0"))
			}()
		}
		wg.Wait()

		stopped := make(chan error, 1)
		go func() { stopped <- m.StopCapture() }()

		select {
		case err := <-stopped:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatalf("trial %d: StopCapture did not return", trial)
		}

		pulls := engine.pullCount()
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, pulls, engine.pullCount(), "trial %d: engine still polled after stop", trial)
	}
}

func TestPollingStopsWhenSessionEnds(t *testing.T) {
	engine := &fakeEngine{}
	m := newTestMonitor(t, engine)

	require.NoError(t, m.StartCapture("eth0"))
	engine.add(requestRecord(t, "r1"))
	engine.end()

	assert.Eventually(t, func() bool {
		m.mu.Lock()
		polling := m.polling
		m.mu.Unlock()
		select {
		case <-polling:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	assert.Len(t, m.GetLogs(""), 1, "last pull keeps the final records")

	pulls := engine.pullCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, pulls, engine.pullCount())

	require.NoError(t, m.StopCapture())
	assert.ErrorIs(t, m.StopCapture(), capture.ErrNotCapturing)
}

func TestStopTwice(t *testing.T) {
	engine := &fakeEngine{}
	m := newTestMonitor(t, engine)
	require.NoError(t, m.Start())
	require.NoError(t, m.StartCapture("eth0"))

	assert.NotPanics(t, func() {
		m.Stop()
		m.Stop()
	})
	_, capturing := engine.Capturing()
	assert.False(t, capturing)
}

func TestQueriesAndStatistics(t *testing.T) {
	engine := &fakeEngine{}
	engine.add(requestRecord(t, "r1"))
	engine.add(models.LogRecord{
		ID:            "r2",
		PacketType:    models.PacketOffer,
		SourceIP:      "10.0.0.1",
		DestinationIP: "10.0.0.50",
		Interface:     "eth0",
		RawData:       models.NewRawData("[]"),
	})
	m := newTestMonitor(t, engine)
	require.NoError(t, m.Refresh())

	assert.Len(t, m.GetLogs("offer"), 1)
	assert.Len(t, m.GetLogs("ETH0"), 2)
	assert.Len(t, m.GetOption50Logs(""), 1)
	assert.Empty(t, m.GetOption50Logs("10.0.0.1"))

	stats := m.GetStatistics()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.WithOption50)
	assert.Equal(t, 50, stats.Percentage)
	assert.Equal(t, 1, stats.ByType[models.PacketRequest])
}

func TestReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhcpwatch.ini")
	require.NoError(t, os.WriteFile(path, []byte("refreshinterval = 2s\nautorefresh = true\n"), 0o644))

	cfg, err := config.New(path)
	require.NoError(t, err)

	m := New(cfg, &fakeEngine{}, dhcp.NewDecoder(cfg.Scanner()), nil)
	assert.Equal(t, 2*time.Second, m.RefreshConfig().Interval)

	require.NoError(t, os.WriteFile(path, []byte("refreshinterval = 5s\nautorefresh = false\n"), 0o644))
	m.reloadConfig()

	assert.Equal(t, logs.RefreshConfig{Interval: 5 * time.Second, AutoRefresh: false}, m.RefreshConfig())
}

func TestReloadConfigIgnoresInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhcpwatch.ini")
	require.NoError(t, os.WriteFile(path, []byte("refreshinterval = 2s\n"), 0o644))

	cfg, err := config.New(path)
	require.NoError(t, err)
	m := New(cfg, &fakeEngine{}, dhcp.NewDecoder(cfg.Scanner()), nil)

	require.NoError(t, os.WriteFile(path, []byte("rawencoding = base64\n"), 0o644))
	m.reloadConfig()

	assert.Equal(t, 2*time.Second, m.RefreshConfig().Interval)
}
