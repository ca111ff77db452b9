// ===== internal/web/handlers.go =====
package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"dhcpwatch/internal/capture"
	"dhcpwatch/internal/log"
	"dhcpwatch/internal/logs"
	"dhcpwatch/internal/monitor"
	"dhcpwatch/internal/version"
	"dhcpwatch/pkg/models"
	"dhcpwatch/pkg/utils"
)

const maxDecodeBody = 1 << 20

// LogRecordJSON represents a log record in JSON format
type LogRecordJSON struct {
	models.LogRecord
	UnixTime        int64  `json:"utime"`
	SourceSort      uint32 `json:"sourceSort"`
	DestinationSort uint32 `json:"destinationSort"`
}

// CaptureStatusJSON reports the capture session state
type CaptureStatusJSON struct {
	Interface       string `json:"interface,omitempty"`
	Capturing       bool   `json:"capturing"`
	DriverInstalled bool   `json:"driver_installed"`
}

// DecodeResultJSON is the result of decoding an arbitrary buffer
type DecodeResultJSON struct {
	Encoding    string              `json:"encoding"`
	Options     []models.DHCPOption `json:"options"`
	DecodeError string              `json:"decode_error,omitempty"`
}

// SettingsJSON reports the active settings of the log view
type SettingsJSON struct {
	RefreshInterval string `json:"refresh_interval"`
	AutoRefresh     bool   `json:"auto_refresh"`
	MaxLogs         int    `json:"max_logs"`
	ShowRawData     bool   `json:"show_raw_data"`
	RawEncoding     string `json:"raw_encoding"`
	OptionsOffset   int    `json:"options_offset"`
	RequireCookie   bool   `json:"require_cookie"`
}

// APIResponse represents the response to a state-changing request
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func toLogRecordJSON(records []models.LogRecord) []LogRecordJSON {
	out := make([]LogRecordJSON, len(records))
	for i, record := range records {
		out[i] = LogRecordJSON{
			LogRecord:       record,
			UnixTime:        record.Timestamp.Unix(),
			SourceSort:      utils.IPStringToInt(record.SourceIP),
			DestinationSort: utils.IPStringToInt(record.DestinationIP),
		}
	}
	return out
}

// handleLogsAPI handles log record queries
func (s *Server) handleLogsAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records := s.monitor.GetLogs(r.URL.Query().Get("q"))
	log.Logger.Debugf("Found %d log records", len(records))

	s.writeData(w, toLogRecordJSON(records))
}

// handleOption50API handles queries over records carrying Option 50
func (s *Server) handleOption50API(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records := s.monitor.GetOption50Logs(r.URL.Query().Get("q"))
	log.Logger.Debugf("Found %d log records with option 50", len(records))

	s.writeData(w, toLogRecordJSON(records))
}

// handleStatsAPI handles statistics requests
func (s *Server) handleStatsAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeData(w, s.monitor.GetStatistics())
}

// handlePacketAPI handles inspection of a single record
func (s *Server) handlePacketAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeJSONError(w, "id parameter is required", http.StatusBadRequest)
		return
	}

	details, err := s.monitor.Inspect(id)
	if err != nil {
		s.writeJSONError(w, err.Error(), errorStatus(err))
		return
	}

	s.writeData(w, details)
}

// handleDecodeAPI decodes the raw data given in the data field or the body
func (s *Server) handleDecodeAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text, err := decodeInput(r)
	if err != nil {
		s.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	raw := models.NewRawData(text)
	result := DecodeResultJSON{Encoding: raw.Encoding.String()}

	options, err := s.monitor.Decode(raw)
	result.Options = options
	if err != nil {
		result.DecodeError = err.Error()
	}

	s.writeData(w, result)
}

// decodeInput returns the raw data text of a decode request: the data field
// of a posted form, or the whole body otherwise
func decodeInput(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxDecodeBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return "", errors.New("invalid form: " + err.Error())
		}
		text := r.PostFormValue("data")
		if text == "" {
			return "", errors.New("data field is required")
		}
		return text, nil
	default:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxDecodeBody))
		if err != nil {
			return "", errors.New("failed to read request body")
		}
		return string(body), nil
	}
}

// handleInterfacesAPI lists capture interfaces
func (s *Server) handleInterfacesAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ifaces, err := s.monitor.Interfaces()
	if err != nil {
		log.Logger.Warnf("Failed to list interfaces: %v", err)
		s.writeJSONError(w, err.Error(), errorStatus(err))
		return
	}

	s.writeData(w, ifaces)
}

// handleCaptureAPI reports the capture state
func (s *Server) handleCaptureAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	iface, capturing := s.monitor.CaptureStatus()
	s.writeData(w, CaptureStatusJSON{
		Interface:       iface,
		Capturing:       capturing,
		DriverInstalled: s.monitor.DriverInstalled(),
	})
}

// handleCaptureStartAPI starts capturing on the requested interface
func (s *Server) handleCaptureStartAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.FormValue("interface")
	if name == "" {
		name = s.cfg.Interface
	}
	if name == "" {
		s.writeJSONError(w, "interface parameter is required", http.StatusBadRequest)
		return
	}

	log.Logger.Infof("Capture start requested on %s", name)

	if err := s.monitor.StartCapture(name); err != nil {
		log.Logger.Warnf("Failed to start capture: %v", err)
		s.writeJSONError(w, err.Error(), errorStatus(err))
		return
	}

	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Capture started on " + name})
}

// handleCaptureStopAPI stops the running capture
func (s *Server) handleCaptureStopAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.monitor.StopCapture(); err != nil {
		s.writeJSONError(w, err.Error(), errorStatus(err))
		return
	}

	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Capture stopped"})
}

// handleClearAPI clears captured logs
func (s *Server) handleClearAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.monitor.ClearLogs(); err != nil {
		log.Logger.Warnf("Failed to clear logs: %v", err)
		s.writeJSONError(w, err.Error(), errorStatus(err))
		return
	}

	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Logs cleared"})
}

// handleSettingsAPI reports the settings and, on POST, changes the refresh
// settings for the running session
func (s *Server) handleSettingsAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := s.updateRefreshConfig(r); err != nil {
			s.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	default:
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	refresh := s.monitor.RefreshConfig()
	s.writeData(w, SettingsJSON{
		RefreshInterval: refresh.Interval.String(),
		AutoRefresh:     refresh.AutoRefresh,
		MaxLogs:         s.cfg.MaxLogs,
		ShowRawData:     s.cfg.ShowRawData,
		RawEncoding:     s.cfg.RawEncoding,
		OptionsOffset:   s.cfg.OptionsOffset,
		RequireCookie:   s.cfg.RequireCookie,
	})
}

func (s *Server) updateRefreshConfig(r *http.Request) error {
	refresh := s.monitor.RefreshConfig()

	if v := r.FormValue("interval"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("invalid interval: " + err.Error())
		}
		if d <= 0 {
			return errors.New("interval must be positive")
		}
		refresh.Interval = d
	}
	if v := r.FormValue("autorefresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("invalid autorefresh: " + err.Error())
		}
		refresh.AutoRefresh = b
	}

	s.monitor.SetRefreshConfig(refresh)
	return nil
}

// handleUpdateAPI checks for a newer release
func (s *Server) handleUpdateAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.checker == nil {
		s.writeData(w, models.UpdateInfo{CurrentVersion: version.Version})
		return
	}

	info, err := s.checker.Check(r.Context())
	if err != nil {
		log.Logger.Warnf("Update check failed: %v", err)
		s.writeJSONError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.writeData(w, info)
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, capture.ErrCaptureUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, logs.ErrIPCFailure):
		return http.StatusBadGateway
	case errors.Is(err, monitor.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, capture.ErrNotCapturing):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeData(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// Helper function to write JSON error responses
func (s *Server) writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, APIResponse{Success: false, Error: message})
}
