// ===== internal/logs/refresher.go =====
package logs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dhcpwatch/internal/log"
	"dhcpwatch/pkg/models"
)

// DefaultRefreshInterval is used when no interval is configured
const DefaultRefreshInterval = time.Second

// ErrIPCFailure is returned when the capture engine cannot be reached
var ErrIPCFailure = errors.New("capture engine call failed")

// Source provides full snapshots of captured records
type Source interface {
	Logs() ([]models.LogRecord, error)
}

// RefreshConfig controls how often snapshots are pulled while capturing
type RefreshConfig struct {
	Interval    time.Duration
	AutoRefresh bool
}

// Refresher pulls snapshots from a source into a store
type Refresher struct {
	source Source
	store  *Store

	mu      sync.Mutex
	cfg     RefreshConfig
	changed chan struct{}
}

// NewRefresher creates a refresher
func NewRefresher(source Source, store *Store, cfg RefreshConfig) *Refresher {
	return &Refresher{
		source:  source,
		store:   store,
		cfg:     withDefaults(cfg),
		changed: make(chan struct{}, 1),
	}
}

func withDefaults(cfg RefreshConfig) RefreshConfig {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	return cfg
}

// Config returns the current refresh settings
func (r *Refresher) Config() RefreshConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// SetConfig updates the refresh settings. A running loop picks them up
// without waiting for the current tick.
func (r *Refresher) SetConfig(cfg RefreshConfig) {
	r.mu.Lock()
	r.cfg = withDefaults(cfg)
	r.mu.Unlock()

	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// Pull replaces the store with one snapshot from the source. On failure
// the store keeps its previous contents.
func (r *Refresher) Pull(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := r.source.Logs()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIPCFailure, err)
	}

	r.store.Replace(records)
	return nil
}

// Run pulls at the configured interval until ctx is done
func (r *Refresher) Run(ctx context.Context) {
	cfg := r.Config()
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Logger.Debugf("Refresher started, interval %s, auto refresh %t", cfg.Interval, cfg.AutoRefresh)

	for {
		select {
		case <-ctx.Done():
			log.Logger.Debug("Refresher stopped")
			return

		case <-r.changed:
			cfg = r.Config()
			ticker.Reset(cfg.Interval)
			log.Logger.Infof("Refresh settings changed: interval %s, auto refresh %t", cfg.Interval, cfg.AutoRefresh)

		case <-ticker.C:
			if !cfg.AutoRefresh {
				continue
			}
			if err := r.Pull(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Logger.Warnf("Warning: failed to refresh logs: %v", err)
			}
		}
	}
}
