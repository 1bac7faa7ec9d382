// Package session owns the per-browser application state: one preview store
// per browser session and one TabSession per analysis tab.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medstat/domain/analysis"
	"medstat/domain/core"
	"medstat/domain/dataset"
	"medstat/internal"
	"medstat/internal/preview"
)

// BrowserSession groups everything a single browser tab-set works with
type BrowserSession struct {
	ID      core.ID
	Preview *preview.Store

	// mu also serializes tab switches with preview open and confirm
	mu          sync.Mutex
	tabs        map[analysis.Kind]*TabSession
	active      analysis.Kind
	previewKind analysis.Kind
	lastSeen    time.Time
	timeout     time.Duration
}

// Tab returns the tab session for kind if it was activated before
func (b *BrowserSession) Tab(kind analysis.Kind) (*TabSession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[kind]
	return t, ok
}

// ActiveKind returns the currently active tab, empty before the first activation
func (b *BrowserSession) ActiveKind() analysis.Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Ensure returns the tab session for kind, created on first use without switching to it
func (b *BrowserSession) Ensure(kind analysis.Kind) *TabSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ensureLocked(kind)
}

// Activate makes kind the active tab, creating its session on first use.
// Leaving a tab cancels any open preview; bound datasets are kept.
func (b *BrowserSession) Activate(kind analysis.Kind) *TabSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active != "" && b.active != kind {
		b.Preview.Cancel()
	}
	b.active = kind
	return b.ensureLocked(kind)
}

// OpenPreview switches to kind and opens the preview store for ds.
// Confirming it binds the filtered dataset to the tab of that kind.
func (b *BrowserSession) OpenPreview(kind analysis.Kind, ds *dataset.Dataset, label string) *TabSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = kind
	tab := b.ensureLocked(kind)
	b.previewKind = kind
	b.Preview.Open(ds, label, tab.BindDataset)
	return tab
}

// ConfirmPreview confirms the open preview and reports the tab that received
// the result.
func (b *BrowserSession) ConfirmPreview() (analysis.Kind, *dataset.Dataset, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ds, ok := b.Preview.ConfirmSelection()
	if !ok {
		return "", nil, false
	}
	return b.previewKind, ds, true
}

func (b *BrowserSession) ensureLocked(kind analysis.Kind) *TabSession {
	t, ok := b.tabs[kind]
	if !ok {
		t = newTabSession(kind, b.timeout)
		b.tabs[kind] = t
	}
	return t
}

func (b *BrowserSession) touch(now time.Time) {
	b.mu.Lock()
	b.lastSeen = now
	b.mu.Unlock()
}

func (b *BrowserSession) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen
}

// AppState is the container of all browser sessions
type AppState struct {
	mu       sync.RWMutex
	sessions map[core.ID]*BrowserSession

	ttl            time.Duration
	requestTimeout time.Duration
	now            func() time.Time
	logger         *internal.Logger
}

// NewAppState creates an empty container. Sessions idle for longer than ttl
// are removed by Sweep; requestTimeout bounds every tab run.
func NewAppState(ttl, requestTimeout time.Duration, logger *internal.Logger) *AppState {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AppState{
		sessions:       make(map[core.ID]*BrowserSession),
		ttl:            ttl,
		requestTimeout: requestTimeout,
		now:            time.Now,
		logger:         logger.Component("session"),
	}
}

// Create starts a new browser session
func (a *AppState) Create() *BrowserSession {
	b := &BrowserSession{
		ID:       core.NewID(),
		Preview:  preview.New(),
		tabs:     make(map[analysis.Kind]*TabSession),
		lastSeen: a.now(),
		timeout:  a.requestTimeout,
	}

	a.mu.Lock()
	a.sessions[b.ID] = b
	a.mu.Unlock()

	a.logger.Debug("created session %s", b.ID)
	return b
}

// Get returns the session and marks it as used
func (a *AppState) Get(id core.ID) (*BrowserSession, error) {
	a.mu.RLock()
	b, ok := a.sessions[id]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	b.touch(a.now())
	return b, nil
}

// Activate switches the session's active tab, see BrowserSession.Activate
func (a *AppState) Activate(id core.ID, kind analysis.Kind) (*TabSession, error) {
	if _, ok := analysis.Describe(kind); !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownAnalysis, kind)
	}
	b, err := a.Get(id)
	if err != nil {
		return nil, err
	}
	return b.Activate(kind), nil
}

// Drop discards a session and any open preview
func (a *AppState) Drop(id core.ID) {
	a.mu.Lock()
	b, ok := a.sessions[id]
	delete(a.sessions, id)
	a.mu.Unlock()

	if ok {
		b.Preview.Cancel()
		a.logger.Debug("dropped session %s", id)
	}
}

// Len returns the number of live sessions
func (a *AppState) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
func (a *AppState) Sweep() int {
	cutoff := a.now().Add(-a.ttl)

	a.mu.Lock()
	var expired []*BrowserSession
	for id, b := range a.sessions {
		if b.idleSince().Before(cutoff) {
			expired = append(expired, b)
			delete(a.sessions, id)
		}
	}
	a.mu.Unlock()

	for _, b := range expired {
		b.Preview.Cancel()
	}
	if len(expired) > 0 {
		a.logger.Info("evicted %d idle sessions", len(expired))
	}
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is done
func (a *AppState) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep()
		}
	}
}
