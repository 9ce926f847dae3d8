// Package metrics records the lifecycle of ghost-text suggestions.
package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ghosttab/engine"
	"ghosttab/logger"
	"ghosttab/suggest"
)

const (
	EventShown    = "suggestion_shown"
	EventAccepted = "suggestion_accepted"
	EventDisposed = "suggestion_disposed"
)

const SuggestionGhostText = "GHOST_TEXT"

var _ engine.Tracker = (*Tracker)(nil)

// Event is the JSON body posted for every lifecycle change.
type Event struct {
	EventType      string `json:"event_type"`
	SuggestionType string `json:"suggestion_type"`
	SuggestionID   string `json:"suggestion_id"`
	Additions      int    `json:"additions"` // bytes of suggested text
	Lines          int    `json:"lines"`
	Lifespan       *int64 `json:"lifespan"` // ms, accepted and disposed only
	DeviceID       string `json:"device_id"`
	Editor         string `json:"editor"`
}

type shown struct {
	id      string
	shownAt time.Time
}

// Tracker implements engine.Tracker. With an empty URL events are only
// logged.
type Tracker struct {
	url        string
	editor     string
	deviceID   string
	httpClient *http.Client
	now        func() time.Time

	mu     sync.Mutex
	active map[suggest.Suggestion]shown
	wg     sync.WaitGroup
}

func NewTracker(url, editor, dataDir string) *Tracker {
	return &Tracker{
		url:        url,
		editor:     editor,
		deviceID:   loadOrCreateDeviceID(dataDir),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		now:        time.Now,
		active:     make(map[suggest.Suggestion]shown),
	}
}

func (t *Tracker) Shown(s suggest.Suggestion) {
	t.mu.Lock()
	entry := shown{id: uuid.NewString(), shownAt: t.now()}
	t.active[s] = entry
	t.mu.Unlock()

	t.send(t.event(EventShown, s, entry, false))
}

func (t *Tracker) Accepted(s suggest.Suggestion) {
	t.finish(EventAccepted, s)
}

func (t *Tracker) Disposed(s suggest.Suggestion) {
	t.finish(EventDisposed, s)
}

// Close waits for in-flight requests.
func (t *Tracker) Close() {
	t.wg.Wait()
}

func (t *Tracker) finish(eventType string, s suggest.Suggestion) {
	t.mu.Lock()
	entry, ok := t.active[s]
	delete(t.active, s)
	t.mu.Unlock()

	if !ok {
		logger.Debug("metrics: %s for unknown suggestion %v", eventType, s)
		return
	}
	t.send(t.event(eventType, s, entry, true))
}

func (t *Tracker) event(eventType string, s suggest.Suggestion, entry shown, withLifespan bool) *Event {
	ev := &Event{
		EventType:      eventType,
		SuggestionType: SuggestionGhostText,
		SuggestionID:   entry.id,
		Additions:      len(s.Text()),
		Lines:          strings.Count(s.Text(), "\n") + 1,
		DeviceID:       t.deviceID,
		Editor:         t.editor,
	}
	if withLifespan {
		lifespan := t.now().Sub(entry.shownAt).Milliseconds()
		ev.Lifespan = &lifespan
	}
	return ev
}

func (t *Tracker) send(ev *Event) {
	if t.url == "" {
		logger.Debug("metrics: %s (id=%s)", ev.EventType, ev.SuggestionID)
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		body, err := json.Marshal(ev)
		if err != nil {
			logger.Debug("metrics: marshal error: %v", err)
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
		if err != nil {
			logger.Debug("metrics: create request error: %v", err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := t.httpClient.Do(httpReq)
		if err != nil {
			logger.Debug("metrics: send error: %v", err)
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 400 {
			logger.Debug("metrics: server returned %d for %s", resp.StatusCode, ev.EventType)
		} else {
			logger.Debug("metrics: sent %s (id=%s)", ev.EventType, ev.SuggestionID)
		}
	}()
}

func loadOrCreateDeviceID(dataDir string) string {
	if dataDir == "" {
		return uuid.NewString()
	}

	idPath := filepath.Join(dataDir, "device_id")

	data, err := os.ReadFile(idPath)
	if err == nil {
		if id, err := uuid.Parse(strings.TrimSpace(string(data))); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.Warn("metrics: could not create data dir %s: %v", dataDir, err)
		return id
	}
	if err := os.WriteFile(idPath, []byte(id), 0644); err != nil {
		logger.Warn("metrics: could not write device_id: %v", err)
	}
	return id
}
