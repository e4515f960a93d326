package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Cache mirrors the persisted settings for one page session. The first
// Load performs a one-shot read from the store; subsequent loads serve
// the cached snapshot until Invalidate. Concurrent loads during the
// in-flight read share the same pending call rather than issuing
// duplicate store round-trips.
type Cache struct {
	store Store

	mu       sync.Mutex
	snapshot *Values
	inflight *loadCall
}

type loadCall struct {
	done   chan struct{}
	values Values
	err    error
}

// NewCache creates a cache over the given store.
func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Load returns the current settings snapshot, reading from the store
// on first use or after invalidation.
func (c *Cache) Load(ctx context.Context) (Values, error) {
	c.mu.Lock()
	if c.snapshot != nil {
		v := c.snapshot.clone()
		c.mu.Unlock()
		return v, nil
	}
	if c.inflight != nil {
		call := c.inflight
		c.mu.Unlock()
		<-call.done
		return call.values.clone(), call.err
	}

	call := &loadCall{done: make(chan struct{})}
	c.inflight = call
	c.mu.Unlock()

	values, err := c.fetch(ctx)

	c.mu.Lock()
	call.values, call.err = values, err
	if err == nil {
		snap := values.clone()
		c.snapshot = &snap
	}
	c.inflight = nil
	close(call.done)
	c.mu.Unlock()

	return values.clone(), err
}

// Invalidate drops the cached snapshot so the next Load re-reads the
// store. Called when another extension surface reports a settings
// change.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
}

// SaveRemark saves or deletes the annotation for username and persists
// the updated list. A whitespace-only remark deletes the annotation
// instead of storing an empty one. It reports whether an annotation
// exists for the username after the call.
func (c *Cache) SaveRemark(ctx context.Context, username, remark string) (bool, error) {
	values, err := c.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load settings before saving remark: %w", err)
	}

	remarks := values.Remarks
	if strings.TrimSpace(remark) == "" {
		var removed bool
		remarks, removed = removeRemark(remarks, username)
		if !removed {
			// Nothing stored and nothing to store.
			return false, nil
		}
	} else {
		remarks, _ = upsertRemark(remarks, username, remark)
	}

	// Cache-then-persist: the snapshot and the store move through the
	// same path so they cannot diverge within one session.
	c.mu.Lock()
	if c.snapshot != nil {
		c.snapshot.Remarks = remarks
	}
	c.mu.Unlock()

	if err := c.store.Set(ctx, map[string]any{KeyUserRemarks: remarks}); err != nil {
		// The snapshot already moved; drop it so the next load re-reads
		// the store instead of serving state that was never persisted.
		c.Invalidate()
		return false, fmt.Errorf("failed to persist remarks: %w", err)
	}
	_, has := Values{Remarks: remarks}.Remark(username)
	return has, nil
}

// SetFlag updates one boolean feature flag and persists it.
func (c *Cache) SetFlag(ctx context.Context, key string, enabled bool) error {
	c.mu.Lock()
	if c.snapshot != nil {
		switch key {
		case KeyRemarkEnabled:
			c.snapshot.RemarkEnabled = enabled
		case KeyVideoDownload:
			c.snapshot.VideoDownload = enabled
		case KeyScreenshotEnabled:
			c.snapshot.ScreenshotEnabled = enabled
		}
	}
	c.mu.Unlock()

	if err := c.store.Set(ctx, map[string]any{key: enabled}); err != nil {
		c.Invalidate()
		return fmt.Errorf("failed to persist flag %s: %w", key, err)
	}
	return nil
}

// fetch performs the one-shot store read with defaults substituted for
// unset keys.
func (c *Cache) fetch(ctx context.Context) (Values, error) {
	raw, err := c.store.Get(ctx, AllKeys)
	if err != nil {
		return Values{}, fmt.Errorf("failed to read settings store: %w", err)
	}

	values := Defaults()
	if v, ok := raw[KeyRemarkEnabled]; ok {
		values.RemarkEnabled = boolValue(v, true)
	}
	if v, ok := raw[KeyVideoDownload]; ok {
		values.VideoDownload = boolValue(v, true)
	}
	if v, ok := raw[KeyScreenshotEnabled]; ok {
		values.ScreenshotEnabled = boolValue(v, true)
	}
	if v, ok := raw[KeyDownloadDirectory]; ok {
		if s, ok := v.(string); ok {
			values.DownloadDirectory = s
		}
	}
	if v, ok := raw[KeyUserRemarks]; ok {
		remarks, err := decodeRemarks(v)
		if err != nil {
			return Values{}, fmt.Errorf("failed to decode stored remarks: %w", err)
		}
		values.Remarks = remarks
	}
	return values, nil
}

func boolValue(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

// decodeRemarks converts the store's loosely typed value back into the
// annotation list. JSON stores hand back []any of maps; an in-process
// store may hand back the typed slice directly.
func decodeRemarks(v any) ([]Annotation, error) {
	if typed, ok := v.([]Annotation); ok {
		out := make([]Annotation, len(typed))
		copy(out, typed)
		return out, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out []Annotation
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Annotation{}
	}
	return out, nil
}
