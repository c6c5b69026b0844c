package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Sink stores a named document and returns where it ended up.
type Sink interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// ErrNoSink is returned by Export without a configured sink.
var ErrNoSink = errors.New("export sink not configured")

type exportDocument[T any] struct {
	Slot       string    `json:"slot"`
	ExportedAt time.Time `json:"exportedAt"`
	Count      int       `json:"count"`
	Items      []T       `json:"items"`
}

// Export writes a JSON snapshot of slot to sink under name and returns the
// stored location. An empty name gets a timestamped default.
func Export[T Keyed](ctx context.Context, store *Store[T], slot Slot, sink Sink, name string) (string, error) {
	if sink == nil {
		return "", ErrNoSink
	}

	now := time.Now().UTC()
	items := store.Snapshot(slot)
	if items == nil {
		items = []T{}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("exports/%s-%s.json", slot, now.Format("20060102T150405Z"))
	}

	body, err := json.MarshalIndent(exportDocument[T]{
		Slot:       slot.String(),
		ExportedAt: now,
		Count:      len(items),
		Items:      items,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}

	location, err := sink.Save(ctx, name, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("save export %s: %w", name, err)
	}
	return location, nil
}
