package store

import (
	"fmt"
	"time"

	"github.com/zpam/mailtype/pkg/ngram"
)

const (
	// ArtifactFormat identifies a mailtype model artifact.
	ArtifactFormat = "mailtype/ngram"
	// ArtifactVersion is the only schema version this build reads and writes.
	ArtifactVersion = 1
)

// Artifact is the serialized form of a model. Contexts and their next words
// keep first-observed order.
type Artifact struct {
	Format    string          `json:"format" msgpack:"format"`
	Version   int             `json:"version" msgpack:"version"`
	Order     int             `json:"order" msgpack:"order"`
	TrainedAt *time.Time      `json:"trained_at,omitempty" msgpack:"trained_at,omitempty"`
	Contexts  []ArtifactEntry `json:"contexts" msgpack:"contexts"`
}

// ArtifactEntry is one context of the frequency table.
type ArtifactEntry struct {
	Context []string          `json:"context" msgpack:"context"`
	Next    []ngram.Candidate `json:"next" msgpack:"next"`
}

// NewArtifact snapshots m.
func NewArtifact(m *ngram.Model) *Artifact {
	a := &Artifact{
		Format:  ArtifactFormat,
		Version: ArtifactVersion,
		Order:   m.Order(),
	}
	if t := m.LastTrained(); !t.IsZero() {
		t = t.UTC()
		a.TrainedAt = &t
	}

	entries := m.Entries()
	a.Contexts = make([]ArtifactEntry, len(entries))
	for i, e := range entries {
		ctx := e.Context
		if ctx == nil {
			ctx = []string{}
		}
		a.Contexts[i] = ArtifactEntry{Context: ctx, Next: e.Next}
	}
	return a
}

// Model validates the artifact and rebuilds the model it describes. Every
// failure is a *CorruptError; no partially restored model is returned.
func (a *Artifact) Model() (*ngram.Model, error) {
	if a.Format != ArtifactFormat {
		return nil, corrupt(fmt.Sprintf("unexpected format %q", a.Format), nil)
	}
	if a.Version != ArtifactVersion {
		return nil, corrupt(fmt.Sprintf("unsupported version %d", a.Version), nil)
	}
	if a.Order < 1 {
		return nil, corrupt(fmt.Sprintf("invalid order %d", a.Order), nil)
	}

	var trainedAt time.Time
	if a.TrainedAt != nil {
		trainedAt = *a.TrainedAt
	}

	entries := make([]ngram.Entry, len(a.Contexts))
	for i, c := range a.Contexts {
		entries[i] = ngram.Entry{Context: c.Context, Next: c.Next}
	}

	m, err := ngram.Restore(a.Order, trainedAt, entries)
	if err != nil {
		return nil, corrupt("invalid table", err)
	}
	return m, nil
}
