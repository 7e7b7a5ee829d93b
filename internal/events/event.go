// Package events publishes notifications about ingested documents so other
// systems can react to corpus changes. Publishing is best effort: a failed
// publish is logged by the caller and never fails the ingest.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIngested is emitted after a document is indexed.
	EventTypeDocumentIngested = "ragqa.document.ingested"
)

// Kind values for DocumentIngested.
const (
	KindPDF     = "pdf"
	KindWebPage = "web"
)

// ErrNilEvent indicates a nil event payload was provided to a publisher.
var ErrNilEvent = errors.New("nil document event")

// DocumentIngested is a transport-neutral payload describing one ingest.
type DocumentIngested struct {
	SchemaVersion  int       `json:"schema_version"`
	EventType      string    `json:"event_type"`
	EventID        string    `json:"event_id"`
	EmittedAt      time.Time `json:"emitted_at"`
	Source         string    `json:"source"`
	Kind           string    `json:"kind"`
	FragmentsAdded int       `json:"fragments_added"`
	FragmentsTotal int       `json:"fragments_total"`
}

// NewDocumentIngested fills in the envelope fields for a new event.
func NewDocumentIngested(source, kind string, added, total int) *DocumentIngested {
	return &DocumentIngested{
		SchemaVersion:  SchemaVersionV1,
		EventType:      EventTypeDocumentIngested,
		EventID:        uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		Source:         source,
		Kind:           kind,
		FragmentsAdded: added,
		FragmentsTotal: total,
	}
}

// Publisher publishes document events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *DocumentIngested) error
	Close() error
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

// NewNopPublisher creates a no-op publisher.
func NewNopPublisher() *NopPublisher { return &NopPublisher{} }

// Publish validates input and otherwise does nothing.
func (*NopPublisher) Publish(_ context.Context, event *DocumentIngested) error {
	if event == nil {
		return ErrNilEvent
	}
	return nil
}

// Close is a no-op.
func (*NopPublisher) Close() error { return nil }
