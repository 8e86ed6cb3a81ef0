package webhookEventRepo

import (
	"context"

	"mentra/models"
)

// WebhookEventRepository records processor event deliveries for dedup and
// audit. Deliveries are at-least-once, so the same event id may be offered
// repeatedly.
type WebhookEventRepository interface {
	// Reserve claims an event id for processing. It reports false when the
	// id was already processed successfully; a previously failed delivery
	// is claimable again so the processor's retry can land.
	Reserve(ctx context.Context, eventID, eventType string) (bool, error)

	// MarkProcessed stamps a successful outcome on the event row.
	MarkProcessed(ctx context.Context, eventID string) error

	// MarkFailed records the processing error on the event row.
	MarkFailed(ctx context.Context, eventID string, procErr error) error

	// ListRecent returns the newest event rows for the operator surface.
	ListRecent(limit int64) ([]models.WebhookEvent, error)
}
