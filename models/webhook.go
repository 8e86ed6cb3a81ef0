package models

import "time"

// WebhookEvent records one processor event delivery for dedup and audit.
// Deliveries are at-least-once: the same event id may arrive repeatedly,
// and a processed id must reconcile to a no-op.
type WebhookEvent struct {
	EventID     string     `bson:"eventId" json:"eventId"`
	Type        string     `bson:"type" json:"type"`
	Processed   bool       `bson:"processed" json:"processed"`
	Error       string     `bson:"error,omitempty" json:"error,omitempty"`
	ReceivedAt  time.Time  `bson:"receivedAt" json:"receivedAt"`
	ProcessedAt *time.Time `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
}
