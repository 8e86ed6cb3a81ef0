package models

import "time"

// ServiceOffering is an externally owned listing. The booking core reads it
// to price and size sessions; it never writes offerings.
type ServiceOffering struct {
	ID              string    `bson:"id" json:"id"`
	MentorID        string    `bson:"mentorId" json:"mentorId"`
	Title           string    `bson:"title" json:"title"`
	Description     string    `bson:"description,omitempty" json:"description,omitempty"`
	Price           float64   `bson:"price" json:"price"`
	DurationMinutes int       `bson:"durationMinutes" json:"durationMinutes"`
	Active          bool      `bson:"active" json:"active"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}
