package offeringRepo

import "mentra/models"

// OfferingRepository reads the externally owned service listings. The
// booking core prices and sizes sessions from offerings but never writes
// them.
type OfferingRepository interface {
	// GetByID retrieves an offering by its unique ID.
	GetByID(id string) (*models.ServiceOffering, error)
	// ListByMentor returns a mentor's active offerings.
	ListByMentor(mentorID string) ([]models.ServiceOffering, error)
}
