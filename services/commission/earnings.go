package commission

import (
	"context"
	"time"

	earningsRepo "mentra/database/repository/earnings"
	"mentra/models"
	"mentra/utils"

	"go.uber.org/zap"
)

// EarningsService maintains the per-mentor earnings aggregates and keeps
// the commission tier in step with cumulative performance.
type EarningsService interface {
	// ApplySessionIncome credits net session income to the mentor's
	// lifetime and monthly buckets and promotes the tier when the updated
	// stats qualify for a higher one.
	ApplySessionIncome(ctx context.Context, mentorID string, net float64) (*models.MentorEarnings, error)

	// ApplyMessageIncome splits gross message income at the mentor's
	// current tier, credits the net share and promotes the tier when the
	// updated stats qualify.
	ApplyMessageIncome(ctx context.Context, mentorID string, gross float64) (*models.MentorEarnings, error)

	// CurrentTier resolves the mentor's tier from their cumulative stats.
	CurrentTier(mentorID string) (models.CommissionTier, error)

	// GetEarnings returns the mentor's aggregate, zero-valued when the
	// mentor has not earned yet.
	GetEarnings(mentorID string) (*models.MentorEarnings, error)
}

// DefaultEarningsService is the production implementation.
type DefaultEarningsService struct {
	Repo  earningsRepo.EarningsRepository
	Tiers []models.CommissionTier
}

// ApplySessionIncome credits the session bucket. The net amount was
// computed by the booking settlement at the snapshot tier, so this path
// never recomputes commission.
func (s *DefaultEarningsService) ApplySessionIncome(ctx context.Context, mentorID string, net float64) (*models.MentorEarnings, error) {
	if net <= 0 {
		return nil, utils.ValidationError("session income must be positive, got %.2f", net)
	}
	delta := models.IncomeDelta{
		Kind:     models.IncomeSession,
		Net:      net,
		MonthKey: models.MonthKey(time.Now()),
	}
	return s.apply(ctx, mentorID, delta)
}

// ApplyMessageIncome splits gross message income at the mentor's current
// tier before crediting. Message income has no booking carrying a
// snapshot, so the split happens here.
func (s *DefaultEarningsService) ApplyMessageIncome(ctx context.Context, mentorID string, gross float64) (*models.MentorEarnings, error) {
	if gross <= 0 {
		return nil, utils.ValidationError("message income must be positive, got %.2f", gross)
	}
	tier, err := s.CurrentTier(mentorID)
	if err != nil {
		return nil, err
	}
	_, net := Split(gross, tier)

	delta := models.IncomeDelta{
		Kind:     models.IncomeMessage,
		Net:      net,
		MonthKey: models.MonthKey(time.Now()),
	}
	return s.apply(ctx, mentorID, delta)
}

func (s *DefaultEarningsService) apply(ctx context.Context, mentorID string, delta models.IncomeDelta) (*models.MentorEarnings, error) {
	earnings, err := s.Repo.ApplyIncome(ctx, mentorID, delta)
	if err != nil {
		return nil, err
	}

	tier, rank := TierFor(earnings.Stats(), s.Tiers)
	if rank > earnings.TierRank || earnings.CurrentTier == "" {
		promoted, err := s.Repo.PromoteTier(ctx, mentorID, tier.Name, rank, time.Now())
		if err != nil {
			// The income is committed; a missed promotion heals on the
			// next credit. Surface it in the logs only.
			utils.GetLogger().Error("tier promotion failed",
				zap.String("mentorId", mentorID),
				zap.String("tier", tier.Name),
				zap.Error(err),
			)
		} else if promoted {
			utils.GetLogger().Info("mentor promoted to new commission tier",
				zap.String("mentorId", mentorID),
				zap.String("tier", tier.Name),
				zap.Int("rank", rank),
			)
		}
		earnings.CurrentTier = tier.Name
		earnings.TierRank = rank
	}
	s.normalize(earnings)
	return earnings, nil
}

// CurrentTier resolves the tier from cumulative stats. Mentors without an
// aggregate sit in the lowest tier.
func (s *DefaultEarningsService) CurrentTier(mentorID string) (models.CommissionTier, error) {
	earnings, err := s.Repo.GetByMentor(mentorID)
	if err != nil {
		return s.Tiers[0], err
	}
	if earnings == nil {
		return s.Tiers[0], nil
	}
	tier, _ := TierFor(earnings.Stats(), s.Tiers)
	return tier, nil
}

// GetEarnings returns the aggregate, zero-valued for new mentors.
func (s *DefaultEarningsService) GetEarnings(mentorID string) (*models.MentorEarnings, error) {
	earnings, err := s.Repo.GetByMentor(mentorID)
	if err != nil {
		return nil, err
	}
	if earnings == nil {
		earnings = &models.MentorEarnings{MentorID: mentorID}
	}
	s.normalize(earnings)
	return earnings, nil
}

// normalize fills the display tier for aggregates that predate any
// promotion write.
func (s *DefaultEarningsService) normalize(e *models.MentorEarnings) {
	if e.CurrentTier == "" && len(s.Tiers) > 0 {
		e.CurrentTier = s.Tiers[0].Name
	}
}
