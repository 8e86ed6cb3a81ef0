package commission

import (
	"context"
	"errors"
	"testing"
	"time"

	"mentra/models"
	"mentra/utils"
)

// fakeEarningsRepo applies income deltas in memory the same way the Mongo
// repository does, so the service's promotion logic can be exercised
// without a database.
type fakeEarningsRepo struct {
	aggregates  map[string]*models.MentorEarnings
	promoteErr  error
	promotions  []string
	getErr      error
	applyCalled int
}

func newFakeEarningsRepo() *fakeEarningsRepo {
	return &fakeEarningsRepo{aggregates: map[string]*models.MentorEarnings{}}
}

func (f *fakeEarningsRepo) ApplyIncome(_ context.Context, mentorID string, delta models.IncomeDelta) (*models.MentorEarnings, error) {
	f.applyCalled++
	e, ok := f.aggregates[mentorID]
	if !ok {
		e = &models.MentorEarnings{MentorID: mentorID, Monthly: map[string]models.EarningsBucket{}}
		f.aggregates[mentorID] = e
	}
	bucket := e.Monthly[delta.MonthKey]
	switch delta.Kind {
	case models.IncomeSession:
		e.SessionEarnings += delta.Net
		e.SessionCount++
		bucket.SessionEarnings += delta.Net
		bucket.SessionCount++
	case models.IncomeMessage:
		e.MessageEarnings += delta.Net
		e.MessageCount++
		bucket.MessageEarnings += delta.Net
		bucket.MessageCount++
	}
	e.TotalEarnings += delta.Net
	bucket.TotalEarnings += delta.Net
	e.Monthly[delta.MonthKey] = bucket
	copied := *e
	return &copied, nil
}

func (f *fakeEarningsRepo) PromoteTier(_ context.Context, mentorID, tier string, rank int, at time.Time) (bool, error) {
	if f.promoteErr != nil {
		return false, f.promoteErr
	}
	e, ok := f.aggregates[mentorID]
	if !ok || e.TierRank >= rank && e.CurrentTier != "" {
		return false, nil
	}
	e.CurrentTier = tier
	e.TierRank = rank
	e.TierUpdatedAt = at
	f.promotions = append(f.promotions, tier)
	return true, nil
}

func (f *fakeEarningsRepo) GetByMentor(mentorID string) (*models.MentorEarnings, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	e, ok := f.aggregates[mentorID]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func newEarningsService(repo *fakeEarningsRepo) *DefaultEarningsService {
	return &DefaultEarningsService{Repo: repo, Tiers: testTiers}
}

func TestApplySessionIncomeFirstCredit(t *testing.T) {
	repo := newFakeEarningsRepo()
	svc := newEarningsService(repo)

	earnings, err := svc.ApplySessionIncome(context.Background(), "mentor-1", 80)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if earnings.TotalEarnings != 80 || earnings.SessionEarnings != 80 || earnings.SessionCount != 1 {
		t.Fatalf("unexpected aggregate: %+v", earnings)
	}
	if earnings.CurrentTier != "starter" {
		t.Fatalf("new mentor should display the lowest tier, got %q", earnings.CurrentTier)
	}
	month := models.MonthKey(time.Now())
	if b := earnings.Monthly[month]; b.TotalEarnings != 80 || b.SessionCount != 1 {
		t.Fatalf("monthly bucket not updated: %+v", b)
	}
}

func TestApplySessionIncomePromotes(t *testing.T) {
	repo := newFakeEarningsRepo()
	svc := newEarningsService(repo)
	ctx := context.Background()

	// Ten sessions at 80 net crosses both growing thresholds.
	var last *models.MentorEarnings
	for i := 0; i < 10; i++ {
		var err error
		last, err = svc.ApplySessionIncome(ctx, "mentor-1", 80)
		if err != nil {
			t.Fatalf("credit %d failed: %v", i, err)
		}
	}
	if last.CurrentTier != "growing" || last.TierRank != 1 {
		t.Fatalf("expected promotion to growing, got %s (rank %d)", last.CurrentTier, last.TierRank)
	}
	if len(repo.promotions) == 0 || repo.promotions[len(repo.promotions)-1] != "growing" {
		t.Fatalf("expected a recorded promotion to growing, got %v", repo.promotions)
	}
}

func TestApplySessionIncomeSurvivesPromotionFailure(t *testing.T) {
	repo := newFakeEarningsRepo()
	repo.promoteErr = errors.New("write conflict")
	svc := newEarningsService(repo)

	earnings, err := svc.ApplySessionIncome(context.Background(), "mentor-1", 80)
	if err != nil {
		t.Fatalf("income must commit even when the tier write fails: %v", err)
	}
	if earnings.TotalEarnings != 80 {
		t.Fatalf("unexpected total: %.2f", earnings.TotalEarnings)
	}
}

func TestApplyMessageIncomeSplitsAtCurrentTier(t *testing.T) {
	repo := newFakeEarningsRepo()
	svc := newEarningsService(repo)

	earnings, err := svc.ApplyMessageIncome(context.Background(), "mentor-1", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// New mentor sits in starter (20%), so 100 gross nets 80.
	if earnings.MessageEarnings != 80 || earnings.MessageCount != 1 {
		t.Fatalf("expected net 80 credited, got %+v", earnings)
	}
}

func TestApplyIncomeRejectsNonPositiveAmounts(t *testing.T) {
	svc := newEarningsService(newFakeEarningsRepo())
	ctx := context.Background()

	if _, err := svc.ApplySessionIncome(ctx, "m", 0); utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.ApplyMessageIncome(ctx, "m", -5); utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCurrentTierDefaultsForUnknownMentor(t *testing.T) {
	svc := newEarningsService(newFakeEarningsRepo())

	tier, err := svc.CurrentTier("nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier.Name != "starter" {
		t.Fatalf("expected starter, got %s", tier.Name)
	}
}

func TestGetEarningsZeroValuedForNewMentor(t *testing.T) {
	svc := newEarningsService(newFakeEarningsRepo())

	earnings, err := svc.GetEarnings("nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if earnings.TotalEarnings != 0 || earnings.CurrentTier != "starter" {
		t.Fatalf("expected zero-valued aggregate in starter, got %+v", earnings)
	}
}
