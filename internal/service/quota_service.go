package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dos-platform/tutor-api/internal/models"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
)

type billingRepository interface {
	ActiveSubscription(ctx context.Context, profileID string) (*models.SubscriptionEntitlement, error)
	CreditsRemaining(ctx context.Context, profileID string, now time.Time) (int, error)
	ConsumeCredits(ctx context.Context, profileID string, minutes int, now time.Time) (int, error)
}

type parentLinkReader interface {
	LinkedParents(ctx context.Context, studentID string) ([]string, error)
	LinkedStudents(ctx context.Context, parentID string) ([]string, error)
}

type sessionMinutesReader interface {
	LifetimeMinutes(ctx context.Context, studentID string) (int, error)
	MinutesInPeriod(ctx context.Context, studentID string, start, end time.Time) (int, error)
}

// QuotaService answers whether a student may start a session and deducts
// consumed minutes afterwards. Candidate payers are the student's own
// profile plus every linked parent; the free tier applies only to the
// student's own identity.
type QuotaService struct {
	billing  billingRepository
	links    parentLinkReader
	sessions sessionMinutesReader
	freeTier int
	logger   *zap.Logger
	now      func() time.Time
}

// NewQuotaService constructs a QuotaService. freeTierMinutes is the lifetime
// allowance granted to every student before any purchase.
func NewQuotaService(billing billingRepository, links parentLinkReader, sessions sessionMinutesReader, freeTierMinutes int, logger *zap.Logger) *QuotaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaService{
		billing:  billing,
		links:    links,
		sessions: sessions,
		freeTier: freeTierMinutes,
		logger:   logger,
		now:      time.Now,
	}
}

// payerLedger is one candidate's computed balance.
type payerLedger struct {
	profileID      string
	free           int
	subscription   int
	hasEntitledSub bool
	credits        int
}

func (l payerLedger) total() int {
	return l.free + l.subscription + l.credits
}

func (l payerLedger) result() *models.QuotaResult {
	res := &models.QuotaResult{
		Allowed:               l.total() > 0,
		RemainingMinutes:      l.total(),
		FreeRemaining:         l.free,
		SubscriptionRemaining: l.subscription,
		CreditsRemaining:      l.credits,
		PayerProfileID:        l.profileID,
	}
	switch {
	case !res.Allowed:
		res.Reason = models.QuotaReasonExhausted
	case l.subscription > 0:
		res.Reason = models.QuotaReasonSubscription
	case l.credits > 0:
		res.Reason = models.QuotaReasonCredits
	default:
		res.Reason = models.QuotaReasonFreeTier
	}
	return res
}

// Check resolves the student's quota across all candidate payers. The
// allowed candidate with the most remaining minutes wins; when every
// candidate is exhausted, the richest failing candidate is returned so the
// response can explain what ran out.
func (s *QuotaService) Check(ctx context.Context, studentID string) (*models.QuotaResult, error) {
	ledgers, err := s.candidateLedgers(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(ledgers) == 0 {
		return &models.QuotaResult{Allowed: false, Reason: models.QuotaReasonExhausted}, nil
	}

	best := ledgers[0]
	for _, l := range ledgers[1:] {
		if l.total() > best.total() {
			best = l
		}
	}
	return best.result(), nil
}

// Consume deducts minutes after a session completes. A no-op when any payer
// holds an entitled subscription; otherwise the payer with the largest
// credit balance is drained oldest-grant-first. Running out of credits is
// not an error: the session already happened.
func (s *QuotaService) Consume(ctx context.Context, studentID string, minutes int) error {
	if minutes <= 0 {
		return nil
	}
	ledgers, err := s.candidateLedgers(ctx, studentID)
	if err != nil {
		return err
	}

	var best *payerLedger
	for i := range ledgers {
		l := &ledgers[i]
		if l.hasEntitledSub {
			return nil
		}
		if best == nil || l.credits > best.credits {
			best = l
		}
	}
	if best == nil || best.credits <= 0 {
		return nil
	}

	consumed, err := s.billing.ConsumeCredits(ctx, best.profileID, minutes, s.now())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume credits")
	}
	if consumed < minutes {
		s.logger.Warn("credit balance ran out mid-consumption",
			zap.String("payer_profile_id", best.profileID),
			zap.Int("requested", minutes),
			zap.Int("consumed", consumed))
	}
	return nil
}

func (s *QuotaService) candidateLedgers(ctx context.Context, studentID string) ([]payerLedger, error) {
	parents, err := s.links.LinkedParents(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve payers")
	}

	payers := append([]string{studentID}, parents...)
	ledgers := make([]payerLedger, 0, len(payers))
	for _, payerID := range payers {
		ledger, err := s.ledgerFor(ctx, payerID, studentID)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, ledger)
	}
	return ledgers, nil
}

func (s *QuotaService) ledgerFor(ctx context.Context, payerID, studentID string) (payerLedger, error) {
	now := s.now()
	ledger := payerLedger{profileID: payerID}

	if payerID == studentID {
		used, err := s.sessions.LifetimeMinutes(ctx, studentID)
		if err != nil {
			return ledger, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read lifetime minutes")
		}
		if free := s.freeTier - used; free > 0 {
			ledger.free = free
		}
	}

	sub, err := s.billing.ActiveSubscription(ctx, payerID)
	if err != nil {
		return ledger, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read subscription")
	}
	if sub != nil {
		ledger.hasEntitledSub = true
		if sub.MonthlyMinutes != nil && sub.CurrentPeriodStart != nil && sub.CurrentPeriodEnd != nil {
			used, err := s.periodMinutes(ctx, payerID, studentID, *sub.CurrentPeriodStart, *sub.CurrentPeriodEnd)
			if err != nil {
				return ledger, err
			}
			if remaining := *sub.MonthlyMinutes - used; remaining > 0 {
				ledger.subscription = remaining
			}
		}
	}

	credits, err := s.billing.CreditsRemaining(ctx, payerID, now)
	if err != nil {
		return ledger, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read credits")
	}
	ledger.credits = credits

	return ledger, nil
}

// periodMinutes sums subscription-period usage across every student the
// payer funds. A parent's allowance is shared by all their linked children;
// a student payer only ever funds themselves.
func (s *QuotaService) periodMinutes(ctx context.Context, payerID, studentID string, start, end time.Time) (int, error) {
	students := []string{studentID}
	if payerID != studentID {
		linked, err := s.links.LinkedStudents(ctx, payerID)
		if err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve funded students")
		}
		students = linked
	}

	total := 0
	for _, id := range students {
		used, err := s.sessions.MinutesInPeriod(ctx, id, start, end)
		if err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read period minutes")
		}
		total += used
	}
	return total, nil
}
