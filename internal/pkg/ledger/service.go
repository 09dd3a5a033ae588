package ledger

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gitreadapp/GitRead/internal/pkg/env"
	"gorm.io/gorm"
)

// DefaultStartingCredits is the balance a user starts with when their
// account is created lazily. Overridable via DEFAULT_CREDITS.
const DefaultStartingCredits = 1

// Service is the single authority for mutating credit balances. It
// guarantees idempotent application of payments and a lost-update-free
// decrement on usage.
type Service struct {
	repo            Repository
	startingCredits int64
}

// NewService creates a ledger service from an injected repository.
func NewService(repo Repository, startingCredits int64) *Service {
	if startingCredits < 0 {
		startingCredits = DefaultStartingCredits
	}
	return &Service{repo: repo, startingCredits: startingCredits}
}

// NewServiceFromDB creates a ledger service from a GORM DB handle with the
// configured starting balance.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), StartingCreditsFromEnv())
}

// StartingCreditsFromEnv reads the configured starting balance for new
// accounts.
func StartingCreditsFromEnv() int64 {
	raw := strings.TrimSpace(env.GetEnv("DEFAULT_CREDITS", ""))
	if raw == "" {
		return DefaultStartingCredits
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return DefaultStartingCredits
	}
	return n
}

// GetBalance returns the user's balance, creating the account with the
// starting balance on first contact.
func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	_ = ctx
	if strings.TrimSpace(userID) == "" {
		return 0, errors.New("user id is required")
	}
	account, err := s.repo.GetOrCreateAccount(userID, s.startingCredits)
	if err != nil {
		return 0, err
	}
	return account.Credits, nil
}

// SetBalance overwrites the user's balance. Negative values are rejected;
// the balance invariant is enforced here and by Debit's conditional update.
func (s *Service) SetBalance(ctx context.Context, userID string, credits int64) error {
	_ = ctx
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}
	if credits < 0 {
		return ErrInvalidCredits
	}
	return s.repo.SetBalance(userID, credits)
}

// Debit consumes one credit via an atomic conditional decrement and returns
// the resulting balance. ErrInsufficientCredits means the balance was
// already zero (or the account does not exist) and nothing changed.
func (s *Service) Debit(ctx context.Context, userID string) (int64, error) {
	_ = ctx
	if strings.TrimSpace(userID) == "" {
		return 0, errors.New("user id is required")
	}
	ok, balance, err := s.repo.DebitIfPositive(userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return balance, ErrInsufficientCredits
	}
	return balance, nil
}

// ApplyPayment applies a payment's credits at most once per event id. A
// second call with the same event id returns Applied=false and leaves the
// balance untouched. Storage errors surface to the caller so the payment
// can be retried; they are never treated as success.
func (s *Service) ApplyPayment(ctx context.Context, eventID, userID string, credits int64) (ApplyResult, error) {
	_ = ctx
	if strings.TrimSpace(eventID) == "" || strings.TrimSpace(userID) == "" {
		return ApplyResult{}, errors.New("event id and user id are required")
	}
	if credits <= 0 {
		return ApplyResult{}, ErrInvalidCredits
	}
	applied, balance, err := s.repo.ApplyPaymentIfNew(eventID, userID, credits, s.startingCredits)
	if err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{Applied: applied, Balance: balance}, nil
}

// HasProcessedEvent reports whether credits for the event were already
// applied, letting the verification path short-circuit without a provider
// round trip.
func (s *Service) HasProcessedEvent(ctx context.Context, eventID string) (bool, error) {
	_ = ctx
	if strings.TrimSpace(eventID) == "" {
		return false, errors.New("event id is required")
	}
	if _, err := s.repo.GetProcessedEvent(eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
