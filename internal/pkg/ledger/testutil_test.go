package ledger

import (
	"sync"

	"github.com/gitreadapp/GitRead/app/models"
	"gorm.io/gorm"
)

// fakeRepository is an in-memory Repository honoring the same atomicity
// contract as the GORM implementation: every method holds the lock for its
// whole critical section, so concurrent callers observe transactional
// behavior.
type fakeRepository struct {
	mu       sync.Mutex
	accounts map[string]int64
	events   map[string]*models.ProcessedPaymentEvent

	failNext error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		accounts: make(map[string]int64),
		events:   make(map[string]*models.ProcessedPaymentEvent),
	}
}

func (f *fakeRepository) takeErr() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeRepository) GetOrCreateAccount(userID string, startingCredits int64) (*models.CreditAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	if _, ok := f.accounts[userID]; !ok {
		f.accounts[userID] = startingCredits
	}
	return &models.CreditAccount{UserID: userID, Credits: f.accounts[userID]}, nil
}

func (f *fakeRepository) SetBalance(userID string, credits int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return err
	}
	f.accounts[userID] = credits
	return nil
}

func (f *fakeRepository) DebitIfPositive(userID string) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return false, 0, err
	}
	balance, ok := f.accounts[userID]
	if !ok || balance <= 0 {
		return false, balance, nil
	}
	f.accounts[userID] = balance - 1
	return true, balance - 1, nil
}

func (f *fakeRepository) ApplyPaymentIfNew(eventID, userID string, credits, startingCredits int64) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return false, 0, err
	}
	if _, ok := f.accounts[userID]; !ok {
		f.accounts[userID] = startingCredits
	}
	if _, ok := f.events[eventID]; ok {
		return false, f.accounts[userID], nil
	}
	f.events[eventID] = &models.ProcessedPaymentEvent{
		EventID: eventID,
		UserID:  userID,
		Credits: credits,
	}
	f.accounts[userID] += credits
	return true, f.accounts[userID], nil
}

func (f *fakeRepository) GetProcessedEvent(eventID string) (*models.ProcessedPaymentEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	event, ok := f.events[eventID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return event, nil
}
