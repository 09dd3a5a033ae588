package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBalanceCreatesAccountWithStartingCredits(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, 1)

	balance, err := svc.GetBalance(context.Background(), "user_new")
	require.NoError(t, err)
	assert.Equal(t, int64(1), balance)

	// Second read must not re-apply the starting balance.
	balance, err = svc.GetBalance(context.Background(), "user_new")
	require.NoError(t, err)
	assert.Equal(t, int64(1), balance)
}

func TestSetBalanceRejectsNegative(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, 1)

	err := svc.SetBalance(context.Background(), "user_a", -1)
	assert.ErrorIs(t, err, ErrInvalidCredits)

	require.NoError(t, svc.SetBalance(context.Background(), "user_a", 0))
	balance, err := svc.GetBalance(context.Background(), "user_a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestDebitAtZeroIsRejected(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, 1)

	require.NoError(t, svc.SetBalance(context.Background(), "user_a", 0))

	_, err := svc.Debit(context.Background(), "user_a")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	balance, err := svc.GetBalance(context.Background(), "user_a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance, "failed debit must not go negative")
}

func TestApplyPaymentRoundTrip(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, 1)

	before, err := svc.GetBalance(context.Background(), "user_a")
	require.NoError(t, err)

	res, err := svc.ApplyPayment(context.Background(), PaymentEventID("cs_1"), "user_a", 10)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, before+10, res.Balance)

	after, err := svc.GetBalance(context.Background(), "user_a")
	require.NoError(t, err)
	assert.Equal(t, before+10, after)
}

func TestApplyPaymentRejectsNonPositiveCredits(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, 1)

	_, err := svc.ApplyPayment(context.Background(), PaymentEventID("cs_1"), "user_a", 0)
	assert.ErrorIs(t, err, ErrInvalidCredits)
	_, err = svc.ApplyPayment(context.Background(), PaymentEventID("cs_1"), "user_a", -5)
	assert.ErrorIs(t, err, ErrInvalidCredits)
}

func TestApplyPaymentIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, 1)

	eventID := PaymentEventID("cs_abc")
	first, err := svc.ApplyPayment(context.Background(), eventID, "user_1", 5)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, int64(6), first.Balance) // 1 starting + 5

	// Redelivery of the identical event leaves the balance unchanged.
	second, err := svc.ApplyPayment(context.Background(), eventID, "user_1", 5)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, int64(6), second.Balance)

	processed, err := svc.HasProcessedEvent(context.Background(), eventID)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestApplyPaymentConcurrentSameEvent(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, 1)

	const callers = 32
	eventID := PaymentEventID("cs_race")

	var wg sync.WaitGroup
	results := make([]ApplyResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.ApplyPayment(context.Background(), eventID, "user_1", 5)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, res := range results {
		if res.Applied {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "exactly one caller must apply the credits")

	balance, err := svc.GetBalance(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), balance)
}

func TestConcurrentDebitsDoNotLoseUpdates(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, 1)

	require.NoError(t, svc.SetBalance(context.Background(), "user_1", 6))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(context.Background(), "user_1"); err != nil {
				t.Errorf("unexpected debit error: %v", err)
			}
		}()
	}
	wg.Wait()

	balance, err := svc.GetBalance(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), balance, "two debits must both land")
}

func TestConcurrentDebitsNeverGoNegative(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, 1)

	require.NoError(t, svc.SetBalance(context.Background(), "user_1", 3))

	const callers = 16
	var wg sync.WaitGroup
	var succeeded int64
	var mu sync.Mutex
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(context.Background(), "user_1"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(3), succeeded)
	balance, err := svc.GetBalance(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestStorageErrorsSurface(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, 1)

	storageErr := errors.New("connection reset")

	repo.failNext = storageErr
	_, err := svc.ApplyPayment(context.Background(), PaymentEventID("cs_1"), "user_1", 5)
	assert.ErrorIs(t, err, storageErr, "storage failure must not be masked as success")

	// The failed attempt must remain retryable.
	res, err := svc.ApplyPayment(context.Background(), PaymentEventID("cs_1"), "user_1", 5)
	require.NoError(t, err)
	assert.True(t, res.Applied)
}

func TestWebhookThenVerificationScenario(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, 1)
	ctx := context.Background()

	// New user starts at the default balance.
	balance, err := svc.GetBalance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1), balance)

	// Webhook applies a paid session with 5 credits.
	eventID := PaymentEventID("abc")
	res, err := svc.ApplyPayment(ctx, eventID, "u1", 5)
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, int64(6), res.Balance)

	// Webhook redelivery is a no-op.
	res, err = svc.ApplyPayment(ctx, eventID, "u1", 5)
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, int64(6), res.Balance)

	// Client-triggered verification sees the event as processed and does
	// not touch the balance.
	processed, err := svc.HasProcessedEvent(ctx, PaymentEventID("abc"))
	require.NoError(t, err)
	require.True(t, processed)

	// Two generations debit exactly two credits.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(ctx, "u1"); err != nil {
				t.Errorf("unexpected debit error: %v", err)
			}
		}()
	}
	wg.Wait()

	balance, err = svc.GetBalance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(4), balance)
}
