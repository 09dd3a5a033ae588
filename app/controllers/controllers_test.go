package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gitreadapp/GitRead/app/models"
	"github.com/gitreadapp/GitRead/internal/pkg/generator"
	"github.com/gitreadapp/GitRead/internal/pkg/ledger"
	"github.com/gitreadapp/GitRead/internal/pkg/payments"
	"github.com/gitreadapp/GitRead/internal/pkg/usercontext"
)

// fakeLedgerRepository honors the same atomicity contract as the GORM
// implementation, guarded by a mutex.
type fakeLedgerRepository struct {
	mu       sync.Mutex
	accounts map[string]int64
	events   map[string]int64
	failNext error
}

func newFakeLedgerRepository() *fakeLedgerRepository {
	return &fakeLedgerRepository{
		accounts: make(map[string]int64),
		events:   make(map[string]int64),
	}
}

func (f *fakeLedgerRepository) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeLedgerRepository) GetOrCreateAccount(userID string, startingCredits int64) (*models.CreditAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	if _, ok := f.accounts[userID]; !ok {
		f.accounts[userID] = startingCredits
	}
	return &models.CreditAccount{UserID: userID, Credits: f.accounts[userID]}, nil
}

func (f *fakeLedgerRepository) SetBalance(userID string, credits int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.accounts[userID] = credits
	return nil
}

func (f *fakeLedgerRepository) DebitIfPositive(userID string) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return false, 0, err
	}
	balance, ok := f.accounts[userID]
	if !ok || balance <= 0 {
		return false, balance, nil
	}
	f.accounts[userID] = balance - 1
	return true, balance - 1, nil
}

func (f *fakeLedgerRepository) ApplyPaymentIfNew(eventID, userID string, credits, startingCredits int64) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return false, 0, err
	}
	if _, ok := f.accounts[userID]; !ok {
		f.accounts[userID] = startingCredits
	}
	if _, done := f.events[eventID]; done {
		return false, f.accounts[userID], nil
	}
	f.events[eventID] = credits
	f.accounts[userID] += credits
	return true, f.accounts[userID], nil
}

func (f *fakeLedgerRepository) GetProcessedEvent(eventID string) (*models.ProcessedPaymentEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	credits, ok := f.events[eventID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.ProcessedPaymentEvent{EventID: eventID, Credits: credits}, nil
}

type fakeGenerator struct {
	result      *generator.Result
	err         error
	lastRepoURL string
	onGenerate  func()
}

func (f *fakeGenerator) Generate(_ context.Context, repoURL string) (*generator.Result, error) {
	f.lastRepoURL = repoURL
	if f.onGenerate != nil {
		f.onGenerate()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSemaphore struct {
	full     bool
	err      error
	acquired int
	released int
}

func (f *fakeSemaphore) Acquire(_ context.Context) (func(), bool, error) {
	if f.err != nil {
		return func() {}, false, f.err
	}
	if f.full {
		return func() {}, false, nil
	}
	f.acquired++
	return func() { f.released++ }, true, nil
}

type fakeReadmeRepository struct {
	mu      sync.Mutex
	records []models.GeneratedReadme
	err     error
}

func (f *fakeReadmeRepository) Create(readme *models.GeneratedReadme) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *readme)
	return nil
}

func (f *fakeReadmeRepository) GetByUUID(uuid string) (*models.GeneratedReadme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].UUID == uuid {
			return &f.records[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeReadmeRepository) GetByUserID(userID string, offset, limit int) ([]models.GeneratedReadme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.GeneratedReadme
	// Newest first, like the database query.
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReadmeRepository) CountByUserID(userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, r := range f.records {
		if r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeReadmeRepository) Delete(id uint) error {
	return nil
}

type controllerFixture struct {
	ledgerRepo *fakeLedgerRepository
	generator  *fakeGenerator
	semaphore  *fakeSemaphore
	readmes    *fakeReadmeRepository
}

// setupControllers wires fakes into the controller package and returns them
// for assertions. startingCredits applies to lazily created accounts.
func setupControllers(t *testing.T, startingCredits int64, paymentsBaseURL string) *controllerFixture {
	t.Helper()

	fixture := &controllerFixture{
		ledgerRepo: newFakeLedgerRepository(),
		generator:  &fakeGenerator{result: &generator.Result{Readme: "# Test", InputTokens: 100, OutputTokens: 10}},
		semaphore:  &fakeSemaphore{},
		readmes:    &fakeReadmeRepository{},
	}

	client := &payments.Client{SecretKey: "sk_test", APIBaseURL: paymentsBaseURL, HTTPClient: http.DefaultClient}
	if paymentsBaseURL == "" {
		client = &payments.Client{HTTPClient: http.DefaultClient}
	}

	InitializeControllers(
		ledger.NewService(fixture.ledgerRepo, startingCredits),
		client,
		fixture.generator,
		fixture.semaphore,
		fixture.readmes,
	)
	t.Cleanup(func() {
		InitializeControllers(nil, nil, nil, nil, nil)
	})
	return fixture
}

// newAuthedApp registers the handler behind a test middleware that injects the
// authenticated user context when userID is non-empty.
func newAuthedApp(method, path, userID string, handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Add(method, path, func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("USER_CONTEXT", usercontext.UserContext{UserID: userID, IsLoggedIn: true})
		}
		return c.Next()
	}, handler)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reqBody)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}
