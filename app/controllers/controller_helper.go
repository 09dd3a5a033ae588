package controllers

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gitreadapp/GitRead/app/repository"
	"github.com/gitreadapp/GitRead/internal/pkg/database"
	"github.com/gitreadapp/GitRead/internal/pkg/generator"
	"github.com/gitreadapp/GitRead/internal/pkg/ledger"
	"github.com/gitreadapp/GitRead/internal/pkg/limiter"
	"github.com/gitreadapp/GitRead/internal/pkg/payments"
)

var validate = validator.New()

// concurrencyLimiter is what the generate flow needs from the semaphore.
type concurrencyLimiter interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

var (
	depsMu         sync.Mutex
	ledgerSvc      *ledger.Service
	paymentsClient *payments.Client
	readmeGen      generator.ReadmeGenerator
	generateSem    concurrencyLimiter
	readmeRepo     repository.ReadmeRepository
)

// InitializeControllers injects the controller collaborators. Tests use this
// to swap in fakes; production wiring happens once at boot.
func InitializeControllers(svc *ledger.Service, client *payments.Client, gen generator.ReadmeGenerator, sem concurrencyLimiter, readmes repository.ReadmeRepository) {
	depsMu.Lock()
	defer depsMu.Unlock()
	ledgerSvc = svc
	paymentsClient = client
	readmeGen = gen
	generateSem = sem
	readmeRepo = readmes
}

func getLedgerService() *ledger.Service {
	depsMu.Lock()
	defer depsMu.Unlock()
	if ledgerSvc == nil {
		ledgerSvc = ledger.NewServiceFromDB(database.GetDB())
	}
	return ledgerSvc
}

func getPaymentsClient() *payments.Client {
	depsMu.Lock()
	defer depsMu.Unlock()
	if paymentsClient == nil {
		paymentsClient = payments.NewClientFromEnv()
	}
	return paymentsClient
}

func getReadmeGenerator() generator.ReadmeGenerator {
	depsMu.Lock()
	defer depsMu.Unlock()
	if readmeGen == nil {
		readmeGen = generator.NewFromEnv()
	}
	return readmeGen
}

func getGenerateSemaphore() concurrencyLimiter {
	depsMu.Lock()
	defer depsMu.Unlock()
	if generateSem == nil {
		generateSem = limiter.NewFromEnv()
	}
	return generateSem
}

func getReadmeRepository() repository.ReadmeRepository {
	depsMu.Lock()
	defer depsMu.Unlock()
	if readmeRepo == nil {
		db := database.GetDB()
		if db == nil {
			return nil
		}
		readmeRepo = repository.NewReadmeRepository(db)
	}
	return readmeRepo
}

func requestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
