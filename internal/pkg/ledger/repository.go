package ledger

import (
	"errors"
	"time"

	"github.com/gitreadapp/GitRead/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the storage operations the ledger service relies on.
// Every balance mutation is a single atomic statement or an explicit
// transaction on the storage side; the service never does read-then-write
// across calls.
type Repository interface {
	GetOrCreateAccount(userID string, startingCredits int64) (*models.CreditAccount, error)
	SetBalance(userID string, credits int64) error
	DebitIfPositive(userID string) (bool, int64, error)
	ApplyPaymentIfNew(eventID, userID string, credits, startingCredits int64) (bool, int64, error)
	GetProcessedEvent(eventID string) (*models.ProcessedPaymentEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetOrCreateAccount(userID string, startingCredits int64) (*models.CreditAccount, error) {
	return getOrCreateAccount(r.db, userID, startingCredits)
}

func getOrCreateAccount(db *gorm.DB, userID string, startingCredits int64) (*models.CreditAccount, error) {
	var account models.CreditAccount
	if err := db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			account = models.CreditAccount{UserID: userID, Credits: startingCredits}
			// DoNothing absorbs the race where two requests create the
			// same account; the re-read below returns the winner's row.
			if err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoNothing: true,
			}).Create(&account).Error; err != nil {
				return nil, err
			}
			if err := db.Where("user_id = ?", userID).First(&account).Error; err != nil {
				return nil, err
			}
			return &account, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) SetBalance(userID string, credits int64) error {
	account := models.CreditAccount{
		UserID:    userID,
		Credits:   credits,
		UpdatedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"credits", "updated_at"}),
	}).Create(&account).Error
}

// DebitIfPositive performs the conditional decrement in one statement so two
// concurrent debits can never both read the same starting balance.
func (r *gormRepository) DebitIfPositive(userID string) (bool, int64, error) {
	tx := r.db.Model(&models.CreditAccount{}).
		Where("user_id = ? AND credits > 0", userID).
		UpdateColumns(map[string]interface{}{
			"credits":    gorm.Expr("credits - ?", 1),
			"updated_at": time.Now(),
		})
	if tx.Error != nil {
		return false, 0, tx.Error
	}

	var account models.CreditAccount
	if err := r.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return tx.RowsAffected > 0, account.Credits, nil
}

// ApplyPaymentIfNew inserts the processed-event row and increments the
// balance in one transaction. The primary key on event_id makes the insert
// the arbiter: of N concurrent callers with the same event, exactly one
// sees RowsAffected == 1 and applies the credits.
func (r *gormRepository) ApplyPaymentIfNew(eventID, userID string, credits, startingCredits int64) (bool, int64, error) {
	applied := false
	var balance int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		event := models.ProcessedPaymentEvent{
			EventID: eventID,
			UserID:  userID,
			Credits: credits,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).Create(&event)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			// Already applied; report the current balance without mutation.
			account, err := getOrCreateAccount(tx, userID, startingCredits)
			if err != nil {
				return err
			}
			balance = account.Credits
			return nil
		}

		if _, err := getOrCreateAccount(tx, userID, startingCredits); err != nil {
			return err
		}
		if err := tx.Model(&models.CreditAccount{}).
			Where("user_id = ?", userID).
			UpdateColumns(map[string]interface{}{
				"credits":    gorm.Expr("credits + ?", credits),
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		var account models.CreditAccount
		if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
			return err
		}
		applied = true
		balance = account.Credits
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return applied, balance, nil
}

func (r *gormRepository) GetProcessedEvent(eventID string) (*models.ProcessedPaymentEvent, error) {
	var event models.ProcessedPaymentEvent
	if err := r.db.Where("event_id = ?", eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
