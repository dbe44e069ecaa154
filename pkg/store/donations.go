package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flaboy/aira-donate/pkg/errors"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/utils"
	"github.com/flaboy/aira-donate/pkg/models"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// DonationStore persists donation attempts and their status transitions.
type DonationStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDonationStore(db *gorm.DB) *DonationStore {
	return &DonationStore{db: db, now: time.Now}
}

// StatusUpdate moves a pending donation to a terminal status.
type StatusUpdate struct {
	Status         models.DonationStatus
	PaymentID      string
	SubscriptionID string
	FailureReason  string
}

// Intent holds gateway ids known before the donor pays.
type Intent struct {
	OrderID        string
	SubscriptionID string
	PlanID         string
}

type Page struct {
	Items      []models.Donation `json:"items"`
	TotalCount int64             `json:"totalCount"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// Create validates and inserts a new pending donation. Donations are never
// inserted as completed: completion only happens through UpdateStatus after
// the payment signature was verified.
func (s *DonationStore) Create(ctx context.Context, d *models.Donation) error {
	d.DonorName = strings.TrimSpace(d.DonorName)
	d.DonorEmail = strings.TrimSpace(d.DonorEmail)

	var missing []string
	if d.DonorName == "" {
		missing = append(missing, "donorName")
	}
	if d.DonorEmail == "" {
		missing = append(missing, "donorEmail")
	}
	if !utils.IsPositive(d.Amount) {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return errors.Validation(missing)
	}

	if d.Status != "" && d.Status != models.DonationStatusPending {
		return errors.New(errors.KindValidation, "New donations must start as pending")
	}
	if d.PaymentID != nil {
		return errors.New(errors.KindValidation, "paymentId is assigned when the payment is verified")
	}
	if d.PaymentType == "" {
		d.PaymentType = models.PaymentTypeOneTime
	}
	if !d.PaymentType.Valid() {
		return errors.Newf(errors.KindValidation, "Invalid payment type '%s'", d.PaymentType)
	}

	d.Status = models.DonationStatusPending
	if d.Currency == "" {
		d.Currency = "INR"
	}
	d.Currency = strings.ToUpper(d.Currency)
	if d.PaymentMethod == "" {
		d.PaymentMethod = "razorpay"
	}
	d.Amount = d.Amount.Round(2)

	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("failed to create donation: %w", err)
	}
	slog.Info("[DonationStore] Created donation", "id", d.ID, "amount", d.Amount.String(), "type", d.PaymentType)
	return nil
}

func (s *DonationStore) Get(ctx context.Context, id uint) (*models.Donation, error) {
	var d models.Donation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *DonationStore) FindByOrderID(ctx context.Context, orderID string) (*models.Donation, error) {
	return s.findBy(ctx, "order_id = ?", orderID)
}

func (s *DonationStore) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Donation, error) {
	return s.findBy(ctx, "subscription_id = ?", subscriptionID)
}

func (s *DonationStore) findBy(ctx context.Context, query string, value string) (*models.Donation, error) {
	if value == "" {
		return nil, errors.ErrNotFound
	}
	var d models.Donation
	err := s.db.WithContext(ctx).Where(query, value).Order("id desc").First(&d).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// AttachIntent records gateway ids on a pending donation.
func (s *DonationStore) AttachIntent(ctx context.Context, id uint, intent Intent) error {
	updates := map[string]interface{}{"updated_at": s.now()}
	if intent.OrderID != "" {
		updates["order_id"] = intent.OrderID
	}
	if intent.SubscriptionID != "" {
		updates["subscription_id"] = intent.SubscriptionID
	}
	if intent.PlanID != "" {
		updates["plan_id"] = intent.PlanID
	}

	res := s.db.WithContext(ctx).Model(&models.Donation{}).
		Where("id = ? AND status = ?", id, models.DonationStatusPending).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to attach payment intent: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		d, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		return errors.InvalidTransition(string(d.Status), string(models.DonationStatusPending))
	}
	return nil
}

// UpdateStatus moves a donation from pending to completed or failed. A
// donation in a terminal state is never changed again, so replayed callbacks
// are rejected with InvalidTransition.
func (s *DonationStore) UpdateStatus(ctx context.Context, id uint, upd StatusUpdate) (*models.Donation, error) {
	if !upd.Status.IsTerminal() {
		return nil, errors.InvalidTransition(string(models.DonationStatusPending), string(upd.Status))
	}

	var updated models.Donation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Donation
		if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrNotFound
			}
			return err
		}
		if current.Status.IsTerminal() {
			return errors.InvalidTransition(string(current.Status), string(upd.Status))
		}

		now := s.now()
		updates := map[string]interface{}{
			"status":     upd.Status,
			"updated_at": now,
		}

		if upd.PaymentID != "" {
			if current.PaymentID != nil && *current.PaymentID != upd.PaymentID {
				return errors.Newf(errors.KindInvalidTransition, "Donation is already linked to payment %s", *current.PaymentID)
			}
			var taken int64
			if err := tx.Model(&models.Donation{}).
				Where("payment_id = ? AND id <> ?", upd.PaymentID, id).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return errors.Newf(errors.KindInvalidTransition, "Payment %s is already recorded", upd.PaymentID)
			}
			updates["payment_id"] = upd.PaymentID
		}
		if upd.SubscriptionID != "" {
			if current.SubscriptionID != "" && current.SubscriptionID != upd.SubscriptionID {
				return errors.Newf(errors.KindInvalidTransition, "Donation is already linked to subscription %s", current.SubscriptionID)
			}
			updates["subscription_id"] = upd.SubscriptionID
		}
		switch upd.Status {
		case models.DonationStatusCompleted:
			updates["completed_at"] = now
			updates["failure_reason"] = ""
		case models.DonationStatusFailed:
			updates["failure_reason"] = upd.FailureReason
		}

		// the status guard makes concurrent duplicate callbacks succeed once
		res := tx.Model(&models.Donation{}).
			Where("id = ? AND status = ?", id, models.DonationStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.InvalidTransition(string(models.DonationStatusPending), string(upd.Status))
		}

		return tx.Where("id = ?", id).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}

	slog.Info("[DonationStore] Updated donation status", "id", id, "status", updated.Status, "payment_id", updated.PaymentIDValue())
	return &updated, nil
}

// List returns donations newest first. page is 1-indexed.
func (s *DonationStore) List(ctx context.Context, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	result := &Page{Items: []models.Donation{}, Page: page, PageSize: pageSize}
	tx := s.db.WithContext(ctx).Model(&models.Donation{})
	if err := tx.Session(&gorm.Session{}).Count(&result.TotalCount).Error; err != nil {
		return nil, err
	}
	err := tx.Session(&gorm.Session{}).Order("created_at desc").Order("id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&result.Items).Error
	if err != nil {
		return nil, err
	}
	result.TotalPages = int((result.TotalCount + int64(pageSize) - 1) / int64(pageSize))
	return result, nil
}

// ExpireStale fails pending donations created before cutoff, i.e. checkouts
// the donor abandoned.
func (s *DonationStore) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Donation{}).
		Where("status = ? AND created_at < ?", models.DonationStatusPending, cutoff).
		Updates(map[string]interface{}{
			"status":         models.DonationStatusFailed,
			"failure_reason": models.FailureExpired,
			"updated_at":     s.now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire pending donations: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		slog.Info("[DonationStore] Expired abandoned donations", "count", res.RowsAffected, "cutoff", cutoff)
	}
	return res.RowsAffected, nil
}

// Each walks every donation oldest first in batches.
func (s *DonationStore) Each(ctx context.Context, fn func(*models.Donation) error) error {
	var batch []models.Donation
	return s.db.WithContext(ctx).Model(&models.Donation{}).Order("id asc").
		FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				if err := fn(&batch[i]); err != nil {
					return err
				}
			}
			return nil
		}).Error
}
