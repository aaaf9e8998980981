package sales

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/offerpay-backend/pkg/db"
	"github.com/angelmondragon/offerpay-backend/pkg/db/models"
	"github.com/angelmondragon/offerpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
)

// UniqueTransactionID is the index that makes settlement at-most-once.
const UniqueTransactionID = "ux_sales_transaction_id"

var (
	// ErrSaleNotFound is returned when no sale matches the transaction id.
	ErrSaleNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	// ErrDuplicateTransaction is returned by Create when the transaction id is
	// already recorded.
	ErrDuplicateTransaction = pkgerrors.New(pkgerrors.CodeConflict, "transaction already settled")
)

// Repository is the sale ledger. Sales are never deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Sale, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	Create(ctx context.Context, sale *models.Sale) error
	MarkRefunded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Sale, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, ErrSaleNotFound
	}
	var sale models.Sale
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return &sale, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return &sale, nil
}

// Create inserts the sale. A second row for the same transaction id fails with
// ErrDuplicateTransaction wrapping the driver error.
func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	if sale == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "sale is required")
	}
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, UniqueTransactionID) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, ErrDuplicateTransaction.Message())
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert sale")
	}
	return nil
}

// MarkRefunded moves a succeeded sale to refunded. It reports false when the
// row was not in the succeeded state.
func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND status = ?", id, enums.SaleStatusSucceeded).
		Updates(map[string]any{
			"status":      enums.SaleStatusRefunded,
			"refunded_at": at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark sale refunded")
	}
	return res.RowsAffected == 1, nil
}
