package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/offerpay-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
)

// ErrOfferNotFound is returned when no offer matches the slug.
var ErrOfferNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")

// Repository reads offers for settlement. It never writes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBySlug(ctx context.Context, slug string) (*models.Offer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindBySlug loads the offer and fills missing ad-conversion credentials from
// the seller's integration row.
func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Offer, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrOfferNotFound
	}

	var offer models.Offer
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&offer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}

	seller, err := r.findSellerIntegration(ctx, offer.SellerID)
	if err != nil {
		return nil, err
	}
	MergeSellerCredentials(&offer, seller)
	return &offer, nil
}

func (r *repository) findSellerIntegration(ctx context.Context, sellerID uuid.UUID) (*models.SellerIntegration, error) {
	var row models.SellerIntegration
	err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller integrations")
	}
	return &row, nil
}

// MergeSellerCredentials copies seller-level pixel id and token into empty
// offer fields. Offer values always win.
func MergeSellerCredentials(offer *models.Offer, seller *models.SellerIntegration) {
	if offer == nil || seller == nil {
		return
	}
	ad := &offer.Integrations.AdConversion
	if strings.TrimSpace(ad.PixelID) == "" && seller.AdPixelID != nil {
		ad.PixelID = strings.TrimSpace(*seller.AdPixelID)
	}
	if strings.TrimSpace(ad.AccessToken) == "" && seller.AdAccessToken != nil {
		ad.AccessToken = strings.TrimSpace(*seller.AdAccessToken)
	}
}
