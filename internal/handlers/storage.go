package handlers

import (
	"context"

	"github.com/google/uuid"

	"rfqmarket/db"
	"rfqmarket/internal/objectstore"
	"rfqmarket/internal/search"
	"rfqmarket/models"
)

type StorageInterface interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpsertUser(ctx context.Context, u *models.User) error
	SearchManufacturers(ctx context.Context, f search.ManufacturerFilter, p search.Page) ([]models.User, int, error)

	CreateRFQ(ctx context.Context, r *models.RFQ) error
	GetRFQ(ctx context.Context, id uuid.UUID) (*models.RFQ, error)
	UpdateRFQ(ctx context.Context, r *models.RFQ) error
	DeleteRFQ(ctx context.Context, id uuid.UUID) error
	ListRFQs(ctx context.Context, f search.RFQFilter, p search.Page) ([]models.RFQ, int, error)
	TransitionRFQ(ctx context.Context, id uuid.UUID, c db.StatusChange) (*models.RFQ, error)

	CreateManufacturerRequest(ctx context.Context, m *models.ManufacturerRequest) error
	GetManufacturerRequest(ctx context.Context, id uuid.UUID) (*models.ManufacturerRequest, error)
	ListRequestsForRFQ(ctx context.Context, rfqID uuid.UUID) ([]models.ManufacturerRequest, error)
	AcceptManufacturerRequest(ctx context.Context, rfqID, requestID uuid.UUID) (*models.RFQ, error)
	RejectManufacturerRequest(ctx context.Context, rfqID, requestID uuid.UUID, reason string) (*models.ManufacturerRequest, error)

	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitation(ctx context.Context, id uuid.UUID) (*models.Invitation, error)
	ListInvitationsForManufacturer(ctx context.Context, manufacturerID uuid.UUID) ([]models.Invitation, error)
	ListInvitationsForRFQ(ctx context.Context, rfqID uuid.UUID) ([]models.Invitation, error)
	AcceptInvitation(ctx context.Context, id uuid.UUID, req *models.ManufacturerRequest) (*models.Invitation, error)
	DeclineInvitation(ctx context.Context, id uuid.UUID, reason string) (*models.Invitation, error)

	CreateRating(ctx context.Context, r *models.Rating) (*models.RFQ, error)
	GetRatingByRFQ(ctx context.Context, rfqID uuid.UUID) (*models.Rating, error)
	ListRatingsForManufacturer(ctx context.Context, manufacturerID uuid.UUID) ([]models.Rating, error)
	RefreshManufacturerRating(ctx context.Context, manufacturerID uuid.UUID) (models.RatingSummary, error)
}

// FileStore is the object storage used for uploads and the model proxy.
type FileStore interface {
	Store(ctx context.Context, data []byte, category, filename string) (objectstore.Object, error)
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}
