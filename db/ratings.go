package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"rfqmarket/models"
)

// CreateRating stores the buyer's rating and closes the delivered RFQ in one
// transaction. A second rating for the same RFQ fails with ErrDuplicate.
func (s *Storage) CreateRating(ctx context.Context, r *models.Rating) (*models.RFQ, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	rfq := &models.RFQ{}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
            INSERT INTO ratings (id, rfq_id, buyer_id, manufacturer_id, rating, comment, categories)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING created_at`,
			r.ID, r.RFQID, r.BuyerID, r.ManufacturerID, r.Rating, r.Comment, r.Categories).
			Scan(&r.CreatedAt)
		if err != nil {
			return wrap(err, "create rating")
		}

		err = tx.GetContext(ctx, rfq, `
            UPDATE rfqs SET status=$1, closed_at=NOW(), updated_at=NOW()
            WHERE id=$2 AND status=$3
            RETURNING *`,
			models.StatusClosed, r.RFQID, models.StatusDelivered)
		if err != nil {
			err = wrap(err, "close rfq")
			if isNotFound(err) {
				return fmt.Errorf("%w: only delivered rfqs can be rated", ErrStateChanged)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rfq, nil
}

func (s *Storage) GetRatingByRFQ(ctx context.Context, rfqID uuid.UUID) (*models.Rating, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	r := &models.Rating{}
	if err := s.db.GetContext(ctx, r, `SELECT * FROM ratings WHERE rfq_id=$1`, rfqID); err != nil {
		return nil, wrap(err, "get rating")
	}
	return r, nil
}

func (s *Storage) ListRatingsForManufacturer(ctx context.Context, manufacturerID uuid.UUID) ([]models.Rating, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	out := []models.Rating{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM ratings WHERE manufacturer_id=$1 ORDER BY created_at DESC`, manufacturerID)
	return out, wrap(err, "list ratings")
}

// RefreshManufacturerRating recomputes the aggregate kept on the user row.
func (s *Storage) RefreshManufacturerRating(ctx context.Context, manufacturerID uuid.UUID) (models.RatingSummary, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	sum := models.RatingSummary{ManufacturerID: manufacturerID}
	err := s.db.QueryRowxContext(ctx, `
        UPDATE users u SET
            rating_average = agg.avg,
            rating_count = agg.cnt,
            updated_at = NOW()
        FROM (
            SELECT COALESCE(AVG(rating), 0)::float8 AS avg, COUNT(*) AS cnt
            FROM ratings WHERE manufacturer_id=$1
        ) agg
        WHERE u.id=$1
        RETURNING u.rating_average, u.rating_count`, manufacturerID).
		Scan(&sum.Average, &sum.Total)
	if err != nil {
		return sum, wrap(err, "refresh manufacturer rating")
	}
	return sum, nil
}
