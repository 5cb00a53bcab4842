package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"rfqmarket/internal/lifecycle"
	"rfqmarket/models"
)

const insertRequest = `
    INSERT INTO manufacturer_requests (
        id, rfq_id, manufacturer_id, status, message, proposed_lead_time,
        technology_match, material_match, match_score)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    RETURNING requested_at`

// CreateManufacturerRequest records a bid and moves an open RFQ to
// REQUESTS_PENDING in the same transaction. The RFQ row is locked so a
// concurrent selection cannot slip in between the check and the insert.
func (s *Storage) CreateManufacturerRequest(ctx context.Context, m *models.ManufacturerRequest) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.Status = models.RequestPending

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		rfq, err := getRFQForUpdate(ctx, tx, m.RFQID)
		if err != nil {
			return err
		}
		if !lifecycle.AcceptingRequests(rfq.Status) {
			return fmt.Errorf("%w: rfq is not accepting requests", ErrStateChanged)
		}
		if err := insertManufacturerRequest(ctx, tx, m); err != nil {
			return err
		}
		return markRequestsPending(ctx, tx, m.RFQID)
	})
}

func insertManufacturerRequest(ctx context.Context, tx *sqlx.Tx, m *models.ManufacturerRequest) error {
	err := tx.QueryRowxContext(ctx, insertRequest,
		m.ID, m.RFQID, m.ManufacturerID, m.Status, m.Message, m.ProposedLeadTime,
		m.TechnologyMatch, m.MaterialMatch, m.MatchScore).
		Scan(&m.RequestedAt)
	return wrap(err, "create manufacturer request")
}

func (s *Storage) GetManufacturerRequest(ctx context.Context, id uuid.UUID) (*models.ManufacturerRequest, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	m := &models.ManufacturerRequest{}
	if err := s.db.GetContext(ctx, m, `SELECT * FROM manufacturer_requests WHERE id=$1`, id); err != nil {
		return nil, wrap(err, "get manufacturer request")
	}
	return m, nil
}

// ListRequestsForRFQ returns every bid on an RFQ, newest first.
func (s *Storage) ListRequestsForRFQ(ctx context.Context, rfqID uuid.UUID) ([]models.ManufacturerRequest, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	out := []models.ManufacturerRequest{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM manufacturer_requests WHERE rfq_id=$1 ORDER BY requested_at DESC`, rfqID)
	if err != nil {
		return nil, wrap(err, "list manufacturer requests")
	}
	return out, nil
}

// AcceptManufacturerRequest selects the winning bid. The RFQ moves to
// SUPPLIER_SELECTED only if it is still REQUESTS_PENDING, the chosen request
// only if it is still PENDING, and every other pending bid on the RFQ is
// rejected, all in one transaction. A concurrent accept on the same RFQ
// matches zero rows and gets ErrStateChanged.
func (s *Storage) AcceptManufacturerRequest(ctx context.Context, rfqID, requestID uuid.UUID) (*models.RFQ, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	rfq := &models.RFQ{}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		// lock the rfq first so competing accepts queue on the same row
		locked, err := getRFQForUpdate(ctx, tx, rfqID)
		if err != nil {
			return err
		}
		if locked.Status != models.StatusRequestsPending {
			return fmt.Errorf("%w: rfq is %s", ErrStateChanged, locked.Status)
		}

		var manufacturerID uuid.UUID
		err = tx.GetContext(ctx, &manufacturerID, `
            UPDATE manufacturer_requests
            SET status=$1, responded_at=NOW()
            WHERE id=$2 AND rfq_id=$3 AND status=$4
            RETURNING manufacturer_id`,
			models.RequestAccepted, requestID, rfqID, models.RequestPending)
		if err != nil {
			err = wrap(err, "accept manufacturer request")
			if isNotFound(err) {
				return fmt.Errorf("%w: request is not pending", ErrStateChanged)
			}
			return err
		}

		err = tx.GetContext(ctx, rfq, `
            UPDATE rfqs
            SET status=$1, selected_manufacturer_id=$2, selected_manufacturer_request_id=$3, updated_at=NOW()
            WHERE id=$4 AND status=$5
            RETURNING *`,
			models.StatusSupplierSelected, manufacturerID, requestID, rfqID, models.StatusRequestsPending)
		if err != nil {
			err = wrap(err, "select supplier")
			if isNotFound(err) {
				return fmt.Errorf("%w: rfq is no longer awaiting selection", ErrStateChanged)
			}
			return err
		}

		_, err = tx.ExecContext(ctx, `
            UPDATE manufacturer_requests
            SET status=$1, responded_at=NOW()
            WHERE rfq_id=$2 AND id<>$3 AND status=$4`,
			models.RequestRejected, rfqID, requestID, models.RequestPending)
		return wrap(err, "reject competing requests")
	})
	if err != nil {
		return nil, err
	}
	return rfq, nil
}

// RejectManufacturerRequest declines one pending bid.
func (s *Storage) RejectManufacturerRequest(ctx context.Context, rfqID, requestID uuid.UUID, reason string) (*models.ManufacturerRequest, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	m := &models.ManufacturerRequest{}
	err := s.db.GetContext(ctx, m, `
        UPDATE manufacturer_requests
        SET status=$1, responded_at=NOW(), rejection_reason=$2
        WHERE id=$3 AND rfq_id=$4 AND status=$5
        RETURNING *`,
		models.RequestRejected, reason, requestID, rfqID, models.RequestPending)
	if err != nil {
		err = wrap(err, "reject manufacturer request")
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: request is not pending", ErrStateChanged)
		}
		return nil, err
	}
	return m, nil
}
