package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"rfqmarket/internal/lifecycle"
	"rfqmarket/models"
)

func (s *Storage) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.Status = models.InvitationPending
	err := s.db.QueryRowxContext(ctx, `
        INSERT INTO invitations (id, rfq_id, buyer_id, manufacturer_id, status, message)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING invited_at`,
		inv.ID, inv.RFQID, inv.BuyerID, inv.ManufacturerID, inv.Status, inv.Message).
		Scan(&inv.InvitedAt)
	return wrap(err, "create invitation")
}

func (s *Storage) GetInvitation(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	inv := &models.Invitation{}
	if err := s.db.GetContext(ctx, inv, `SELECT * FROM invitations WHERE id=$1`, id); err != nil {
		return nil, wrap(err, "get invitation")
	}
	return inv, nil
}

// ListInvitationsForManufacturer returns a manufacturer's inbox, newest first.
func (s *Storage) ListInvitationsForManufacturer(ctx context.Context, manufacturerID uuid.UUID) ([]models.Invitation, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	out := []models.Invitation{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM invitations WHERE manufacturer_id=$1 ORDER BY invited_at DESC`, manufacturerID)
	return out, wrap(err, "list invitations")
}

func (s *Storage) ListInvitationsForRFQ(ctx context.Context, rfqID uuid.UUID) ([]models.Invitation, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	out := []models.Invitation{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM invitations WHERE rfq_id=$1 ORDER BY invited_at DESC`, rfqID)
	return out, wrap(err, "list rfq invitations")
}

// AcceptInvitation marks a pending invitation accepted and turns it into a
// manufacturer request. An existing request by the same manufacturer is
// reused instead of duplicated. req carries the message, lead time and score
// for a new request and is filled with the stored one.
func (s *Storage) AcceptInvitation(ctx context.Context, id uuid.UUID, req *models.ManufacturerRequest) (*models.Invitation, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	inv := &models.Invitation{}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, inv, `SELECT * FROM invitations WHERE id=$1 FOR UPDATE`, id); err != nil {
			return wrap(err, "lock invitation")
		}
		if inv.Status != models.InvitationPending {
			return fmt.Errorf("%w: invitation already %s", ErrStateChanged, inv.Status)
		}
		rfq, err := getRFQForUpdate(ctx, tx, inv.RFQID)
		if err != nil {
			return err
		}
		if !lifecycle.AcceptingRequests(rfq.Status) {
			return fmt.Errorf("%w: rfq is not accepting requests", ErrStateChanged)
		}

		err = tx.GetContext(ctx, req,
			`SELECT * FROM manufacturer_requests WHERE rfq_id=$1 AND manufacturer_id=$2`,
			inv.RFQID, inv.ManufacturerID)
		switch err = wrap(err, "find existing request"); {
		case isNotFound(err):
			req.ID = uuid.New()
			req.RFQID = inv.RFQID
			req.ManufacturerID = inv.ManufacturerID
			req.Status = models.RequestPending
			if err := insertManufacturerRequest(ctx, tx, req); err != nil {
				return err
			}
		case err != nil:
			return err
		}

		if err := markRequestsPending(ctx, tx, inv.RFQID); err != nil {
			return err
		}
		err = tx.GetContext(ctx, inv, `
            UPDATE invitations SET status=$1, responded_at=NOW()
            WHERE id=$2
            RETURNING *`, models.InvitationAccepted, id)
		return wrap(err, "accept invitation")
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// DeclineInvitation closes a pending invitation with an optional reason.
func (s *Storage) DeclineInvitation(ctx context.Context, id uuid.UUID, reason string) (*models.Invitation, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	inv := &models.Invitation{}
	err := s.db.GetContext(ctx, inv, `
        UPDATE invitations SET status=$1, responded_at=NOW(), decline_reason=$2
        WHERE id=$3 AND status=$4
        RETURNING *`,
		models.InvitationDeclined, reason, id, models.InvitationPending)
	if err != nil {
		err = wrap(err, "decline invitation")
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: invitation is not pending", ErrStateChanged)
		}
		return nil, err
	}
	return inv, nil
}
