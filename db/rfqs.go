package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"rfqmarket/internal/search"
	"rfqmarket/models"
)

var editableStatuses = pq.StringArray{
	string(models.StatusDraft),
	string(models.StatusOpenForRequests),
	string(models.StatusRequestsPending),
}

func (s *Storage) CreateRFQ(ctx context.Context, r *models.RFQ) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.ProductionStatus == "" {
		r.ProductionStatus = models.ProductionNotStarted
	}
	query := `
        INSERT INTO rfqs (
            id, title, description, buyer_id, status, workpieces,
            preferred_currency, rfq_deadline, acceptance_deadline, target_delivery_date,
            part_tracking_id, request_justification, shipping_terms, country, region,
            communication_language, required_certificates, notes, nda_file,
            production_status, tracking_info, shipping_docs)
        VALUES (
            :id, :title, :description, :buyer_id, :status, :workpieces,
            :preferred_currency, :rfq_deadline, :acceptance_deadline, :target_delivery_date,
            :part_tracking_id, :request_justification, :shipping_terms, :country, :region,
            :communication_language, :required_certificates, :notes, :nda_file,
            :production_status, :tracking_info, :shipping_docs)
        RETURNING created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, r)
	if err != nil {
		return wrap(err, "create rfq")
	}
	defer rows.Close()
	if rows.Next() {
		return wrap(rows.Scan(&r.CreatedAt, &r.UpdatedAt), "create rfq")
	}
	return wrap(rows.Err(), "create rfq")
}

func (s *Storage) GetRFQ(ctx context.Context, id uuid.UUID) (*models.RFQ, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	r := &models.RFQ{}
	if err := s.db.GetContext(ctx, r, `SELECT * FROM rfqs WHERE id=$1`, id); err != nil {
		return nil, wrap(err, "get rfq")
	}
	return r, nil
}

// UpdateRFQ replaces buyer-controlled content while the RFQ is still editable.
// Status and fulfilment fields are not touched.
func (s *Storage) UpdateRFQ(ctx context.Context, r *models.RFQ) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	query := `
        UPDATE rfqs SET
            title=$1, description=$2, workpieces=$3, preferred_currency=$4, rfq_deadline=$5,
            acceptance_deadline=$6, target_delivery_date=$7, part_tracking_id=$8,
            request_justification=$9, shipping_terms=$10, country=$11, region=$12,
            communication_language=$13, required_certificates=$14, notes=$15, nda_file=$16,
            updated_at=NOW()
        WHERE id=$17 AND status = ANY($18)
        RETURNING *`
	err := s.db.GetContext(ctx, r, query,
		r.Title, r.Description, r.Workpieces, r.PreferredCurrency, r.RFQDeadline,
		r.AcceptanceDeadline, r.TargetDeliveryDate, r.PartTrackingID,
		r.RequestJustification, r.ShippingTerms, r.Country, r.Region,
		r.CommunicationLanguage, r.RequiredCertificates, r.Notes, r.NDAFile,
		r.ID, editableStatuses)
	if err != nil {
		err = wrap(err, "update rfq")
		if isNotFound(err) {
			return fmt.Errorf("%w: rfq is no longer editable", ErrStateChanged)
		}
		return err
	}
	return nil
}

// DeleteRFQ removes a draft. Any other status leaves the row untouched.
func (s *Storage) DeleteRFQ(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM rfqs WHERE id=$1 AND status=$2`, id, models.StatusDraft)
	if err != nil {
		return wrap(err, "delete rfq")
	}
	return mustAffect(res, "only drafts can be deleted")
}

// ListRFQs returns one page of RFQs matching f, newest first, and the total count.
func (s *Storage) ListRFQs(ctx context.Context, f search.RFQFilter, p search.Page) ([]models.RFQ, int, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var w search.Where
	f.Apply(&w)

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM rfqs `+w.SQL(), w.Args()...); err != nil {
		return nil, 0, wrap(err, "count rfqs")
	}

	limit := w.Arg(p.Limit)
	offset := w.Arg(p.Offset())
	query := fmt.Sprintf(`SELECT * FROM rfqs %s %s LIMIT %s OFFSET %s`, w.SQL(), f.OrderBy(), limit, offset)

	rfqs := []models.RFQ{}
	if err := s.db.SelectContext(ctx, &rfqs, query, w.Args()...); err != nil {
		return nil, 0, wrap(err, "list rfqs")
	}
	return rfqs, total, nil
}

// StatusChange is a compare-and-set on an RFQ's status plus optional
// fulfilment fields. A nil To keeps the status.
type StatusChange struct {
	From             models.RFQStatus
	To               *models.RFQStatus
	ProductionStatus *models.ProductionStatus
	TrackingInfo     *models.TrackingInfo
	ShippingDocs     *models.ShippingDocs
}

// TransitionRFQ applies c only if the RFQ is still in c.From.
func (s *Storage) TransitionRFQ(ctx context.Context, id uuid.UUID, c StatusChange) (*models.RFQ, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var to, production interface{}
	if c.To != nil {
		to = string(*c.To)
	}
	if c.ProductionStatus != nil {
		production = string(*c.ProductionStatus)
	}
	var tracking, docs interface{}
	if c.TrackingInfo != nil {
		v, err := c.TrackingInfo.Value()
		if err != nil {
			return nil, err
		}
		tracking = v
	}
	if c.ShippingDocs != nil {
		v, err := c.ShippingDocs.Value()
		if err != nil {
			return nil, err
		}
		docs = v
	}

	query := `
        UPDATE rfqs SET
            status = COALESCE($1, status),
            production_status = COALESCE($2, production_status),
            tracking_info = COALESCE($3::jsonb, tracking_info),
            shipping_docs = COALESCE($4::jsonb, shipping_docs),
            closed_at = CASE WHEN $1 = 'CLOSED' THEN NOW() ELSE closed_at END,
            updated_at = NOW()
        WHERE id = $5 AND status = $6
        RETURNING *`
	r := &models.RFQ{}
	err := s.db.GetContext(ctx, r, query, to, production, tracking, docs, id, c.From)
	if err != nil {
		err = wrap(err, "transition rfq")
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: rfq left %s", ErrStateChanged, c.From)
		}
		return nil, err
	}
	return r, nil
}

func getRFQForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.RFQ, error) {
	r := &models.RFQ{}
	if err := tx.GetContext(ctx, r, `SELECT * FROM rfqs WHERE id=$1 FOR UPDATE`, id); err != nil {
		return nil, wrap(err, "lock rfq")
	}
	return r, nil
}

// markRequestsPending moves an open RFQ to REQUESTS_PENDING; a no-op otherwise.
func markRequestsPending(ctx context.Context, tx *sqlx.Tx, rfqID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE rfqs SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`,
		models.StatusRequestsPending, rfqID, models.StatusOpenForRequests)
	return wrap(err, "mark requests pending")
}
