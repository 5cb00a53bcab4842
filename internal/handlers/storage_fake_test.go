package handlers_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rfqmarket/db"
	"rfqmarket/internal/lifecycle"
	"rfqmarket/internal/search"
	"rfqmarket/models"
)

// MockStorage keeps entities in memory and mirrors the conditional updates of
// the Postgres storage closely enough for handler tests.
type MockStorage struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*models.User
	rfqs        map[uuid.UUID]*models.RFQ
	requests    map[uuid.UUID]*models.ManufacturerRequest
	invitations map[uuid.UUID]*models.Invitation
	ratings     map[uuid.UUID]*models.Rating

	PingErr       error
	ListRFQsFunc  func(ctx context.Context, f search.RFQFilter, p search.Page) ([]models.RFQ, int, error)
	lastRFQFilter search.RFQFilter
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		users:       map[uuid.UUID]*models.User{},
		rfqs:        map[uuid.UUID]*models.RFQ{},
		requests:    map[uuid.UUID]*models.ManufacturerRequest{},
		invitations: map[uuid.UUID]*models.Invitation{},
		ratings:     map[uuid.UUID]*models.Rating{},
	}
}

func notFound(what string) error { return fmt.Errorf("%s: %w", what, db.ErrNotFound) }

func (m *MockStorage) Ping(ctx context.Context) error { return m.PingErr }

func (m *MockStorage) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, notFound("get user")
	}
	cp := *u
	return &cp, nil
}

func (m *MockStorage) UpsertUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ManufacturerStatus == "" && u.Role.CanManufacture() {
		u.ManufacturerStatus = models.ManufacturerPendingReview
	}
	if old, ok := m.users[u.ID]; ok {
		u.RatingAverage, u.RatingCount = old.RatingAverage, old.RatingCount
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MockStorage) SearchManufacturers(ctx context.Context, f search.ManufacturerFilter, p search.Page) ([]models.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.Role.CanManufacture() && u.ManufacturerStatus == models.ManufacturerActive {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (m *MockStorage) CreateRFQ(ctx context.Context, r *models.RFQ) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.ProductionStatus == "" {
		r.ProductionStatus = models.ProductionNotStarted
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.rfqs[r.ID] = &cp
	return nil
}

func (m *MockStorage) GetRFQ(ctx context.Context, id uuid.UUID) (*models.RFQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rfqs[id]
	if !ok {
		return nil, notFound("get rfq")
	}
	cp := *r
	return &cp, nil
}

func (m *MockStorage) UpdateRFQ(ctx context.Context, r *models.RFQ) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rfqs[r.ID]
	if !ok || !lifecycle.Editable(cur.Status) {
		return fmt.Errorf("%w: rfq is no longer editable", db.ErrStateChanged)
	}
	r.Status = cur.Status
	cp := *r
	m.rfqs[r.ID] = &cp
	return nil
}

func (m *MockStorage) DeleteRFQ(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rfqs[id]
	if !ok || r.Status != models.StatusDraft {
		return fmt.Errorf("%w: only drafts can be deleted", db.ErrStateChanged)
	}
	delete(m.rfqs, id)
	return nil
}

func (m *MockStorage) requestedBy(rfqID, manufacturerID uuid.UUID) bool {
	for _, req := range m.requests {
		if req.RFQID == rfqID && req.ManufacturerID == manufacturerID {
			return true
		}
	}
	return false
}

func matchesStatus(statuses []string, s models.RFQStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, v := range statuses {
		if v == string(s) {
			return true
		}
	}
	return false
}

func (m *MockStorage) ListRFQs(ctx context.Context, f search.RFQFilter, p search.Page) ([]models.RFQ, int, error) {
	m.mu.Lock()
	m.lastRFQFilter = f
	m.mu.Unlock()
	if m.ListRFQsFunc != nil {
		return m.ListRFQsFunc(ctx, f, p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RFQ
	for _, r := range m.rfqs {
		if !matchesStatus(f.Statuses, r.Status) {
			continue
		}
		if f.BuyerID != uuid.Nil && r.BuyerID != f.BuyerID {
			continue
		}
		if f.ExcludeBuyer != uuid.Nil && r.BuyerID == f.ExcludeBuyer {
			continue
		}
		if f.ExcludeRequestedBy != uuid.Nil && m.requestedBy(r.ID, f.ExcludeRequestedBy) {
			continue
		}
		if f.SelectedManufacturer != uuid.Nil && !r.IsSelectedManufacturer(f.SelectedManufacturer) {
			continue
		}
		if f.InvolvedBuyer != uuid.Nil || f.InvolvedManufacturer != uuid.Nil {
			involved := (f.InvolvedBuyer != uuid.Nil && r.BuyerID == f.InvolvedBuyer) ||
				(f.InvolvedManufacturer != uuid.Nil &&
					(r.IsSelectedManufacturer(f.InvolvedManufacturer) || m.requestedBy(r.ID, f.InvolvedManufacturer)))
			if !involved {
				continue
			}
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (m *MockStorage) TransitionRFQ(ctx context.Context, id uuid.UUID, c db.StatusChange) (*models.RFQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rfqs[id]
	if !ok || r.Status != c.From {
		return nil, fmt.Errorf("%w: rfq left %s", db.ErrStateChanged, c.From)
	}
	if c.To != nil {
		r.Status = *c.To
		if r.Status == models.StatusClosed {
			now := time.Now()
			r.ClosedAt = &now
		}
	}
	if c.ProductionStatus != nil {
		r.ProductionStatus = *c.ProductionStatus
	}
	if c.TrackingInfo != nil {
		r.TrackingInfo = *c.TrackingInfo
	}
	if c.ShippingDocs != nil {
		r.ShippingDocs = *c.ShippingDocs
	}
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func (m *MockStorage) insertRequest(req *models.ManufacturerRequest) error {
	if m.requestedBy(req.RFQID, req.ManufacturerID) {
		return fmt.Errorf("create manufacturer request: %w", db.ErrDuplicate)
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.Status = models.RequestPending
	req.RequestedAt = time.Now()
	cp := *req
	m.requests[req.ID] = &cp
	if r := m.rfqs[req.RFQID]; r.Status == models.StatusOpenForRequests {
		r.Status = models.StatusRequestsPending
	}
	return nil
}

func (m *MockStorage) CreateManufacturerRequest(ctx context.Context, req *models.ManufacturerRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rfqs[req.RFQID]
	if !ok {
		return notFound("lock rfq")
	}
	if !lifecycle.AcceptingRequests(r.Status) {
		return fmt.Errorf("%w: rfq is not accepting requests", db.ErrStateChanged)
	}
	return m.insertRequest(req)
}

func (m *MockStorage) GetManufacturerRequest(ctx context.Context, id uuid.UUID) (*models.ManufacturerRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, notFound("get manufacturer request")
	}
	cp := *req
	return &cp, nil
}

func (m *MockStorage) ListRequestsForRFQ(ctx context.Context, rfqID uuid.UUID) ([]models.ManufacturerRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ManufacturerRequest{}
	for _, req := range m.requests {
		if req.RFQID == rfqID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (m *MockStorage) AcceptManufacturerRequest(ctx context.Context, rfqID, requestID uuid.UUID) (*models.RFQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rfqs[rfqID]
	if !ok {
		return nil, notFound("lock rfq")
	}
	if r.Status != models.StatusRequestsPending {
		return nil, fmt.Errorf("%w: rfq is %s", db.ErrStateChanged, r.Status)
	}
	req, ok := m.requests[requestID]
	if !ok || req.RFQID != rfqID || req.Status != models.RequestPending {
		return nil, fmt.Errorf("%w: request is not pending", db.ErrStateChanged)
	}
	now := time.Now()
	req.Status = models.RequestAccepted
	req.RespondedAt = &now
	for _, other := range m.requests {
		if other.RFQID == rfqID && other.ID != requestID && other.Status == models.RequestPending {
			other.Status = models.RequestRejected
			other.RespondedAt = &now
		}
	}
	r.Status = models.StatusSupplierSelected
	r.SelectedManufacturerID = uuid.NullUUID{UUID: req.ManufacturerID, Valid: true}
	r.SelectedManufacturerRequestID = uuid.NullUUID{UUID: req.ID, Valid: true}
	cp := *r
	return &cp, nil
}

func (m *MockStorage) RejectManufacturerRequest(ctx context.Context, rfqID, requestID uuid.UUID, reason string) (*models.ManufacturerRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok || req.RFQID != rfqID || req.Status != models.RequestPending {
		return nil, fmt.Errorf("%w: request is not pending", db.ErrStateChanged)
	}
	now := time.Now()
	req.Status = models.RequestRejected
	req.RejectionReason = reason
	req.RespondedAt = &now
	cp := *req
	return &cp, nil
}

func (m *MockStorage) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.invitations {
		if other.RFQID == inv.RFQID && other.ManufacturerID == inv.ManufacturerID {
			return fmt.Errorf("create invitation: %w", db.ErrDuplicate)
		}
	}
	inv.ID = uuid.New()
	inv.Status = models.InvitationPending
	inv.InvitedAt = time.Now()
	cp := *inv
	m.invitations[inv.ID] = &cp
	return nil
}

func (m *MockStorage) GetInvitation(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok {
		return nil, notFound("get invitation")
	}
	cp := *inv
	return &cp, nil
}

func (m *MockStorage) listInvitations(match func(*models.Invitation) bool) []models.Invitation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Invitation{}
	for _, inv := range m.invitations {
		if match(inv) {
			out = append(out, *inv)
		}
	}
	return out
}

func (m *MockStorage) ListInvitationsForManufacturer(ctx context.Context, manufacturerID uuid.UUID) ([]models.Invitation, error) {
	return m.listInvitations(func(inv *models.Invitation) bool { return inv.ManufacturerID == manufacturerID }), nil
}

func (m *MockStorage) ListInvitationsForRFQ(ctx context.Context, rfqID uuid.UUID) ([]models.Invitation, error) {
	return m.listInvitations(func(inv *models.Invitation) bool { return inv.RFQID == rfqID }), nil
}

func (m *MockStorage) AcceptInvitation(ctx context.Context, id uuid.UUID, req *models.ManufacturerRequest) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok {
		return nil, notFound("lock invitation")
	}
	if inv.Status != models.InvitationPending {
		return nil, fmt.Errorf("%w: invitation already %s", db.ErrStateChanged, inv.Status)
	}
	if r := m.rfqs[inv.RFQID]; !lifecycle.AcceptingRequests(r.Status) {
		return nil, fmt.Errorf("%w: rfq is not accepting requests", db.ErrStateChanged)
	}
	existing := false
	for _, other := range m.requests {
		if other.RFQID == inv.RFQID && other.ManufacturerID == inv.ManufacturerID {
			*req = *other
			existing = true
		}
	}
	if !existing {
		req.RFQID, req.ManufacturerID = inv.RFQID, inv.ManufacturerID
		if err := m.insertRequest(req); err != nil {
			return nil, err
		}
	}
	now := time.Now()
	inv.Status = models.InvitationAccepted
	inv.RespondedAt = &now
	cp := *inv
	return &cp, nil
}

func (m *MockStorage) DeclineInvitation(ctx context.Context, id uuid.UUID, reason string) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok || inv.Status != models.InvitationPending {
		return nil, fmt.Errorf("%w: invitation is not pending", db.ErrStateChanged)
	}
	now := time.Now()
	inv.Status = models.InvitationDeclined
	inv.DeclineReason = reason
	inv.RespondedAt = &now
	cp := *inv
	return &cp, nil
}

func (m *MockStorage) CreateRating(ctx context.Context, rt *models.Rating) (*models.RFQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.ratings {
		if other.RFQID == rt.RFQID {
			return nil, fmt.Errorf("create rating: %w", db.ErrDuplicate)
		}
	}
	r, ok := m.rfqs[rt.RFQID]
	if !ok || r.Status != models.StatusDelivered {
		return nil, fmt.Errorf("%w: only delivered rfqs can be rated", db.ErrStateChanged)
	}
	rt.ID = uuid.New()
	rt.CreatedAt = time.Now()
	cp := *rt
	m.ratings[rt.ID] = &cp
	now := time.Now()
	r.Status = models.StatusClosed
	r.ClosedAt = &now
	out := *r
	return &out, nil
}

func (m *MockStorage) GetRatingByRFQ(ctx context.Context, rfqID uuid.UUID) (*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.ratings {
		if rt.RFQID == rfqID {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, notFound("get rating")
}

func (m *MockStorage) ListRatingsForManufacturer(ctx context.Context, manufacturerID uuid.UUID) ([]models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Rating{}
	for _, rt := range m.ratings {
		if rt.ManufacturerID == manufacturerID {
			out = append(out, *rt)
		}
	}
	return out, nil
}

func (m *MockStorage) RefreshManufacturerRating(ctx context.Context, manufacturerID uuid.UUID) (models.RatingSummary, error) {
	ratings, _ := m.ListRatingsForManufacturer(ctx, manufacturerID)
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := models.RatingSummary{ManufacturerID: manufacturerID, Total: len(ratings)}
	for _, rt := range ratings {
		sum.Average += float64(rt.Rating)
	}
	if sum.Total > 0 {
		sum.Average /= float64(sum.Total)
	}
	if u, ok := m.users[manufacturerID]; ok {
		u.RatingAverage, u.RatingCount = sum.Average, sum.Total
	}
	return sum, nil
}

// seedRFQ stores an RFQ directly in the given status.
func (m *MockStorage) seedRFQ(buyer uuid.UUID, status models.RFQStatus) *models.RFQ {
	r := &models.RFQ{
		ID:      uuid.New(),
		Title:   "Bracket",
		BuyerID: buyer,
		Status:  status,
		Workpieces: models.Workpieces{{
			MainFile:   "stl-files/bracket.stl",
			Technology: models.TechCNC,
			Material:   "Aluminum",
			Quantity:   10,
			Dimensions: models.Dimensions{Length: 100, Width: 50, Height: 20},
		}},
	}
	r.Country = "India"
	r.RFQDeadline = time.Now().Add(72 * time.Hour)
	r.Requirements.ApplyDefaults()
	_ = m.CreateRFQ(context.Background(), r)
	return r
}
