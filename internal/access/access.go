// Package access derives permissions from the references an entity holds.
package access

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"rfqmarket/internal/lifecycle"
	"rfqmarket/models"
)

var (
	ErrForbidden = errors.New("forbidden")
	ErrRole      = errors.New("role not permitted")
)

// Actor is the authenticated caller.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// Parties are the users an entity references.
type Parties struct {
	Buyer                uuid.UUID
	SelectedManufacturer uuid.UUID
	Requesters           []uuid.UUID
	Invitees             []uuid.UUID
	// Open is set while the RFQ is visible in the manufacturer pool.
	Open bool
}

type Resource interface {
	Parties() Parties
}

type Action string

const (
	ViewRFQ            Action = "rfq:view"
	CreateRFQ          Action = "rfq:create"
	EditRFQ            Action = "rfq:edit"
	DeleteRFQ          Action = "rfq:delete"
	ChangeStatus       Action = "rfq:status"
	BrowsePool         Action = "rfq:pool"
	RequestRFQ         Action = "request:create"
	DecideRequest      Action = "request:decide"
	Invite             Action = "invitation:create"
	RespondInvitation  Action = "invitation:respond"
	RateRFQ            Action = "rating:create"
	ViewRFQRating      Action = "rating:view"
	ViewRequestsForRFQ Action = "request:list"
)

// Relation tests one structural link between actor and entity.
type Relation func(a Actor, p Parties) bool

func BuyerOf(a Actor, p Parties) bool { return a.ID != uuid.Nil && a.ID == p.Buyer }

func SelectedManufacturerOf(a Actor, p Parties) bool {
	return a.ID != uuid.Nil && a.ID == p.SelectedManufacturer
}

func RequesterOf(a Actor, p Parties) bool { return contains(p.Requesters, a.ID) }

func InviteeOf(a Actor, p Parties) bool { return contains(p.Invitees, a.ID) }

func PartyOf(a Actor, p Parties) bool {
	return BuyerOf(a, p) || SelectedManufacturerOf(a, p) || RequesterOf(a, p) || InviteeOf(a, p)
}

// PoolViewer lets any manufacturer see an RFQ that is still taking requests.
func PoolViewer(a Actor, p Parties) bool { return p.Open && a.Role.CanManufacture() }

type rule struct {
	role      func(models.Role) bool
	relations []Relation
}

func canBuy(r models.Role) bool         { return r.CanBuy() }
func canManufacture(r models.Role) bool { return r.CanManufacture() }

var policy = map[Action]rule{
	ViewRFQ:            {relations: []Relation{PartyOf, PoolViewer}},
	CreateRFQ:          {role: canBuy},
	EditRFQ:            {relations: []Relation{BuyerOf}},
	DeleteRFQ:          {relations: []Relation{BuyerOf}},
	ChangeStatus:       {relations: []Relation{BuyerOf, SelectedManufacturerOf}},
	BrowsePool:         {role: canManufacture},
	RequestRFQ:         {role: canManufacture},
	DecideRequest:      {relations: []Relation{BuyerOf}},
	Invite:             {relations: []Relation{BuyerOf}},
	RespondInvitation:  {relations: []Relation{InviteeOf}},
	RateRFQ:            {relations: []Relation{BuyerOf}},
	ViewRFQRating:      {relations: []Relation{BuyerOf, SelectedManufacturerOf}},
	ViewRequestsForRFQ: {relations: []Relation{BuyerOf}},
}

// Authorize allows the action when the actor's role passes the gate and at
// least one of the action's relations holds. res may be nil for role-only actions.
func Authorize(a Actor, action Action, res Resource) error {
	r, ok := policy[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %s", ErrForbidden, action)
	}
	if r.role != nil && !r.role(a.Role) {
		return fmt.Errorf("%w: %s cannot %s", ErrRole, a.Role, action)
	}
	if len(r.relations) == 0 {
		return nil
	}
	if res == nil {
		return fmt.Errorf("%w: %s", ErrForbidden, action)
	}
	p := res.Parties()
	for _, rel := range r.relations {
		if rel(a, p) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrForbidden, action)
}

// LifecycleParty maps the actor onto the sides of the RFQ status graph.
func LifecycleParty(a Actor, res Resource) lifecycle.Party {
	p := res.Parties()
	var party lifecycle.Party
	if BuyerOf(a, p) {
		party |= lifecycle.Buyer
	}
	if SelectedManufacturerOf(a, p) {
		party |= lifecycle.SelectedManufacturer
	}
	return party
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
