// Package lifecycle holds the RFQ status graph.
package lifecycle

import (
	"errors"
	"fmt"

	"rfqmarket/models"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// Party is the side of an RFQ allowed to drive an edge.
type Party int

const (
	Buyer Party = 1 << iota
	SelectedManufacturer
	// System edges are taken by storage operations, never through the status endpoint.
	System
)

func (p Party) String() string {
	switch p {
	case Buyer:
		return "buyer"
	case SelectedManufacturer:
		return "selected manufacturer"
	case System:
		return "system"
	}
	return fmt.Sprintf("party(%d)", int(p))
}

type Edge struct {
	To      models.RFQStatus
	Trigger string
	Parties Party
}

var graph = map[models.RFQStatus][]Edge{
	models.StatusDraft: {
		{To: models.StatusOpenForRequests, Trigger: "buyer submits RFQ", Parties: Buyer},
	},
	models.StatusOpenForRequests: {
		{To: models.StatusRequestsPending, Trigger: "first manufacturer request", Parties: System},
	},
	models.StatusRequestsPending: {
		{To: models.StatusSupplierSelected, Trigger: "buyer accepts a request", Parties: System},
	},
	models.StatusSupplierSelected: {
		{To: models.StatusInProduction, Trigger: "production started", Parties: Buyer | SelectedManufacturer},
	},
	models.StatusInProduction: {
		{To: models.StatusShipped, Trigger: "marked shipped", Parties: SelectedManufacturer},
	},
	models.StatusShipped: {
		{To: models.StatusDelivered, Trigger: "buyer confirms delivery", Parties: Buyer},
	},
	models.StatusDelivered: {
		{To: models.StatusClosed, Trigger: "buyer submits rating", Parties: System},
	},
}

// Edges lists the outgoing edges of a status.
func Edges(from models.RFQStatus) []Edge {
	return graph[from]
}

func edge(from, to models.RFQStatus) (Edge, bool) {
	for _, e := range graph[from] {
		if e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// Allowed reports whether to is reachable from from in one step.
func Allowed(from, to models.RFQStatus) bool {
	_, ok := edge(from, to)
	return ok
}

// Check validates that party may move an RFQ from one status to another.
func Check(from, to models.RFQStatus, party Party) error {
	e, ok := edge(from, to)
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if e.Parties&party == 0 {
		return fmt.Errorf("%w: %s -> %s cannot be requested by %s", ErrInvalidTransition, from, to, party)
	}
	return nil
}

// Next lists the statuses a party may request from the given status.
func Next(from models.RFQStatus, party Party) []models.RFQStatus {
	var out []models.RFQStatus
	for _, e := range graph[from] {
		if e.Parties&party != 0 {
			out = append(out, e.To)
		}
	}
	return out
}

// Editable reports whether the buyer may still change RFQ content.
func Editable(s models.RFQStatus) bool {
	switch s {
	case models.StatusDraft, models.StatusOpenForRequests, models.StatusRequestsPending:
		return true
	}
	return false
}

func Deletable(s models.RFQStatus) bool { return s == models.StatusDraft }

// AcceptingRequests reports whether manufacturers may still bid.
func AcceptingRequests(s models.RFQStatus) bool {
	return s == models.StatusOpenForRequests || s == models.StatusRequestsPending
}

// SupplierSelected reports whether the RFQ is past winner selection and still active.
func SupplierSelected(s models.RFQStatus) bool {
	switch s {
	case models.StatusSupplierSelected, models.StatusInProduction, models.StatusShipped, models.StatusDelivered:
		return true
	}
	return false
}

func Terminal(s models.RFQStatus) bool {
	switch s {
	case models.StatusClosed, models.StatusExpired, models.StatusCancelled:
		return true
	}
	return false
}

// InitialAllowed reports whether an RFQ may be created in status s.
func InitialAllowed(s models.RFQStatus) bool {
	return s == models.StatusDraft || s == models.StatusOpenForRequests
}
