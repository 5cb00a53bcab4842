package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rfqmarket/db"
	"rfqmarket/internal/access"
	"rfqmarket/internal/cache"
	"rfqmarket/internal/metrics"
	"rfqmarket/internal/notify"
	"rfqmarket/models"
)

type ratingInput struct {
	RFQID      string                  `json:"rfqId"`
	Rating     int                     `json:"rating"`
	Comment    string                  `json:"comment"`
	Categories models.RatingCategories `json:"categories"`
}

// CreateRatingHandler handles POST /ratings. Rating a delivered RFQ closes it.
func (h *Handler) CreateRatingHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in ratingInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	rfqID, err := parseUUID(in.RFQID, "rfqId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	rfq, err := h.Store.GetRFQ(r.Context(), rfqID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := access.Authorize(actor, access.RateRFQ, access.RFQ{RFQ: rfq}); err != nil {
		respondMessage(w, http.StatusForbidden, "Not authorized to rate this RFQ")
		return
	}
	if !rfq.SelectedManufacturerID.Valid {
		respondMessage(w, http.StatusBadRequest, "RFQ has no selected manufacturer")
		return
	}
	if rfq.Status != models.StatusDelivered {
		respondMessage(w, http.StatusBadRequest, "Only delivered RFQs can be rated")
		return
	}

	rating := &models.Rating{
		RFQID:          rfq.ID,
		BuyerID:        actor.ID,
		ManufacturerID: rfq.SelectedManufacturerID.UUID,
		Rating:         in.Rating,
		Comment:        in.Comment,
		Categories:     in.Categories,
	}
	if err := rating.Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	closed, err := h.Store.CreateRating(r.Context(), rating)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			respondMessage(w, http.StatusBadRequest, "RFQ already rated")
			return
		}
		respondError(w, r, err)
		return
	}
	metrics.RecordTransition(string(models.StatusDelivered), string(closed.Status))

	sum, err := h.Store.RefreshManufacturerRating(r.Context(), rating.ManufacturerID)
	if err != nil {
		log.Warn().Err(err).Str("manufacturer_id", rating.ManufacturerID.String()).Msg("rating aggregate not refreshed")
		if err := h.Cache.Delete(r.Context(), summaryKey(rating.ManufacturerID)); err != nil {
			log.Warn().Err(err).Msg("rating summary cache not invalidated")
		}
	} else {
		h.cacheSummary(r.Context(), sum)
	}
	h.notifyAsync(notify.RatingCreated, rating.ManufacturerID, rfq.ID, map[string]string{
		"rating": fmt.Sprint(rating.Rating),
	})
	respond(w, http.StatusCreated, rating)
}

type ratingList struct {
	Success bool            `json:"success"`
	Data    []models.Rating `json:"data"`
	Average float64         `json:"averageRating"`
	Total   int             `json:"totalRatings"`
}

// ListRatingsHandler handles GET /ratings?manufacturerId=.
func (h *Handler) ListRatingsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(w, r); !ok {
		return
	}
	id, err := parseUUID(r.URL.Query().Get("manufacturerId"), "manufacturerId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	ratings, err := h.Store.ListRatingsForManufacturer(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if ratings == nil {
		ratings = []models.Rating{}
	}
	sum, err := h.ratingSummary(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratingList{Success: true, Data: ratings, Average: sum.Average, Total: sum.Total})
}

func summaryKey(id uuid.UUID) string { return "rating-summary:" + id.String() }

// ratingSummary serves the aggregate from cache. On a miss it reads the
// aggregate kept on the user row and caches it.
func (h *Handler) ratingSummary(ctx context.Context, id uuid.UUID) (models.RatingSummary, error) {
	b, err := h.Cache.Get(ctx, summaryKey(id))
	if err == nil {
		var sum models.RatingSummary
		if json.Unmarshal(b, &sum) == nil {
			return sum, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Warn().Err(err).Msg("rating summary cache read failed")
	}

	sum := models.RatingSummary{ManufacturerID: id}
	u, err := h.Store.GetUser(ctx, id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return sum, nil
	case err != nil:
		return sum, err
	}
	sum.Average, sum.Total = u.RatingAverage, u.RatingCount
	return h.cacheSummary(ctx, sum), nil
}

// cacheSummary rounds the average to one decimal place and stores the summary.
func (h *Handler) cacheSummary(ctx context.Context, sum models.RatingSummary) models.RatingSummary {
	sum.Average = math.Round(sum.Average*10) / 10
	b, err := json.Marshal(sum)
	if err != nil {
		return sum
	}
	if err := h.Cache.Set(ctx, summaryKey(sum.ManufacturerID), b, h.CacheTTL); err != nil {
		log.Warn().Err(err).Msg("rating summary cache write failed")
	}
	return sum
}

// GetRFQRatingHandler handles GET /ratings/rfq/{rfqId}.
func (h *Handler) GetRFQRatingHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	rfqID, err := uuidParam(r, "rfqId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	rfq, err := h.Store.GetRFQ(r.Context(), rfqID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := access.Authorize(actor, access.ViewRFQRating, access.RFQ{RFQ: rfq}); err != nil {
		respondError(w, r, err)
		return
	}
	rating, err := h.Store.GetRatingByRFQ(r.Context(), rfqID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, rating)
}
