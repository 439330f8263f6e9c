package handler

import (
	"context"
	"net/http"

	"tenant-auth-core/internal/model"
)

type ratingRecorder interface {
	IssueLink(ctx context.Context, responseID int64) (model.ActionToken, error)
	Rate(ctx context.Context, value string, score int, comment string) (model.Rating, error)
}

type RatingHandler struct {
	ratings ratingRecorder
}

func NewRatingHandler(ratings ratingRecorder) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

func (h *RatingHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
	responseID, err := idParam(r, "responseID")
	if err != nil {
		writeError(w, err)
		return
	}

	link, err := h.ratings.IssueLink(r.Context(), responseID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, model.RatingLinkResponse{
		Token:     link.Value,
		ExpiresAt: link.ExpiresAt,
	})
}

func (h *RatingHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var payload model.RatingRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	rating, err := h.ratings.Rate(r.Context(), payload.Token, payload.Score, payload.Comment)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, rating)
}
