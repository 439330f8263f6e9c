package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tenant-auth-core/internal/event"
	"tenant-auth-core/internal/model"
	"tenant-auth-core/pkg/apierror"
)

// maxRatingCommentLength counts characters, not bytes.
const maxRatingCommentLength = 2000

// RatingService issues response-rating links and records the rating when a
// link is redeemed.
type RatingService struct {
	ratings RatingStore
	actions *ActionTokenService
	bus     event.Bus
}

func NewRatingService(ratings RatingStore, actions *ActionTokenService, bus event.Bus) *RatingService {
	return &RatingService{ratings: ratings, actions: actions, bus: bus}
}

func (s *RatingService) IssueLink(ctx context.Context, responseID int64) (model.ActionToken, error) {
	if responseID <= 0 {
		return model.ActionToken{}, apierror.BadRequest("invalid response id", strconv.FormatInt(responseID, 10))
	}
	return s.actions.Issue(ctx, model.PurposeResponseRating, responseID)
}

// Rate validates the rating before consuming the token so a rejected
// submission can be corrected and resent with the same link.
func (s *RatingService) Rate(ctx context.Context, value string, score int, comment string) (model.Rating, error) {
	if score < model.MinRatingScore || score > model.MaxRatingScore {
		return model.Rating{}, apierror.BadRequest(
			fmt.Sprintf("score must be between %d and %d", model.MinRatingScore, model.MaxRatingScore), "score")
	}
	comment = strings.TrimSpace(comment)
	if !utf8.ValidString(comment) {
		return model.Rating{}, apierror.BadRequest("comment is not valid UTF-8", "comment")
	}
	if utf8.RuneCountInString(comment) > maxRatingCommentLength {
		return model.Rating{}, apierror.BadRequest("comment too long", "comment")
	}

	t, err := s.actions.Redeem(ctx, model.PurposeResponseRating, strings.TrimSpace(value))
	if err != nil {
		return model.Rating{}, err
	}

	rating, err := s.ratings.Create(ctx, model.Rating{
		ResponseID: t.SubjectID,
		Score:      score,
		Comment:    comment,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return model.Rating{}, err
	}

	s.bus.Publish(event.New(event.TypeResponseRated, "", map[string]any{
		"response_id": rating.ResponseID,
		"score":       rating.Score,
	}))
	return rating, nil
}
