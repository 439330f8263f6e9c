package model

import "time"

const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

type Rating struct {
	ID         int64     `json:"id"`
	ResponseID int64     `json:"response_id"`
	Score      int       `json:"score"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
