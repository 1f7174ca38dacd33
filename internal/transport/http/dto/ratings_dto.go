package dto

import "time"

type SubmitRatingRequest struct {
	Score int `json:"score"`
}

type RatingResponse struct {
	ID            int64     `json:"id"`
	SubjectUserID string    `json:"subject_user_id"`
	RaterUserID   string    `json:"rater_user_id"`
	Score         int       `json:"score"`
	CreatedAt     time.Time `json:"created_at"`
}

type RatingAggregateResponse struct {
	SubjectUserID string  `json:"subject_user_id"`
	Count         int64   `json:"count"`
	Sum           int64   `json:"sum"`
	Mean          float64 `json:"mean"`
}
