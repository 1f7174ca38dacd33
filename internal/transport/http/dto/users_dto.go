package dto

import "time"

type UserResponse struct {
	ID                string    `json:"id"`
	ProfileName       string    `json:"profile_name"`
	Email             string    `json:"email,omitempty"`
	Country           string    `json:"country"`
	Description       string    `json:"description"`
	Languages         []string  `json:"languages"`
	PossessedSkills   []string  `json:"possessed_skills"`
	SkillsToLearn     []string  `json:"skills_to_learn"`
	Approved          bool      `json:"approved"`
	Active            bool      `json:"active"`
	ModerationStatus  string    `json:"moderation_status,omitempty"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	RatingCount       int64     `json:"rating_count"`
	RatingMean        float64   `json:"rating_mean"`
	CreatedAt         time.Time `json:"created_at"`
}

type UpdateProfileRequest struct {
	ProfileName       *string   `json:"profile_name"`
	Country           *string   `json:"country"`
	Description       *string   `json:"description"`
	Languages         *[]string `json:"languages"`
	ProfilePictureURL *string   `json:"profile_picture_url"`
}

type UpdateSkillsRequest struct {
	PossessedSkills *[]string `json:"possessed_skills"`
	SkillsToLearn   *[]string `json:"skills_to_learn"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
