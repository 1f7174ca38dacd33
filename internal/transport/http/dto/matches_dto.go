package dto

type MatchCandidateResponse struct {
	ID                string   `json:"id"`
	ProfileName       string   `json:"profile_name"`
	Country           string   `json:"country"`
	Description       string   `json:"description"`
	Languages         []string `json:"languages"`
	PossessedSkills   []string `json:"possessed_skills"`
	SkillsToLearn     []string `json:"skills_to_learn"`
	ProfilePictureURL string   `json:"profile_picture_url,omitempty"`
	RatingCount       int64    `json:"rating_count"`
	RatingMean        float64  `json:"rating_mean"`
}

type MatchesResponse struct {
	Items []MatchCandidateResponse `json:"items"`
}
