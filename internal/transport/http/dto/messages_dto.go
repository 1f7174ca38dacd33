package dto

import "time"

type PostMessageRequest struct {
	Body string `json:"body"`
}

type MessageResponse struct {
	ID        int64     `json:"id"`
	ChannelID string    `json:"channel_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type MessagesResponse struct {
	Items []MessageResponse `json:"items"`
}
