package dto

import "time"

type CreateChannelRequest struct {
	PeerID string `json:"peer_id"`
}

type ChannelResponse struct {
	ID        string    `json:"id"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

type ChannelListItemResponse struct {
	ID              string     `json:"id"`
	PeerID          string     `json:"peer_id"`
	PeerName        string     `json:"peer_name"`
	PeerPictureURL  string     `json:"peer_picture_url,omitempty"`
	LastMessageText string     `json:"last_message_text,omitempty"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type ChannelsResponse struct {
	Items []ChannelListItemResponse `json:"items"`
}
