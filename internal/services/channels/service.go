package channels

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pgrepo "github.com/2Clight/Skill-Swap/internal/repo/postgres"
)

var (
	ErrInvalidPair = errors.New("invalid channel pair")
	ErrNotFound    = errors.New("channel not found")
	ErrUnknownUser = errors.New("unknown channel member")
)

type ChannelStore interface {
	CreateIfAbsent(ctx context.Context, id, userA, userB string) (pgrepo.ChannelRecord, bool, error)
	Get(ctx context.Context, id string) (pgrepo.ChannelRecord, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]pgrepo.ChannelListRecord, error)
}

type UserStore interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

type Service struct {
	channelStore ChannelStore
	userStore    UserStore
}

type Channel struct {
	ID        string
	Members   [2]string
	CreatedAt time.Time
}

type ChannelListItem struct {
	ID              string
	PeerID          string
	PeerName        string
	PeerPictureURL  string
	LastMessageText string
	LastMessageAt   *time.Time
	CreatedAt       time.Time
}

func NewService(channelStore ChannelStore, userStore UserStore) *Service {
	return &Service{
		channelStore: channelStore,
		userStore:    userStore,
	}
}

// PairID derives the channel id from its two members: the pair sorted
// lexicographically and joined with an underscore. Both members compute
// the same id independently, so concurrent first contact needs no
// coordination round-trip.
func PairID(userA, userB string) string {
	a, b := orderPair(userA, userB)
	return a + "_" + b
}

// GetOrCreate resolves the one channel for an unordered pair of distinct
// users, creating it on first contact. Creation is a conditional insert
// keyed by the derived id, never read-then-write, so two simultaneous
// first contacts converge on a single channel.
func (s *Service) GetOrCreate(ctx context.Context, userA, userB string) (Channel, error) {
	userA = strings.TrimSpace(userA)
	userB = strings.TrimSpace(userB)
	if userA == "" || userB == "" || userA == userB {
		return Channel{}, ErrInvalidPair
	}
	if s.channelStore == nil {
		return Channel{}, fmt.Errorf("channel store is nil")
	}

	if s.userStore != nil {
		for _, id := range []string{userA, userB} {
			exists, err := s.userStore.Exists(ctx, id)
			if err != nil {
				return Channel{}, err
			}
			if !exists {
				return Channel{}, ErrUnknownUser
			}
		}
	}

	a, b := orderPair(userA, userB)
	record, _, err := s.channelStore.CreateIfAbsent(ctx, PairID(a, b), a, b)
	if err != nil {
		return Channel{}, err
	}

	return fromRecord(record), nil
}

func (s *Service) Get(ctx context.Context, channelID string) (Channel, error) {
	if strings.TrimSpace(channelID) == "" {
		return Channel{}, ErrNotFound
	}
	if s.channelStore == nil {
		return Channel{}, fmt.Errorf("channel store is nil")
	}

	record, err := s.channelStore.Get(ctx, channelID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrChannelNotFound) {
			return Channel{}, ErrNotFound
		}
		return Channel{}, err
	}

	return fromRecord(record), nil
}

func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]ChannelListItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidPair
	}
	if s.channelStore == nil {
		return nil, fmt.Errorf("channel store is nil")
	}

	records, err := s.channelStore.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]ChannelListItem, 0, len(records))
	for _, record := range records {
		item := ChannelListItem{
			ID:        record.ID,
			PeerID:    record.PeerID,
			PeerName:  record.PeerName,
			CreatedAt: record.CreatedAt,
		}
		if record.PeerPictureURL != nil {
			item.PeerPictureURL = *record.PeerPictureURL
		}
		if record.LastMessageText != nil {
			item.LastMessageText = *record.LastMessageText
		}
		item.LastMessageAt = record.LastMessageAt
		items = append(items, item)
	}

	return items, nil
}

// IsMember reports whether userID is one of the channel's two members.
func (c Channel) IsMember(userID string) bool {
	return userID == c.Members[0] || userID == c.Members[1]
}

func orderPair(userA, userB string) (string, string) {
	if userA > userB {
		return userB, userA
	}
	return userA, userB
}

func fromRecord(record pgrepo.ChannelRecord) Channel {
	return Channel{
		ID:        record.ID,
		Members:   [2]string{record.UserA, record.UserB},
		CreatedAt: record.CreatedAt,
	}
}
