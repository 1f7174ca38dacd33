package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/2Clight/Skill-Swap/internal/repo/postgres"
	"github.com/2Clight/Skill-Swap/internal/services/channels"
)

var (
	ErrNotFound       = errors.New("channel not found")
	ErrInvalidSender  = errors.New("sender is not a channel member")
	ErrEmptyMessage   = errors.New("message body is empty")
	ErrBodyTooLong    = errors.New("message body is too long")
	ErrRateLimited    = errors.New("message rate limit exceeded")
	ErrSlowSubscriber = errors.New("subscriber fell behind live delivery")
)

const maxBodyLen = 4000

// RateLimitedError carries how long the sender has to wait for the
// current window to reset. errors.Is(err, ErrRateLimited) matches it.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry in %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

type Message struct {
	ID        int64
	ChannelID string
	SenderID  string
	Body      string
	CreatedAt time.Time
}

// Event is one item on a subscription stream. Err is terminal: the
// stream is closed right after an event that carries one.
type Event struct {
	Message Message
	Err     error
}

type MessageStore interface {
	Insert(ctx context.Context, channelID, senderID, body string) (pgrepo.MessageRecord, error)
	ListByChannel(ctx context.Context, channelID string, afterID int64, limit int) ([]pgrepo.MessageRecord, error)
}

type ChannelDirectory interface {
	Get(ctx context.Context, channelID string) (channels.Channel, error)
}

type RateLimiter interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type Service struct {
	log      *zap.Logger
	store    MessageStore
	channels ChannelDirectory
	hub      *Hub
	limiter  RateLimiter

	postMaxPerMinute int
	historyPageSize  int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(log *zap.Logger, store MessageStore, directory ChannelDirectory, hub *Hub, limiter RateLimiter, postMaxPerMinute, historyPageSize int) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if historyPageSize <= 0 {
		historyPageSize = 200
	}
	return &Service{
		log:              log,
		store:            store,
		channels:         directory,
		hub:              hub,
		limiter:          limiter,
		postMaxPerMinute: postMaxPerMinute,
		historyPageSize:  historyPageSize,
		locks:            make(map[string]*sync.Mutex),
	}
}

// Post appends a message to a channel and fans it out to live
// subscribers. The insert and the publish happen under a per-channel
// lock, so subscribers observe messages in exactly the stored id order.
func (s *Service) Post(ctx context.Context, channelID, senderID, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrEmptyMessage
	}
	if len(body) > maxBodyLen {
		return Message{}, ErrBodyTooLong
	}
	if s.store == nil {
		return Message{}, fmt.Errorf("message store is nil")
	}

	channel, err := s.resolveMember(ctx, channelID, senderID)
	if err != nil {
		return Message{}, err
	}

	if err := s.checkRate(ctx, senderID); err != nil {
		return Message{}, err
	}

	lock := s.channelLock(channel.ID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.store.Insert(ctx, channel.ID, senderID, body)
	if err != nil {
		return Message{}, err
	}

	msg := fromRecord(record)
	if s.hub != nil {
		s.hub.Publish(channel.ID, msg)
	}

	return msg, nil
}

// History returns stored messages after afterID, oldest first.
func (s *Service) History(ctx context.Context, channelID, userID string, afterID int64, limit int) ([]Message, error) {
	if s.store == nil {
		return nil, fmt.Errorf("message store is nil")
	}
	channel, err := s.resolveMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.historyPageSize {
		limit = s.historyPageSize
	}

	records, err := s.store.ListByChannel(ctx, channel.ID, afterID, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(records))
	for _, record := range records {
		messages = append(messages, fromRecord(record))
	}
	return messages, nil
}

// Subscribe opens a replay-then-live stream for one channel. Stored
// messages after afterID arrive first in id order, then live ones; a
// message is never delivered twice and never skipped while the
// subscriber keeps up. The returned channel closes when ctx is done or
// after a terminal Event.Err.
func (s *Service) Subscribe(ctx context.Context, channelID, userID string, afterID int64) (<-chan Event, error) {
	if s.store == nil || s.hub == nil {
		return nil, fmt.Errorf("chat service is not fully wired")
	}
	channel, err := s.resolveMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}

	// Register before reading history. Messages posted during replay
	// land in the live queue and get deduplicated at the seam below.
	live, unsubscribe := s.hub.Register(channel.ID)

	events := make(chan Event)
	go func() {
		defer close(events)
		defer unsubscribe()

		lastID := afterID
		for {
			page, err := s.store.ListByChannel(ctx, channel.ID, lastID, s.historyPageSize)
			if err != nil {
				s.emit(ctx, events, Event{Err: err})
				return
			}
			for _, record := range page {
				if !s.emit(ctx, events, Event{Message: fromRecord(record)}) {
					return
				}
				lastID = record.ID
			}
			if len(page) < s.historyPageSize {
				break
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-live:
				if !ok {
					s.emit(ctx, events, Event{Err: ErrSlowSubscriber})
					return
				}
				if msg.ID <= lastID {
					continue
				}
				if !s.emit(ctx, events, Event{Message: msg}) {
					return
				}
				lastID = msg.ID
			}
		}
	}()

	return events, nil
}

func (s *Service) resolveMember(ctx context.Context, channelID, userID string) (channels.Channel, error) {
	if s.channels == nil {
		return channels.Channel{}, fmt.Errorf("channel directory is nil")
	}
	channel, err := s.channels.Get(ctx, channelID)
	if err != nil {
		if errors.Is(err, channels.ErrNotFound) {
			return channels.Channel{}, ErrNotFound
		}
		return channels.Channel{}, err
	}
	if !channel.IsMember(userID) {
		return channels.Channel{}, ErrInvalidSender
	}
	return channel, nil
}

// checkRate enforces the per-sender posting window. A limiter outage
// degrades to allowing the post rather than failing it.
func (s *Service) checkRate(ctx context.Context, senderID string) error {
	if s.limiter == nil || s.postMaxPerMinute <= 0 {
		return nil
	}

	count, ttl, err := s.limiter.IncrementWindow(ctx, "chat_rate:"+senderID, time.Minute)
	if err != nil {
		s.log.Warn("rate limiter unavailable, allowing post", zap.Error(err))
		return nil
	}
	if count > int64(s.postMaxPerMinute) {
		if ttl <= 0 {
			ttl = time.Minute
		}
		return &RateLimitedError{RetryAfter: ttl}
	}
	return nil
}

func (s *Service) channelLock(channelID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[channelID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[channelID] = lock
	}
	return lock
}

func (s *Service) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func fromRecord(record pgrepo.MessageRecord) Message {
	return Message{
		ID:        record.ID,
		ChannelID: record.ChannelID,
		SenderID:  record.SenderID,
		Body:      record.Body,
		CreatedAt: record.CreatedAt,
	}
}
