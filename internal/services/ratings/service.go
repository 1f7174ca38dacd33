package ratings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/2Clight/Skill-Swap/internal/repo/postgres"
)

var (
	ErrNotFound        = errors.New("rated user not found")
	ErrSelfRating      = errors.New("users cannot rate themselves")
	ErrScoreOutOfRange = errors.New("score is out of range")
)

type Store interface {
	Submit(ctx context.Context, subjectID, raterID string, score int) (pgrepo.RatingRecord, error)
	Fold(ctx context.Context, subjectID string) (count int64, sum int64, err error)
}

// Cache holds precomputed aggregates. It is optional and advisory: every
// path works with it absent or failing.
type Cache interface {
	Get(ctx context.Context, subjectID string) (count int64, sum int64, ok bool, err error)
	Set(ctx context.Context, subjectID string, count, sum int64, ttl time.Duration) error
}

type Service struct {
	log      *zap.Logger
	store    Store
	cache    Cache
	minScore int
	maxScore int
	cacheTTL time.Duration
}

type Rating struct {
	ID            int64
	SubjectUserID string
	RaterUserID   string
	Score         int
	CreatedAt     time.Time
}

type Aggregate struct {
	SubjectUserID string
	Count         int64
	Sum           int64
	Mean          float64
}

func NewService(log *zap.Logger, store Store, cache Cache, minScore, maxScore int, cacheTTL time.Duration) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if minScore <= 0 {
		minScore = 1
	}
	if maxScore < minScore {
		maxScore = minScore
	}
	return &Service{
		log:      log,
		store:    store,
		cache:    cache,
		minScore: minScore,
		maxScore: maxScore,
		cacheTTL: cacheTTL,
	}
}

// Submit records a rating for subjectID. The write is authoritative in
// postgres; the cache is refreshed best effort afterwards.
func (s *Service) Submit(ctx context.Context, subjectID, raterID string, score int) (Rating, error) {
	subjectID = strings.TrimSpace(subjectID)
	raterID = strings.TrimSpace(raterID)
	if subjectID == "" || raterID == "" {
		return Rating{}, ErrNotFound
	}
	if subjectID == raterID {
		return Rating{}, ErrSelfRating
	}
	if score < s.minScore || score > s.maxScore {
		return Rating{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrScoreOutOfRange, score, s.minScore, s.maxScore)
	}
	if s.store == nil {
		return Rating{}, fmt.Errorf("rating store is nil")
	}

	record, err := s.store.Submit(ctx, subjectID, raterID, score)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Rating{}, ErrNotFound
		}
		return Rating{}, err
	}

	s.refreshCache(ctx, subjectID)

	return Rating{
		ID:            record.ID,
		SubjectUserID: record.SubjectUserID,
		RaterUserID:   record.RaterUserID,
		Score:         record.Score,
		CreatedAt:     record.CreatedAt,
	}, nil
}

// Aggregate returns the subject's rating summary, serving from cache
// when possible and folding from storage on a miss.
func (s *Service) Aggregate(ctx context.Context, subjectID string) (Aggregate, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return Aggregate{}, ErrNotFound
	}
	if s.store == nil {
		return Aggregate{}, fmt.Errorf("rating store is nil")
	}

	if s.cache != nil {
		count, sum, ok, err := s.cache.Get(ctx, subjectID)
		if err != nil {
			s.log.Warn("rating cache read failed", zap.Error(err))
		} else if ok {
			return newAggregate(subjectID, count, sum), nil
		}
	}

	count, sum, err := s.store.Fold(ctx, subjectID)
	if err != nil {
		return Aggregate{}, err
	}
	s.fillCache(ctx, subjectID, count, sum)

	return newAggregate(subjectID, count, sum), nil
}

func (s *Service) refreshCache(ctx context.Context, subjectID string) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	count, sum, err := s.store.Fold(ctx, subjectID)
	if err != nil {
		s.log.Warn("rating fold for cache refresh failed", zap.Error(err))
		return
	}
	s.fillCache(ctx, subjectID, count, sum)
}

func (s *Service) fillCache(ctx context.Context, subjectID string, count, sum int64) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, subjectID, count, sum, s.cacheTTL); err != nil {
		s.log.Warn("rating cache write failed", zap.Error(err))
	}
}

func newAggregate(subjectID string, count, sum int64) Aggregate {
	agg := Aggregate{SubjectUserID: subjectID, Count: count, Sum: sum}
	if count > 0 {
		agg.Mean = float64(sum) / float64(count)
	}
	return agg
}
