package ratings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	pgrepo "github.com/2Clight/Skill-Swap/internal/repo/postgres"
	redisrepo "github.com/2Clight/Skill-Swap/internal/repo/redis"
)

type fakeStore struct {
	known   map[string]bool
	ratings map[string][]int
	folds   int
}

func newFakeStore(known ...string) *fakeStore {
	f := &fakeStore{known: make(map[string]bool), ratings: make(map[string][]int)}
	for _, id := range known {
		f.known[id] = true
	}
	return f
}

func (f *fakeStore) Submit(_ context.Context, subjectID, raterID string, score int) (pgrepo.RatingRecord, error) {
	if !f.known[subjectID] {
		return pgrepo.RatingRecord{}, pgrepo.ErrUserNotFound
	}
	f.ratings[subjectID] = append(f.ratings[subjectID], score)
	return pgrepo.RatingRecord{
		ID:            int64(len(f.ratings[subjectID])),
		SubjectUserID: subjectID,
		RaterUserID:   raterID,
		Score:         score,
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeStore) Fold(_ context.Context, subjectID string) (int64, int64, error) {
	f.folds++
	var sum int64
	for _, score := range f.ratings[subjectID] {
		sum += int64(score)
	}
	return int64(len(f.ratings[subjectID])), sum, nil
}

func newCache(t *testing.T) *redisrepo.RatingCacheRepo {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisrepo.NewRatingCacheRepo(client)
}

func TestSubmitValidation(t *testing.T) {
	svc := NewService(zap.NewNop(), newFakeStore("bob"), nil, 1, 5, 0)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "bob", "bob", 4); !errors.Is(err, ErrSelfRating) {
		t.Fatalf("self rating err = %v, want ErrSelfRating", err)
	}
	for _, score := range []int{0, 6, -3} {
		if _, err := svc.Submit(ctx, "bob", "alice", score); !errors.Is(err, ErrScoreOutOfRange) {
			t.Fatalf("score %d err = %v, want ErrScoreOutOfRange", score, err)
		}
	}
	if _, err := svc.Submit(ctx, "ghost", "alice", 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown subject err = %v, want ErrNotFound", err)
	}
}

func TestSubmitBoundaryScoresAccepted(t *testing.T) {
	svc := NewService(zap.NewNop(), newFakeStore("bob"), nil, 1, 5, 0)
	ctx := context.Background()

	for _, score := range []int{1, 5} {
		rating, err := svc.Submit(ctx, "bob", "alice", score)
		if err != nil {
			t.Fatalf("score %d: %v", score, err)
		}
		if rating.Score != score {
			t.Fatalf("stored score = %d, want %d", rating.Score, score)
		}
	}
}

func TestAggregateMean(t *testing.T) {
	store := newFakeStore("bob")
	svc := NewService(zap.NewNop(), store, nil, 1, 5, 0)
	ctx := context.Background()

	for _, score := range []int{5, 4, 3, 2} {
		if _, err := svc.Submit(ctx, "bob", "alice", score); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	agg, err := svc.Aggregate(ctx, "bob")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.Count != 4 || agg.Sum != 14 || agg.Mean != 3.5 {
		t.Fatalf("aggregate = %+v, want count 4 sum 14 mean 3.5", agg)
	}
}

func TestAggregateUnratedUser(t *testing.T) {
	svc := NewService(zap.NewNop(), newFakeStore("bob"), nil, 1, 5, 0)

	agg, err := svc.Aggregate(context.Background(), "bob")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.Count != 0 || agg.Mean != 0 {
		t.Fatalf("aggregate = %+v, want empty", agg)
	}
}

func TestAggregateServedFromCacheAfterSubmit(t *testing.T) {
	store := newFakeStore("bob")
	svc := NewService(zap.NewNop(), store, newCache(t), 1, 5, 10*time.Minute)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "bob", "alice", 4); err != nil {
		t.Fatalf("submit: %v", err)
	}
	foldsAfterSubmit := store.folds

	agg, err := svc.Aggregate(ctx, "bob")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.Count != 1 || agg.Sum != 4 {
		t.Fatalf("aggregate = %+v, want count 1 sum 4", agg)
	}
	if store.folds != foldsAfterSubmit {
		t.Fatalf("aggregate hit storage (%d folds), want cache hit", store.folds-foldsAfterSubmit)
	}
}

func TestAggregateMissFillsCache(t *testing.T) {
	store := newFakeStore("bob")
	store.ratings["bob"] = []int{3, 5}
	svc := NewService(zap.NewNop(), store, newCache(t), 1, 5, 10*time.Minute)
	ctx := context.Background()

	first, err := svc.Aggregate(ctx, "bob")
	if err != nil {
		t.Fatalf("first aggregate: %v", err)
	}
	if first.Count != 2 || first.Sum != 8 {
		t.Fatalf("first aggregate = %+v", first)
	}
	folds := store.folds

	second, err := svc.Aggregate(ctx, "bob")
	if err != nil {
		t.Fatalf("second aggregate: %v", err)
	}
	if second != first {
		t.Fatalf("second aggregate = %+v, want %+v", second, first)
	}
	if store.folds != folds {
		t.Fatalf("second aggregate folded again, want cache hit")
	}
}

func TestAggregateSurvivesCacheOutage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	store := newFakeStore("bob")
	store.ratings["bob"] = []int{4}
	svc := NewService(zap.NewNop(), store, redisrepo.NewRatingCacheRepo(client), 1, 5, 10*time.Minute)

	agg, err := svc.Aggregate(context.Background(), "bob")
	if err != nil {
		t.Fatalf("aggregate with cache down: %v", err)
	}
	if agg.Count != 1 || agg.Sum != 4 {
		t.Fatalf("aggregate = %+v", agg)
	}
}
