package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	userssvc "github.com/2Clight/Skill-Swap/internal/services/users"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrValidation = errors.New("validation error")
)

// Directory is the live user snapshot the engine computes over. There is
// no cache in front of it: an approval flip is visible to the very next
// candidate computation.
type Directory interface {
	Get(ctx context.Context, userID string) (userssvc.User, error)
	ListActive(ctx context.Context) ([]userssvc.User, error)
}

type Service struct {
	directory Directory
}

func NewService(directory Directory) *Service {
	return &Service{directory: directory}
}

// FindCandidates returns every active user the requester mutually
// matches with: the candidate can teach something the requester wants to
// learn, and the requester can teach something the candidate wants to
// learn.
//
// Only the first direction gates on approval. A candidate is offered as
// a teacher, which is a claim about validated credentials, so an
// unapproved user is never discoverable that way. The reverse direction
// describes what the requester could teach the candidate; it makes no
// credential claim and deliberately has no approval requirement.
func (s *Service) FindCandidates(ctx context.Context, userID string) ([]userssvc.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrValidation
	}
	if s.directory == nil {
		return nil, fmt.Errorf("user directory is nil")
	}

	requester, err := s.directory.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, userssvc.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	snapshot, err := s.directory.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	wants := skillSet(requester.SkillsToLearn)
	offers := skillSet(requester.PossessedSkills)

	candidates := make([]userssvc.User, 0)
	for _, candidate := range snapshot {
		if candidate.ID == requester.ID {
			continue
		}
		if !candidate.Active || !candidate.Approved {
			continue
		}
		if !overlaps(skillSet(candidate.PossessedSkills), wants) {
			continue
		}
		if !overlaps(offers, skillSet(candidate.SkillsToLearn)) {
			continue
		}
		candidates = append(candidates, candidate)
	}

	// Deterministic for a fixed snapshot: best-rated first, ties broken
	// by rating volume, then id.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RatingMean != candidates[j].RatingMean {
			return candidates[i].RatingMean > candidates[j].RatingMean
		}
		if candidates[i].RatingCount != candidates[j].RatingCount {
			return candidates[i].RatingCount > candidates[j].RatingCount
		}
		return candidates[i].ID < candidates[j].ID
	})

	return candidates, nil
}

func skillSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		normalized := strings.ToLower(strings.TrimSpace(skill))
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return set
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for skill := range a {
		if _, ok := b[skill]; ok {
			return true
		}
	}
	return false
}
