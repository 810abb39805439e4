package app

import (
	"context"
	"fmt"

	"github.com/jaldanatrf/assignment-service/internal/domain"
	"github.com/jaldanatrf/assignment-service/internal/store"
)

// LeastLoadSelector picks the candidate with the fewest open assignments.
type LeastLoadSelector struct {
	assignments store.AssignmentRepository
}

func NewLeastLoadSelector(assignments store.AssignmentRepository) *LeastLoadSelector {
	return &LeastLoadSelector{assignments: assignments}
}

// Select returns the candidate with the fewest assignments in status assigned.
// Ties go to the earliest candidate. It returns nil only for an empty list.
func (s *LeastLoadSelector) Select(ctx context.Context, candidates []domain.User) (*domain.User, error) {
	var (
		selected  *domain.User
		bestCount int
	)
	for i := range candidates {
		userID := candidates[i].ID
		count, err := s.assignments.Count(ctx, store.AssignmentFilter{
			UserID: &userID,
			Status: domain.AssignmentStatusAssigned,
		})
		if err != nil {
			return nil, fmt.Errorf("count open assignments for user %s: %w", userID, err)
		}
		if selected == nil || count < bestCount {
			selected = &candidates[i]
			bestCount = count
		}
	}
	return selected, nil
}
