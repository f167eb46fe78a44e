package service

import (
	"cmp"
	"slices"
	"time"

	"github.com/spec-kit/task-tracker/internal/domain"
)

// SortTasks returns a copy of tasks in display order: upcoming, then without
// deadline, then overdue; earliest deadline first within a bucket; newest
// first as the last tiebreak. Tasks equal on all keys keep their input order.
func SortTasks(tasks []domain.Task, now time.Time) []domain.Task {
	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, func(a, b domain.Task) int {
		return compareTasks(a, b, now)
	})
	return sorted
}

func compareTasks(a, b domain.Task, now time.Time) int {
	if c := cmp.Compare(domain.BucketFor(a.Deadline, now), domain.BucketFor(b.Deadline, now)); c != 0 {
		return c
	}
	switch {
	case a.Deadline != nil && b.Deadline != nil:
		if c := a.Deadline.Compare(*b.Deadline); c != 0 {
			return c
		}
	case a.Deadline != nil:
		return -1
	case b.Deadline != nil:
		return 1
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}
