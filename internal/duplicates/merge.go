package duplicates

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/store"
	"github.com/jonathan/taskmatch/internal/types"
)

// ActivityEntry is the line appended to a parent's activity log when a
// duplicate report is folded into it.
func ActivityEntry(now time.Time, title string, v Verdict) string {
	return fmt.Sprintf("%s duplicate report: %s (confidence %.2f): %s",
		now.UTC().Format(time.RFC3339), title, v.Confidence, v.Reasoning)
}

// MergedPriority applies the verdict's priority change to current.
func MergedPriority(current types.Priority, change PriorityChange) types.Priority {
	switch change {
	case PriorityIncreased:
		return current.Raise()
	case PriorityDecreased:
		return current.Lower()
	}
	if current == "" {
		return types.PriorityMedium
	}
	return current
}

// MergeUpdate builds the patch that folds a duplicate report into parent:
// an activity entry, the adjusted priority and, when the report brings new
// skills, the widened skill list with a recomputed skill embedding.
func MergeUpdate(ctx context.Context, embedder embedding.Embedder, parent types.WorkItem, title string, v Verdict, now time.Time) store.Update {
	update := store.Update{
		Set: map[string]any{
			"priority":   MergedPriority(parent.Priority, v.PriorityChange),
			"updated_at": now,
		},
		Push: map[string][]any{
			"activity_log": {ActivityEntry(now, title, v)},
		},
	}

	current := types.SkillSet(parent.RequiredSkills)
	merged := current.Merge(v.NewSkillsRequired...)
	if len(merged) > len(current.Merge()) {
		update.Set["required_skills"] = []string(merged)
		update.Set["skill_embedding"] = embedder.Embed(ctx, embedding.JoinSkills(merged))
	}
	return update
}
