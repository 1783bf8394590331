package duplicates

import (
	"context"
	"testing"
	"time"

	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergedPriority(t *testing.T) {
	assert.Equal(t, types.PriorityHigh, MergedPriority(types.PriorityMedium, PriorityIncreased))
	assert.Equal(t, types.PriorityCritical, MergedPriority(types.PriorityCritical, PriorityIncreased))
	assert.Equal(t, types.PriorityLow, MergedPriority(types.PriorityLow, PriorityDecreased))
	assert.Equal(t, types.PriorityHigh, MergedPriority(types.PriorityHigh, PriorityUnchanged))
	assert.Equal(t, types.PriorityMedium, MergedPriority("", PriorityUnchanged))
}

func TestActivityEntry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v := Verdict{Confidence: 0.85, Reasoning: "Same stack trace"}

	assert.Equal(t,
		"2024-03-01T12:00:00Z duplicate report: Login broken again (confidence 0.85): Same stack trace",
		ActivityEntry(now, "Login broken again", v))
}

func TestMergeUpdate_NewSkillsReembed(t *testing.T) {
	e := embedding.NewHashEmbedder()
	now := time.Now()
	parent := types.WorkItem{ID: "t-1", Priority: types.PriorityHigh, RequiredSkills: []string{"Go", "Redis"}}
	v := Verdict{IsDuplicate: true, ParentID: "t-1", Confidence: 0.9, PriorityChange: PriorityIncreased, NewSkillsRequired: []string{"redis", "Kafka"}}

	update := MergeUpdate(context.Background(), e, parent, "Cache misses", v, now)

	assert.Equal(t, types.PriorityCritical, update.Set["priority"])
	assert.Equal(t, []string{"Go", "Redis", "Kafka"}, update.Set["required_skills"])
	assert.Equal(t, e.Embed(context.Background(), "Go, Redis, Kafka"), update.Set["skill_embedding"])
	require.Len(t, update.Push["activity_log"], 1)
	assert.Contains(t, update.Push["activity_log"][0], "Cache misses")
}

func TestMergeUpdate_NoNewSkillsKeepsEmbedding(t *testing.T) {
	parent := types.WorkItem{ID: "t-1", RequiredSkills: []string{"Go"}}
	v := Verdict{IsDuplicate: true, ParentID: "t-1", NewSkillsRequired: []string{"go"}}

	update := MergeUpdate(context.Background(), embedding.NewHashEmbedder(), parent, "t", v, time.Now())

	assert.NotContains(t, update.Set, "required_skills")
	assert.NotContains(t, update.Set, "skill_embedding")
	assert.Equal(t, types.PriorityMedium, update.Set["priority"])
}
