package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/taskmatch/internal/assignment"
	"github.com/jonathan/taskmatch/internal/duplicates"
	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/escalation"
	"github.com/jonathan/taskmatch/internal/llm"
	"github.com/jonathan/taskmatch/internal/llm/llmtest"
	"github.com/jonathan/taskmatch/internal/profile"
	"github.com/jonathan/taskmatch/internal/ranking"
	"github.com/jonathan/taskmatch/internal/skills"
	"github.com/jonathan/taskmatch/internal/store"
	"github.com/jonathan/taskmatch/internal/types"
)

// Prompt markers for each oracle task.
const (
	askSkills    = "expert technical recruiter"
	askDuplicate = "issue tracker analyst"
	askEvaluate  = "strict technical lead"
	askReport    = "technical resource manager"
	askProfile   = "career development analyst"
	askCommit    = "senior code reviewer"
)

var errOracleDown = &llm.UnavailableError{Message: "connection refused"}

// routedOracle answers by prompt marker; unknown prompts fail.
func routedOracle(answers map[string]string) *llmtest.MockClient {
	return &llmtest.MockClient{
		GenerateContentFunc: func(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
			for marker, answer := range answers {
				if strings.Contains(prompt, marker) {
					return answer, nil
				}
			}
			return "", errOracleDown
		},
	}
}

// askedFor counts calls whose prompt contains marker.
func askedFor(client *llmtest.MockClient, marker string) int {
	n := 0
	for _, c := range client.Calls() {
		if strings.Contains(c.Prompt, marker) {
			n++
		}
	}
	return n
}

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func newIssuePipeline(s store.Store, client llm.Client, ranker assignment.Ranker) *IssuePipeline {
	embedder := embedding.NewHashEmbedder()
	if ranker == nil {
		ranker = ranking.NewRanker(embedder, ranking.Options{})
	}
	return NewIssuePipeline(IssueDeps{
		Store:      s,
		Embedder:   embedder,
		Extractor:  skills.NewExtractor(client, nil),
		Detector:   duplicates.NewDetector(client, nil, duplicates.Options{}),
		Engine:     assignment.NewEngine(ranker, client, nil),
		Escalation: escalation.NewGenerator(client, nil),
		Now:        func() time.Time { return fixedNow },
	})
}

func newCommitPipeline(s store.Store, client llm.Client) *CommitPipeline {
	return NewCommitPipeline(CommitDeps{
		Store:     s,
		Embedder:  embedding.NewHashEmbedder(),
		Extractor: skills.NewExtractor(client, nil),
		Updater:   profile.NewUpdater(client, nil),
		Now:       func() time.Time { return fixedNow },
	})
}

func seed(t *testing.T, s store.Store, collection string, docs ...any) {
	t.Helper()
	for _, doc := range docs {
		_, err := s.InsertOne(context.Background(), collection, doc)
		require.NoError(t, err)
	}
}

func loadIssue(t *testing.T, s store.Store, id string) types.WorkItem {
	t.Helper()
	var item types.WorkItem
	require.NoError(t, s.FindOne(context.Background(), types.CollectionIssues, store.ByID(id), &item))
	return item
}

// fixedRanker scores candidates in input order.
type fixedRanker struct {
	scores []float64
}

func (r fixedRanker) Rank(_ context.Context, _ *types.WorkItem, candidates []types.Candidate) []types.MatchResult {
	var out []types.MatchResult
	for i, c := range candidates {
		if i >= len(r.scores) {
			break
		}
		out = append(out, types.MatchResult{Candidate: c, CombinedScore: r.scores[i]})
	}
	return out
}

// racingStore lets another invocation win the first conditional status update.
type racingStore struct {
	*store.Memory
	once sync.Once
}

func (r *racingStore) UpdateOne(ctx context.Context, collection string, filter store.Filter, update store.Update) (bool, error) {
	if _, conditional := filter["assignment_status"]; conditional {
		r.once.Do(func() {
			_, _ = r.Memory.UpdateOne(ctx, collection, store.ByID(filter["_id"].(string)), store.Update{
				Set: map[string]any{"assignment_status": types.StatusAssigned, "assigned_user_id": "someone-else"},
			})
		})
	}
	return r.Memory.UpdateOne(ctx, collection, filter, update)
}

// downStore fails every read.
type downStore struct {
	*store.Memory
}

func (downStore) FindMany(context.Context, string, store.Filter, any) error {
	return &store.UnavailableError{Backend: "memory", Op: "find", Cause: errors.New("connection reset")}
}
