// Package assignment decides whether a work item is assigned to a ranked
// candidate or escalated to hiring. Assignment always needs an explicit oracle
// approval; every failure escalates.
package assignment

import (
	"context"

	"github.com/jonathan/taskmatch/internal/llm"
	"github.com/jonathan/taskmatch/internal/types"
	"go.uber.org/zap"
)

// Ranker orders candidates for a work item.
type Ranker interface {
	Rank(ctx context.Context, item *types.WorkItem, candidates []types.Candidate) []types.MatchResult
}

// Outcome is the terminal result of a decision with its full trace.
type Outcome struct {
	State      State               `json:"state"`
	History    []State             `json:"history"`
	Ranked     []types.MatchResult `json:"ranked"`
	Evaluation *Evaluation         `json:"evaluation,omitempty"`

	// Selected is set only when State is StateAssigned.
	Selected *types.MatchResult `json:"selected,omitempty"`

	// Reason explains an escalation.
	Reason string `json:"reason,omitempty"`
}

// Assigned reports whether the outcome assigns the item.
func (o Outcome) Assigned() bool {
	return o.State == StateAssigned && o.Selected != nil
}

// Escalation reasons.
const (
	ReasonNoCandidates  = "no candidates matched the required skills"
	ReasonOracleFailed  = "candidate validation unavailable"
	ReasonNoneQualified = "no candidate is definitively qualified"
)

// Engine runs the ranking and validation steps.
type Engine struct {
	ranker Ranker
	client llm.Client
	logger *zap.Logger
}

// NewEngine returns an Engine. A nil client escalates every ranked item.
func NewEngine(ranker Ranker, client llm.Client, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{ranker: ranker, client: client, logger: logger.Named("assignment")}
}

// Decide ranks candidates for an item whose required skills are already
// extracted and asks the oracle to approve one of them.
func (e *Engine) Decide(ctx context.Context, item *types.WorkItem, candidates []types.Candidate) Outcome {
	m := newMachine()
	out := Outcome{}
	finish := func(reason string) Outcome {
		out.State = m.current()
		out.History = m.history
		out.Reason = reason
		e.logger.Info("assignment decided",
			zap.String("issue_id", item.ID),
			zap.String("state", string(out.State)),
			zap.Int("candidates", len(out.Ranked)),
			zap.String("reason", reason))
		return out
	}

	mustAdvance(m, StateSkillsExtracted)
	out.Ranked = e.ranker.Rank(ctx, item, candidates)
	mustAdvance(m, StateCandidatesRanked)

	if len(out.Ranked) == 0 {
		mustAdvance(m, StateNoCandidates)
		mustAdvance(m, StateEscalated)
		return finish(ReasonNoCandidates)
	}

	eval, err := e.evaluate(ctx, item, out.Ranked)
	if err != nil {
		e.logger.Warn("candidate validation failed, escalating",
			zap.String("issue_id", item.ID),
			zap.Error(err))
		mustAdvance(m, StateEscalated)
		return finish(ReasonOracleFailed)
	}
	mustAdvance(m, StateOracleValidated)
	out.Evaluation = &eval

	match := selected(out.Evaluation, out.Ranked)
	if match == nil {
		mustAdvance(m, StateRejected)
		mustAdvance(m, StateEscalated)
		return finish(ReasonNoneQualified)
	}

	mustAdvance(m, StateApproved)
	mustAdvance(m, StateAssigned)
	out.Selected = match
	return finish("")
}

// mustAdvance panics on a transition the engine itself should never attempt.
func mustAdvance(m *machine, to State) {
	if err := m.advance(to); err != nil {
		panic(err)
	}
}
