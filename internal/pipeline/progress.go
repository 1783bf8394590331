package pipeline

import "context"

// Progress steps.
const (
	StepSkillsExtracted  = "skills_extracted"
	StepDuplicateChecked = "duplicate_checked"
	StepMerged           = "merged"
	StepCreated          = "created"
	StepDecided          = "decided"
	StepAssigned         = "assigned"
	StepEscalated        = "escalated"
	StepCommitAnalyzed   = "commit_analyzed"
	StepCommitLinked     = "commit_linked"
	StepProfileUpdated   = "profile_updated"
)

// ProgressEvent represents a progress update during a pipeline invocation
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	ItemID  string `json:"item_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs. It may be called
// from several goroutines when invocations run concurrently.
type ProgressCallback func(event ProgressEvent)

type progressKey struct{}

// WithProgress returns a context whose invocations also report to cb, in
// addition to the pipeline's own OnProgress.
func WithProgress(ctx context.Context, cb ProgressCallback) context.Context {
	return context.WithValue(ctx, progressKey{}, cb)
}

// ProgressFromContext returns the callback installed by WithProgress.
func ProgressFromContext(ctx context.Context) (ProgressCallback, bool) {
	cb, ok := ctx.Value(progressKey{}).(ProgressCallback)
	return cb, ok && cb != nil
}

func emit(ctx context.Context, cb ProgressCallback, step, itemID, message string, content any) {
	event := ProgressEvent{Step: step, Message: message, ItemID: itemID, Content: content}
	if cb != nil {
		cb(event)
	}
	if scoped, ok := ProgressFromContext(ctx); ok {
		scoped(event)
	}
}
