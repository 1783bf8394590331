// Package types provides the documents and transient records shared by the
// triage pipeline: work items, candidates, commits and requisitions.
package types

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/taskmatch/internal/embedding"
)

// Store collections.
const (
	CollectionIssues       = "issues"
	CollectionUsers        = "users"
	CollectionCommits      = "commits"
	CollectionRequisitions = "job_requisitions"
)

// AssignmentStatus is the assignment state of a work item.
type AssignmentStatus string

const (
	StatusPending         AssignmentStatus = "pending"
	StatusAssigned        AssignmentStatus = "assigned"
	StatusPostingRequired AssignmentStatus = "posting_required"
)

// Priority orders work items. The zero value is treated as PriorityMedium.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityLadder = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) rank() int {
	for i, q := range priorityLadder {
		if strings.EqualFold(string(p), string(q)) {
			return i
		}
	}
	return 1
}

// Raise moves p one step up the ladder, saturating at critical.
func (p Priority) Raise() Priority {
	return priorityLadder[min(p.rank()+1, len(priorityLadder)-1)]
}

// Lower moves p one step down the ladder, saturating at low.
func (p Priority) Lower() Priority {
	return priorityLadder[max(p.rank()-1, 0)]
}

// WorkItem is an issue or task being triaged.
type WorkItem struct {
	ID                   string           `json:"_id,omitempty" bson:"_id,omitempty"`
	Title                string           `json:"title" bson:"title"`
	Description          string           `json:"description" bson:"description"`
	DescriptionEmbedding embedding.Vector `json:"description_embedding,omitempty" bson:"description_embedding,omitempty"`
	RequiredSkills       []string         `json:"required_skills" bson:"required_skills"`
	SkillEmbedding       embedding.Vector `json:"skill_embedding,omitempty" bson:"skill_embedding,omitempty"`
	Priority             Priority         `json:"priority" bson:"priority"`
	AssignmentStatus     AssignmentStatus `json:"assignment_status" bson:"assignment_status"`
	AssignedUserID       string           `json:"assigned_user_id,omitempty" bson:"assigned_user_id,omitempty"`
	ParentID             string           `json:"parent_task_id,omitempty" bson:"parent_task_id,omitempty"`
	ActivityLog          []string         `json:"activity_log" bson:"activity_log"`
	Source               string           `json:"source,omitempty" bson:"source,omitempty"`
	ExternalID           string           `json:"external_id,omitempty" bson:"external_id,omitempty"`
	ProjectID            string           `json:"project_id,omitempty" bson:"project_id,omitempty"`
	CreatedAt            time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" bson:"updated_at"`
}

// EmbeddingText is the text a work item's description embedding is computed from.
func (w *WorkItem) EmbeddingText() string {
	return IssueText(w.Title, w.Description)
}

// IssueText joins a title and description the way work items are embedded.
func IssueText(title, description string) string {
	if strings.TrimSpace(description) == "" {
		return title
	}
	return title + ". " + description
}

// Candidate is a person eligible for assignment. The pipeline never writes
// identity fields; only Skills, ProfileText and ProfileEmbedding evolve.
type Candidate struct {
	ID               string           `json:"_id,omitempty" bson:"_id,omitempty"`
	Name             string           `json:"name" bson:"name"`
	Email            string           `json:"email" bson:"email"`
	Skills           []string         `json:"skills" bson:"skills"`
	ProfileText      string           `json:"work_profile,omitempty" bson:"work_profile,omitempty"`
	ProfileEmbedding embedding.Vector `json:"work_profile_embedding,omitempty" bson:"work_profile_embedding,omitempty"`
	HourlyRate       float64          `json:"hourly_rate,omitempty" bson:"hourly_rate,omitempty"`
}

// MatchResult scores one candidate against one work item. It is never persisted.
type MatchResult struct {
	Candidate         Candidate `json:"candidate"`
	SkillSimilarity   float64   `json:"skill_similarity"`
	ProfileSimilarity float64   `json:"profile_similarity"`
	SkillOverlap      float64   `json:"skill_overlap,omitempty"`
	CombinedScore     float64   `json:"combined_score"`
}

// Impact grades a commit.
type Impact string

const (
	ImpactMinor       Impact = "minor"
	ImpactModerate    Impact = "moderate"
	ImpactSignificant Impact = "significant"
)

// Commit is an analyzed commit document.
type Commit struct {
	ID                     string           `json:"_id,omitempty" bson:"_id,omitempty"`
	Hash                   string           `json:"commit_hash" bson:"commit_hash"`
	Message                string           `json:"message" bson:"message"`
	Repository             string           `json:"repository" bson:"repository"`
	AuthorEmail            string           `json:"author_email" bson:"author_email"`
	AuthorID               string           `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Summary                string           `json:"summary" bson:"summary"`
	SkillsUsed             []string         `json:"skills_used" bson:"skills_used"`
	Impact                 Impact           `json:"impact_assessment" bson:"impact_assessment"`
	SummaryEmbedding       embedding.Vector `json:"summary_embedding,omitempty" bson:"summary_embedding,omitempty"`
	TaskID                 string           `json:"task_id,omitempty" bson:"task_id,omitempty"`
	TaskSimilarity         float64          `json:"task_similarity,omitempty" bson:"task_similarity,omitempty"`
	IsTracked              bool             `json:"is_tracked" bson:"is_tracked"`
	TriggeredProfileUpdate bool             `json:"triggered_profile_update" bson:"triggered_profile_update"`
	CreatedAt              time.Time        `json:"created_at" bson:"created_at"`
}

// RequisitionStatus is the approval state of a requisition.
type RequisitionStatus string

const (
	RequisitionPending  RequisitionStatus = "pending"
	RequisitionApproved RequisitionStatus = "approved"
	RequisitionClosed   RequisitionStatus = "closed"
)

// Requisition is a hiring request drafted when nobody qualifies for a work item.
type Requisition struct {
	ID                      string            `json:"_id,omitempty" bson:"_id,omitempty"`
	TaskID                  string            `json:"task_id" bson:"task_id"`
	SuggestedTitle          string            `json:"suggested_title" bson:"suggested_title"`
	Description             string            `json:"description" bson:"description"`
	RequiredSkills          []string          `json:"required_skills" bson:"required_skills"`
	MissingSkills           []string          `json:"missing_skills,omitempty" bson:"missing_skills,omitempty"`
	RequiredExperienceYears int               `json:"required_experience_years" bson:"required_experience_years"`
	Status                  RequisitionStatus `json:"status" bson:"status"`
	CreatedBy               string            `json:"created_by" bson:"created_by"`
	CreatedAt               time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at" bson:"updated_at"`
}

// IssueRequest is an incoming issue.
type IssueRequest struct {
	Title       string   `json:"title" validate:"required,max=500"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Source      string   `json:"source,omitempty"`
	ExternalID  string   `json:"external_id,omitempty"`
	ProjectID   string   `json:"project_id,omitempty"`
	Project     string   `json:"project,omitempty"`
}

// Validate validates the IssueRequest using the validator.
// Titles are trimmed first so a whitespace-only title counts as missing.
func (r *IssueRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	return validate.Struct(r)
}

// CommitRequest is an incoming commit.
type CommitRequest struct {
	Hash        string `json:"commit_hash" validate:"required"`
	Message     string `json:"message"`
	Diff        string `json:"diff"`
	Repository  string `json:"repository"`
	AuthorEmail string `json:"author_email" validate:"required,email"`
}

// Validate validates the CommitRequest using the validator.
func (r *CommitRequest) Validate() error {
	return validate.Struct(r)
}

var validate = validator.New()
