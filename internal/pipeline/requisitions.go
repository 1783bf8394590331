package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/taskmatch/internal/store"
	"github.com/jonathan/taskmatch/internal/types"
)

var requisitionTransitions = map[types.RequisitionStatus][]types.RequisitionStatus{
	types.RequisitionPending:  {types.RequisitionApproved, types.RequisitionClosed},
	types.RequisitionApproved: {types.RequisitionClosed},
}

// Requisitions manages the human side of the requisition lifecycle.
// Drafts are created by the issue pipeline only.
type Requisitions struct {
	store store.Store
	now   func() time.Time
}

// NewRequisitions returns a Requisitions service.
func NewRequisitions(s store.Store) *Requisitions {
	return &Requisitions{store: s, now: time.Now}
}

// List returns requisitions with status, or all of them when status is empty.
func (r *Requisitions) List(ctx context.Context, status types.RequisitionStatus) ([]types.Requisition, error) {
	filter := store.Filter{}
	if status != "" {
		filter["status"] = status
	}
	var out []types.Requisition
	if err := r.store.FindMany(ctx, types.CollectionRequisitions, filter, &out); err != nil {
		return nil, fmt.Errorf("listing requisitions: %w", err)
	}
	return out, nil
}

// Get loads one requisition.
func (r *Requisitions) Get(ctx context.Context, id string) (*types.Requisition, error) {
	var req types.Requisition
	if err := r.store.FindOne(ctx, types.CollectionRequisitions, store.ByID(id), &req); err != nil {
		return nil, fmt.Errorf("loading requisition %s: %w", id, err)
	}
	return &req, nil
}

// Approve moves a pending requisition to approved.
func (r *Requisitions) Approve(ctx context.Context, id string) (*types.Requisition, error) {
	return r.move(ctx, id, types.RequisitionApproved)
}

// Close closes a pending or approved requisition.
func (r *Requisitions) Close(ctx context.Context, id string) (*types.Requisition, error) {
	return r.move(ctx, id, types.RequisitionClosed)
}

func (r *Requisitions) move(ctx context.Context, id string, to types.RequisitionStatus) (*types.Requisition, error) {
	req, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canMove(req.Status, to) {
		return nil, &TransitionError{RequisitionID: id, From: req.Status, To: to}
	}

	now := r.now()
	matched, err := r.store.UpdateOne(ctx, types.CollectionRequisitions,
		store.Filter{"_id": id, "status": req.Status},
		store.Update{Set: map[string]any{"status": to, "updated_at": now}})
	if err != nil {
		return nil, fmt.Errorf("updating requisition %s: %w", id, err)
	}
	if !matched {
		return nil, fmt.Errorf("requisition %s to %s: %w", id, to, ErrConcurrentTransition)
	}
	req.Status = to
	req.UpdatedAt = now
	return req, nil
}

func canMove(from, to types.RequisitionStatus) bool {
	for _, next := range requisitionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
