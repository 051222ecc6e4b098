package builder

import (
	"context"
	"fmt"

	"docpipe/core/store"

	"go.uber.org/zap"
)

// Copy is the canonical incremental builder: it moves documents from one
// source store to one target store, selecting only documents whose
// last-updated stamp is newer than the newest one already in the target.
type Copy struct {
	Base
	Source store.Store
	Target store.Store
	// Criteria restricts which source documents are considered at all.
	Criteria store.Criteria
}

// NewCopy builds an incremental copy stage from source to target.
func NewCopy(source, target store.Store, criteria store.Criteria, chunkSize int, log *zap.Logger) *Copy {
	return &Copy{
		Base:     NewBase([]store.Store{source}, []store.Store{target}, chunkSize, log),
		Source:   source,
		Target:   target,
		Criteria: criteria,
	}
}

// GetItems selects source documents newer than the target's high-water
// mark. An empty target selects everything.
func (c *Copy) GetItems(ctx context.Context) (store.Cursor, error) {
	since, err := store.LastUpdated(ctx, c.Target)
	if err != nil {
		return nil, fmt.Errorf("target high-water mark: %w", err)
	}

	criteria := store.Criteria{}
	for k, v := range c.Criteria {
		criteria[k] = v
	}
	if !since.IsZero() {
		for k, v := range store.NewerCriteria(c.Source, since) {
			criteria[k] = v
		}
	}

	c.ConfirmIndex(ctx, c.Source, []string{c.Source.LastUpdatedField()})
	c.Log.Info("incremental copy",
		zap.String("source", c.Source.Name()),
		zap.String("target", c.Target.Name()),
		zap.Time("since", since))
	return c.Source.Query(ctx, criteria, nil)
}

// UpdateTargets upserts the processed batch into the target. The items
// keep their source stamps so a rerun does not reselect them.
func (c *Copy) UpdateTargets(ctx context.Context, items []store.Document) error {
	return c.Target.Update(ctx, items, store.UpdateOptions{SkipLastUpdated: true})
}
