// Package ordering positions pipeline cards inside a stage with fractional order
// values, so a move rewrites only the moved card.
package ordering

import (
	"context"
	"errors"
	"log/slog"

	"crmcore/internal/docstore"
	"crmcore/internal/domain"
)

// Store is the part of a card collection the engine needs.
type Store interface {
	Find(ctx context.Context, f docstore.Filter, opts ...docstore.FindOption) ([]domain.Card, error)
	FindOne(ctx context.Context, f docstore.Filter, opts ...docstore.FindOption) (domain.Card, error)
	Count(ctx context.Context, f docstore.Filter) (int64, error)
	BulkWrite(ctx context.Context, models []docstore.UpdateModel) (int64, error)
}

type Engine struct {
	Store   Store
	Spacing Spacing
	// ArchivedStatus cards are ignored when looking up the next neighbour.
	ArchivedStatus string
	Logger         *slog.Logger
}

func New(store Store) Engine {
	return Engine{
		Store:          store,
		Spacing:        DefaultSpacing,
		ArchivedStatus: domain.StatusArchived,
		Logger:         slog.Default(),
	}
}

func (e Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e Engine) spacing() Spacing {
	if e.Spacing == (Spacing{}) {
		return DefaultSpacing
	}
	return e.Spacing
}

// ComputeInsertOrder returns the order for a card placed right after afterItemID in
// stageID, or at the head of the stage when afterItemID is empty. It does not write.
//
// Concurrent callers targeting the same position can receive the same value.
func (e Engine) ComputeInsertOrder(ctx context.Context, stageID, afterItemID string) (float64, error) {
	var prev, next Neighbour
	filters := []docstore.Filter{docstore.Eq("stageId", stageID)}
	if e.ArchivedStatus != "" {
		filters = append(filters, docstore.Ne("status", e.ArchivedStatus))
	}
	if afterItemID != "" {
		above, err := e.Store.FindOne(ctx, docstore.ByID(afterItemID))
		if err != nil {
			return 0, err
		}
		prev = Neighbour{Order: above.Order, Ok: true}
		filters = append(filters, docstore.Gt("order", above.Order))
	}
	below, err := e.Store.FindOne(ctx, docstore.And(filters...), docstore.SortBy("order", false))
	switch {
	case err == nil:
		next = Neighbour{Order: below.Order, Ok: true}
	case !errors.Is(err, docstore.ErrNotFound):
		return 0, err
	}

	order, err := e.spacing().Between(prev, next)
	if err != nil {
		return 0, err
	}
	if (prev.Ok && order <= prev.Order) || (next.Ok && order >= next.Order) {
		e.logger().Warn("order precision exhausted",
			"stage_id", stageID, "after_item_id", afterItemID,
			"prev", prev.Order, "next", next.Order, "order", order)
	}
	return order, nil
}

// DefaultOrder is the append-to-end order used when a card is created without a
// position: the number of cards already in the stage.
func (e Engine) DefaultOrder(ctx context.Context, stageID string) (float64, error) {
	n, err := e.Store.Count(ctx, docstore.Eq("stageId", stageID))
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}

// CommitOrders writes every explicit order in one batch and returns the affected
// cards sorted by order. When stageID is set the read-back is limited to that stage.
// A failed batch is returned as is; nothing is retried.
func (e Engine) CommitOrders(ctx context.Context, items []domain.OrderItem, stageID string) ([]domain.Card, error) {
	if len(items) == 0 {
		return []domain.Card{}, nil
	}
	ids := make([]string, 0, len(items))
	models := make([]docstore.UpdateModel, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
		models = append(models, docstore.UpdateModel{
			Filter: docstore.ByID(it.ID),
			Set:    docstore.Set{"order": it.Order},
		})
	}
	if _, err := e.Store.BulkWrite(ctx, models); err != nil {
		return nil, err
	}
	filter := docstore.In("_id", ids)
	if stageID != "" {
		filter = docstore.And(filter, docstore.Eq("stageId", stageID))
	}
	return e.Store.Find(ctx, filter, docstore.SortBy("order", false))
}
