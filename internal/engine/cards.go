package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"crmcore/internal/docstore"
	"crmcore/internal/domain"
	"crmcore/internal/events"
)

// CardCreateOptions are parameters for creating a card.
type CardCreateOptions struct {
	ID          string
	Type        string
	Name        string
	Description string
	StageID     string
	// AboveItemID places the card right after that card instead of appending.
	AboveItemID string
	AssignedTo  []string
	// Links maps a related type to the ids the new card gets linked with.
	Links   map[string][]string
	ActorID string
}

func (e Engine) CreateCard(ctx context.Context, opts CardCreateOptions) (domain.Card, error) {
	if opts.Name == "" {
		return domain.Card{}, errors.New("name is required")
	}
	if opts.StageID == "" {
		return domain.Card{}, errors.New("stage id is required")
	}
	coll, err := e.cardCollection(opts.Type)
	if err != nil {
		return domain.Card{}, err
	}
	oe, err := e.Ordering(opts.Type)
	if err != nil {
		return domain.Card{}, err
	}
	var order float64
	if opts.AboveItemID != "" {
		order, err = oe.ComputeInsertOrder(ctx, opts.StageID, opts.AboveItemID)
	} else {
		order, err = oe.DefaultOrder(ctx, opts.StageID)
	}
	if err != nil {
		return domain.Card{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := e.timestamp()
	card := domain.Card{
		ID:          id,
		Type:        opts.Type,
		Name:        opts.Name,
		Description: opts.Description,
		StageID:     opts.StageID,
		Order:       order,
		Status:      domain.StatusActive,
		AssignedTo:  opts.AssignedTo,
		CreatedAt:   now,
		UpdatedAt:   now,
		ModifiedBy:  opts.ActorID,
	}
	relTypes := make([]string, 0, len(opts.Links))
	for relType := range opts.Links {
		if _, ok := e.Conformity.Registry[relType]; !ok {
			return domain.Card{}, fmt.Errorf("link %s: %w", relType, ErrUnknownType)
		}
		relTypes = append(relTypes, relType)
	}
	sort.Strings(relTypes)
	if err := coll.InsertOne(ctx, card); err != nil {
		return domain.Card{}, err
	}
	for _, relType := range relTypes {
		if _, err := e.Conformity.Edit(ctx, card.Type, card.ID, relType, opts.Links[relType]); err != nil {
			e.discardCard(coll, card)
			return domain.Card{}, fmt.Errorf("link %s: %w", relType, err)
		}
	}
	if _, err := e.activityLog().Append(ctx, "create", card.Type, card.ID, opts.ActorID, events.EventPayload{
		"stageId": card.StageID,
		"order":   card.Order,
	}); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

// discardCard undoes a half-created card and whatever links it already got.
func (e Engine) discardCard(coll docstore.Collection[domain.Card], card domain.Card) {
	ctx := context.Background()
	if err := e.Conformity.Remove(ctx, card.Type, card.ID); err != nil {
		e.Logger.Warn("discard card links", "card_type", card.Type, "id", card.ID, "err", err)
	}
	if _, err := coll.DeleteMany(ctx, docstore.ByID(card.ID)); err != nil {
		e.Logger.Warn("discard card", "card_type", card.Type, "id", card.ID, "err", err)
	}
}

func (e Engine) GetCard(ctx context.Context, typ, id string) (domain.Card, error) {
	coll, err := e.cardCollection(typ)
	if err != nil {
		return domain.Card{}, err
	}
	return coll.FindOne(ctx, docstore.ByID(id))
}

// ListCards returns the cards of a stage in board order.
func (e Engine) ListCards(ctx context.Context, typ, stageID string, includeArchived bool) ([]domain.Card, error) {
	coll, err := e.cardCollection(typ)
	if err != nil {
		return nil, err
	}
	filters := []docstore.Filter{docstore.Eq("stageId", stageID)}
	if !includeArchived {
		filters = append(filters, docstore.Ne("status", e.Config.Pipeline.ArchivedStatus))
	}
	return coll.Find(ctx, docstore.And(filters...), docstore.SortBy("order", false))
}

// CardMoveOptions describe a drag-and-drop of one card.
type CardMoveOptions struct {
	Type string
	ID   string
	// StageID is the destination stage; empty keeps the current one.
	StageID     string
	AboveItemID string
	ActorID     string
}

// MoveCard repositions a card within its stage or into another one. Only the
// moved card is written.
func (e Engine) MoveCard(ctx context.Context, opts CardMoveOptions) (domain.Card, error) {
	if opts.AboveItemID != "" && opts.AboveItemID == opts.ID {
		return domain.Card{}, errors.New("invalid position: card cannot follow itself")
	}
	coll, err := e.cardCollection(opts.Type)
	if err != nil {
		return domain.Card{}, err
	}
	card, err := coll.FindOne(ctx, docstore.ByID(opts.ID))
	if err != nil {
		return domain.Card{}, err
	}
	oldStage := card.StageID
	if opts.StageID != "" {
		card.StageID = opts.StageID
	}
	oe, err := e.Ordering(opts.Type)
	if err != nil {
		return domain.Card{}, err
	}
	order, err := oe.ComputeInsertOrder(ctx, card.StageID, opts.AboveItemID)
	if err != nil {
		return domain.Card{}, err
	}
	card.Order = order
	card.UpdatedAt = e.timestamp()
	card.ModifiedBy = opts.ActorID
	if _, err := coll.UpdateOne(ctx, docstore.ByID(card.ID), docstore.Set{
		"stageId":    card.StageID,
		"order":      card.Order,
		"updatedAt":  card.UpdatedAt,
		"modifiedBy": card.ModifiedBy,
	}); err != nil {
		return domain.Card{}, err
	}
	payload := events.EventPayload{"order": order}
	action := "reorder"
	if oldStage != card.StageID {
		action = "moved"
		payload["oldStageId"] = oldStage
		payload["destinationStageId"] = card.StageID
	}
	if _, err := e.activityLog().Append(ctx, action, card.Type, card.ID, opts.ActorID, payload); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

// ReorderCards commits explicit orders for a stage, e.g. after a full-column reorder.
func (e Engine) ReorderCards(ctx context.Context, typ, stageID string, items []domain.OrderItem) ([]domain.Card, error) {
	oe, err := e.Ordering(typ)
	if err != nil {
		return nil, err
	}
	return oe.CommitOrders(ctx, items, stageID)
}

func (e Engine) ArchiveCard(ctx context.Context, typ, id, actorID string) (domain.Card, error) {
	coll, err := e.cardCollection(typ)
	if err != nil {
		return domain.Card{}, err
	}
	card, err := coll.FindOne(ctx, docstore.ByID(id))
	if err != nil {
		return domain.Card{}, err
	}
	card.Status = e.Config.Pipeline.ArchivedStatus
	card.UpdatedAt = e.timestamp()
	card.ModifiedBy = actorID
	if _, err := coll.UpdateOne(ctx, docstore.ByID(id), docstore.Set{
		"status":     card.Status,
		"updatedAt":  card.UpdatedAt,
		"modifiedBy": card.ModifiedBy,
	}); err != nil {
		return domain.Card{}, err
	}
	if _, err := e.activityLog().Append(ctx, "archive", typ, id, actorID, nil); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

// RemoveCard deletes a card together with every link touching it.
func (e Engine) RemoveCard(ctx context.Context, typ, id, actorID string) error {
	coll, err := e.cardCollection(typ)
	if err != nil {
		return err
	}
	card, err := coll.FindOne(ctx, docstore.ByID(id))
	if err != nil {
		return err
	}
	if err := e.Conformity.Remove(ctx, typ, id); err != nil {
		return err
	}
	if _, err := coll.DeleteMany(ctx, docstore.ByID(id)); err != nil {
		return err
	}
	_, err = e.activityLog().Append(ctx, "delete", typ, id, actorID, events.EventPayload{"name": card.Name, "stageId": card.StageID})
	return err
}
