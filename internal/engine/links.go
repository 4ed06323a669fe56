package engine

import (
	"context"

	"crmcore/internal/events"
)

// EditLinks syncs the relType links of one entity and logs the change. The
// returned value is the entity itself, loaded through the registry.
func (e Engine) EditLinks(ctx context.Context, mainType, mainTypeID, relType string, relTypeIDs []string, actorID string) (any, error) {
	before, err := e.Conformity.Saved(ctx, mainType, mainTypeID, relType)
	if err != nil {
		return nil, err
	}
	entity, err := e.Conformity.Edit(ctx, mainType, mainTypeID, relType, relTypeIDs)
	if err != nil {
		return nil, err
	}
	if _, err := e.activityLog().Append(ctx, "conformity.edit", mainType, mainTypeID, actorID, events.EventPayload{
		"relType": relType,
		"before":  before,
		"after":   relTypeIDs,
	}); err != nil {
		return nil, err
	}
	return entity, nil
}
