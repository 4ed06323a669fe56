package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"crmcore/internal/docstore"
	"crmcore/internal/domain"
	"crmcore/internal/events"
)

type ContactCreateOptions struct {
	ID      string
	Type    string
	Name    string
	Emails  []string
	ActorID string
}

func (e Engine) CreateContact(ctx context.Context, opts ContactCreateOptions) (domain.Contact, error) {
	if opts.Name == "" {
		return domain.Contact{}, errors.New("name is required")
	}
	coll, err := e.contactCollection(opts.Type)
	if err != nil {
		return domain.Contact{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	c := domain.Contact{
		ID:        id,
		Type:      opts.Type,
		Name:      opts.Name,
		Emails:    opts.Emails,
		CreatedAt: e.timestamp(),
	}
	if err := coll.InsertOne(ctx, c); err != nil {
		return domain.Contact{}, err
	}
	if _, err := e.activityLog().Append(ctx, "create", c.Type, c.ID, opts.ActorID, events.EventPayload{"name": c.Name}); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

func (e Engine) GetContact(ctx context.Context, typ, id string) (domain.Contact, error) {
	coll, err := e.contactCollection(typ)
	if err != nil {
		return domain.Contact{}, err
	}
	return coll.FindOne(ctx, docstore.ByID(id))
}

// MergeContacts folds several contacts of one type into a new record. Links of the
// merged records move to the new one and the old records are deleted.
func (e Engine) MergeContacts(ctx context.Context, typ string, ids []string, name, actorID string) (domain.Contact, error) {
	ids = unique(ids)
	if len(ids) < 2 {
		return domain.Contact{}, errors.New("at least two contacts are required to merge")
	}
	coll, err := e.contactCollection(typ)
	if err != nil {
		return domain.Contact{}, err
	}
	olds, err := coll.Find(ctx, docstore.In("_id", ids))
	if err != nil {
		return domain.Contact{}, err
	}
	if len(olds) != len(ids) {
		return domain.Contact{}, fmt.Errorf("merge %s: %w", typ, docstore.ErrNotFound)
	}
	byID := make(map[string]domain.Contact, len(olds))
	for _, c := range olds {
		byID[c.ID] = c
	}
	var emails []string
	seen := map[string]bool{}
	for _, id := range ids {
		c := byID[id]
		if name == "" {
			name = c.Name
		}
		for _, em := range c.Emails {
			if !seen[em] {
				seen[em] = true
				emails = append(emails, em)
			}
		}
	}
	merged := domain.Contact{
		ID:        uuid.NewString(),
		Type:      typ,
		Name:      name,
		Emails:    emails,
		MergedIDs: ids,
		CreatedAt: e.timestamp(),
	}
	if err := coll.InsertOne(ctx, merged); err != nil {
		return domain.Contact{}, err
	}
	if err := e.Conformity.Change(ctx, typ, ids, merged.ID); err != nil {
		return domain.Contact{}, err
	}
	if _, err := coll.DeleteMany(ctx, docstore.In("_id", ids)); err != nil {
		return domain.Contact{}, err
	}
	if _, err := e.activityLog().Append(ctx, "merge", typ, merged.ID, actorID, events.EventPayload{"mergedIds": ids}); err != nil {
		return domain.Contact{}, err
	}
	return merged, nil
}

func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
