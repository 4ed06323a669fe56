// Package conformity keeps the typed many-to-many links between CRM entities
// (deal to customer, customer to company, ...). Links are stored with a main and
// a rel side, and every query matches both orientations.
package conformity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"crmcore/internal/docstore"
	"crmcore/internal/domain"
)

const CollectionName = "conformities"

// Collection is the part of the conformities collection the store needs.
type Collection interface {
	Find(ctx context.Context, f docstore.Filter, opts ...docstore.FindOption) ([]domain.Conformity, error)
	InsertMany(ctx context.Context, docs []domain.Conformity) error
	UpdateMany(ctx context.Context, f docstore.Filter, set docstore.Set) (int64, error)
	DeleteMany(ctx context.Context, f docstore.Filter) (int64, error)
}

type Store struct {
	Collection Collection
	Registry   Registry
	Now        func() time.Time
}

func New(c Collection, registry Registry) Store {
	return Store{Collection: c, Registry: registry, Now: time.Now}
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type AddInput struct {
	MainType   string
	MainTypeID string
	RelType    string
	RelTypeID  string
	Content    string
	EditAble   bool
	CreatedBy  string
}

func (s Store) newEdge(in AddInput) domain.Conformity {
	return domain.Conformity{
		ID:         uuid.NewString(),
		MainType:   in.MainType,
		MainTypeID: in.MainTypeID,
		RelType:    in.RelType,
		RelTypeID:  in.RelTypeID,
		Content:    in.Content,
		EditAble:   in.EditAble,
		CreatedBy:  in.CreatedBy,
		CreatedAt:  s.now().UTC().Format(time.RFC3339),
	}
}

// Add stores exactly one edge as given. Duplicates are not checked.
func (s Store) Add(ctx context.Context, in AddInput) (domain.Conformity, error) {
	c := s.newEdge(in)
	if err := s.Collection.InsertMany(ctx, []domain.Conformity{c}); err != nil {
		return domain.Conformity{}, err
	}
	return c, nil
}

// Saved returns the ids of relType entities linked to (mainType, mainTypeID).
func (s Store) Saved(ctx context.Context, mainType, mainTypeID, relType string) ([]string, error) {
	return s.Filter(ctx, mainType, []string{mainTypeID}, relType)
}

// Filter returns the ids of relType entities linked to any of the given main ids.
func (s Store) Filter(ctx context.Context, mainType string, mainTypeIDs []string, relType string) ([]string, error) {
	if len(mainTypeIDs) == 0 {
		return []string{}, nil
	}
	docs, err := s.Collection.Find(ctx, touching(mainType, mainTypeIDs, relType))
	if err != nil {
		return nil, err
	}
	mains := newIDSet()
	for _, id := range mainTypeIDs {
		mains.add(id)
	}
	near := func(p Endpoint) bool { return p.Type == mainType && mains.has(p.ID) }
	out := newIDSet()
	for _, doc := range docs {
		for _, p := range EdgeOf(doc).Counterparts(near, relType) {
			out.add(p.ID)
		}
	}
	return out.list, nil
}

// Related walks two hops: every entity linked to (mainType, mainTypeID), then the
// relType entities linked to those. It answers "deals of the companies of this
// customer" in two queries.
func (s Store) Related(ctx context.Context, mainType, mainTypeID, relType string) ([]string, error) {
	start := Endpoint{Type: mainType, ID: mainTypeID}
	docs, err := s.Collection.Find(ctx, touching(mainType, []string{mainTypeID}, ""))
	if err != nil {
		return nil, err
	}
	saved := map[Endpoint]struct{}{}
	var hops []Endpoint
	for _, doc := range docs {
		for _, p := range EdgeOf(doc).Neighbours(start) {
			if _, ok := saved[p]; ok {
				continue
			}
			saved[p] = struct{}{}
			hops = append(hops, p)
		}
	}
	if len(hops) == 0 {
		return []string{}, nil
	}
	docs, err = s.Collection.Find(ctx, anyOf(hops, relType))
	if err != nil {
		return nil, err
	}
	near := func(p Endpoint) bool {
		_, ok := saved[p]
		return ok
	}
	out := newIDSet()
	for _, doc := range docs {
		for _, p := range EdgeOf(doc).Counterparts(near, relType) {
			out.add(p.ID)
		}
	}
	return out.list, nil
}

// Edit makes the relType links of (mainType, mainTypeID) exactly relTypeIDs and
// returns the main entity as loaded through the registry.
func (s Store) Edit(ctx context.Context, mainType, mainTypeID, relType string, relTypeIDs []string) (any, error) {
	oldIDs, err := s.Saved(ctx, mainType, mainTypeID, relType)
	if err != nil {
		return nil, err
	}
	old := newIDSet()
	for _, id := range oldIDs {
		old.add(id)
	}
	wanted := newIDSet()
	for _, id := range relTypeIDs {
		wanted.add(id)
	}

	var added []domain.Conformity
	for _, id := range wanted.list {
		if old.has(id) {
			continue
		}
		added = append(added, s.newEdge(AddInput{MainType: mainType, MainTypeID: mainTypeID, RelType: relType, RelTypeID: id}))
	}
	var removed []string
	for _, id := range old.list {
		if !wanted.has(id) {
			removed = append(removed, id)
		}
	}

	if err := s.Collection.InsertMany(ctx, added); err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		main := Endpoint{Type: mainType, ID: mainTypeID}
		if _, err := s.Collection.DeleteMany(ctx, between(main, relType, removed)); err != nil {
			return nil, err
		}
	}
	return s.Registry.Fetch(ctx, mainType, mainTypeID)
}

// Change repoints every edge that references one of oldTypeIDs of typ, on either
// side, to newTypeID. Used after entities are merged.
func (s Store) Change(ctx context.Context, typ string, oldTypeIDs []string, newTypeID string) error {
	if len(oldTypeIDs) == 0 {
		return nil
	}
	if _, err := s.Collection.UpdateMany(ctx,
		docstore.And(docstore.Eq("mainType", typ), docstore.In("mainTypeId", oldTypeIDs)),
		docstore.Set{"mainTypeId": newTypeID},
	); err != nil {
		return err
	}
	_, err := s.Collection.UpdateMany(ctx,
		docstore.And(docstore.Eq("relType", typ), docstore.In("relTypeId", oldTypeIDs)),
		docstore.Set{"relTypeId": newTypeID},
	)
	return err
}

// Remove deletes every edge touching (mainType, mainTypeID). Removing nothing is not an error.
func (s Store) Remove(ctx context.Context, mainType, mainTypeID string) error {
	_, err := s.Collection.DeleteMany(ctx, touching(mainType, []string{mainTypeID}, ""))
	return err
}
