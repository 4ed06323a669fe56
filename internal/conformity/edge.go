package conformity

import (
	"crmcore/internal/docstore"
	"crmcore/internal/domain"
)

// Endpoint is one typed side of a link, e.g. {"customer", "c1"}.
type Endpoint struct {
	Type string
	ID   string
}

// Edge is the undirected view of a stored conformity. A and B keep the stored
// main/rel positions but no method depends on which side is which.
type Edge struct {
	A Endpoint
	B Endpoint
}

func EdgeOf(c domain.Conformity) Edge {
	return Edge{
		A: Endpoint{Type: c.MainType, ID: c.MainTypeID},
		B: Endpoint{Type: c.RelType, ID: c.RelTypeID},
	}
}

// Counterparts returns the far ends of e whose type is relType, seen from any
// endpoint accepted by near. Both orientations are checked, so an edge between
// two near endpoints yields both of them.
func (e Edge) Counterparts(near func(Endpoint) bool, relType string) []Endpoint {
	var out []Endpoint
	if near(e.A) && e.B.Type == relType {
		out = append(out, e.B)
	}
	if near(e.B) && e.A.Type == relType {
		out = append(out, e.A)
	}
	return out
}

// Neighbours returns the far ends of e seen from p, whatever their type.
func (e Edge) Neighbours(p Endpoint) []Endpoint {
	var out []Endpoint
	if e.A == p {
		out = append(out, e.B)
	}
	if e.B == p {
		out = append(out, e.A)
	}
	return out
}

// touching matches edges with one end of type typ whose id is in ids and the
// other end of type relType. An empty relType leaves the far end unconstrained.
func touching(typ string, ids []string, relType string) docstore.Filter {
	forward := []docstore.Filter{docstore.Eq("mainType", typ), docstore.In("mainTypeId", ids)}
	backward := []docstore.Filter{docstore.Eq("relType", typ), docstore.In("relTypeId", ids)}
	if relType != "" {
		forward = append(forward, docstore.Eq("relType", relType))
		backward = append(backward, docstore.Eq("mainType", relType))
	}
	return docstore.Or(docstore.And(forward...), docstore.And(backward...))
}

// between matches edges joining p with any relType endpoint listed in relIDs.
func between(p Endpoint, relType string, relIDs []string) docstore.Filter {
	return docstore.Or(
		docstore.And(
			docstore.Eq("mainType", p.Type), docstore.Eq("mainTypeId", p.ID),
			docstore.Eq("relType", relType), docstore.In("relTypeId", relIDs),
		),
		docstore.And(
			docstore.Eq("relType", p.Type), docstore.Eq("relTypeId", p.ID),
			docstore.Eq("mainType", relType), docstore.In("mainTypeId", relIDs),
		),
	)
}

// anyOf matches edges where either end is one of the endpoints and the other end has type relType.
func anyOf(endpoints []Endpoint, relType string) docstore.Filter {
	byType := map[string][]string{}
	var types []string
	for _, p := range endpoints {
		if _, ok := byType[p.Type]; !ok {
			types = append(types, p.Type)
		}
		byType[p.Type] = append(byType[p.Type], p.ID)
	}
	filters := make([]docstore.Filter, 0, len(types))
	for _, typ := range types {
		filters = append(filters, touching(typ, byType[typ], relType))
	}
	return docstore.Or(filters...)
}

type idSet struct {
	seen map[string]struct{}
	list []string
}

func newIDSet() *idSet { return &idSet{seen: map[string]struct{}{}, list: []string{}} }

func (s *idSet) add(id string) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.list = append(s.list, id)
}

func (s *idSet) has(id string) bool {
	_, ok := s.seen[id]
	return ok
}
