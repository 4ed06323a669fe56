package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"crmcore/internal/db"
	"crmcore/internal/docstore"
	"crmcore/internal/migrate"
)

type note struct {
	ID     string   `json:"_id"`
	Stage  string   `json:"stageId"`
	Order  float64  `json:"order"`
	Pinned bool     `json:"pinned,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

func newNotes(t *testing.T) docstore.Collection[note] {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return docstore.NewCollection[note](conn, "notes")
}

func ids(docs []note) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestFindFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	c := newNotes(t)
	require.NoError(t, c.InsertMany(ctx, []note{
		{ID: "a", Stage: "s1", Order: 3},
		{ID: "b", Stage: "s1", Order: 1.5},
		{ID: "c", Stage: "s2", Order: 2},
		{ID: "d", Stage: "s1", Order: 10, Pinned: true},
	}))

	got, err := c.Find(ctx, docstore.Eq("stageId", "s1"), docstore.SortBy("order", false))
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a", "d"}, ids(got))

	got, err = c.Find(ctx, docstore.And(docstore.Eq("stageId", "s1"), docstore.Gt("order", 1.5)), docstore.SortBy("order", true))
	require.NoError(t, err)
	require.Equal(t, []string{"d", "a"}, ids(got))

	got, err = c.Find(ctx, docstore.Or(docstore.Eq("stageId", "s2"), docstore.Eq("pinned", true)))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"c", "d"}, ids(got))

	got, err = c.Find(ctx, docstore.Ne("pinned", true))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b", "c"}, ids(got))

	got, err = c.Find(ctx, docstore.In("_id", []string{"a", "c", "zz"}))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "c"}, ids(got))

	got, err = c.Find(ctx, docstore.In("_id", []string{}))
	require.NoError(t, err)
	require.Empty(t, got)

	n, err := c.Count(ctx, docstore.Lt("order", 3))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestFindOneNotFound(t *testing.T) {
	c := newNotes(t)
	_, err := c.FindOne(context.Background(), docstore.ByID("missing"))
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	c := newNotes(t)
	require.NoError(t, c.InsertMany(ctx, []note{
		{ID: "a", Stage: "s1", Order: 1},
		{ID: "b", Stage: "s1", Order: 2},
		{ID: "c", Stage: "s2", Order: 3},
	}))

	n, err := c.UpdateOne(ctx, docstore.ByID("a"), docstore.Set{"order": 7.25, "tags": []string{"x"}})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	a, err := c.FindOne(ctx, docstore.ByID("a"))
	require.NoError(t, err)
	require.Equal(t, 7.25, a.Order)
	require.Equal(t, []string{"x"}, a.Tags)

	n, err = c.UpdateMany(ctx, docstore.Eq("stageId", "s1"), docstore.Set{"stageId": "s3"})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = c.BulkWrite(ctx, []docstore.UpdateModel{
		{Filter: docstore.ByID("b"), Set: docstore.Set{"order": 0.5}},
		{Filter: docstore.ByID("nope"), Set: docstore.Set{"order": 9}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := c.Find(ctx, docstore.Eq("stageId", "s3"), docstore.SortBy("order", false))
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, ids(got))

	_, err = c.UpdateOne(ctx, docstore.ByID("a"), docstore.Set{"_id": "z"})
	require.Error(t, err)

	n, err = c.DeleteMany(ctx, docstore.Eq("stageId", "s3"))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	n, err = c.DeleteMany(ctx, docstore.Eq("stageId", "s3"))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestInvalidFieldRejected(t *testing.T) {
	c := newNotes(t)
	_, err := c.Find(context.Background(), docstore.Eq("order') OR 1=1 --", 1))
	require.Error(t, err)
}

func TestInsertRequiresID(t *testing.T) {
	c := newNotes(t)
	require.Error(t, c.InsertOne(context.Background(), note{Stage: "s1"}))
}
