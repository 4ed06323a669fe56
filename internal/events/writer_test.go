package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"crmcore/internal/db"
	"crmcore/internal/docstore"
	"crmcore/internal/domain"
	"crmcore/internal/migrate"
)

func newWriter(t *testing.T) *Writer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Writer{
		Logs: docstore.NewCollection[domain.ActivityLog](conn, CollectionName),
		Now: func() time.Time {
			clock = clock.Add(time.Millisecond)
			return clock
		},
	}
}

func TestAppendAndListNewestFirst(t *testing.T) {
	w := newWriter(t)
	ctx := context.Background()
	_, err := w.Append(ctx, "create", "deal", "d1", "ann", EventPayload{"stageId": "s1"})
	require.NoError(t, err)
	_, err = w.Append(ctx, "moved", "deal", "d1", "bob", nil)
	require.NoError(t, err)
	_, err = w.Append(ctx, "create", "deal", "d2", "ann", nil)
	require.NoError(t, err)

	logs, err := w.List(ctx, "deal", "d1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "moved", logs[0].Action)
	require.Equal(t, "s1", logs[1].Payload["stageId"])
	require.NotNil(t, logs[0].Payload)

	all, err := w.List(ctx, "", "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "d2", all[0].ContentID)
}

func TestTimestampsSortLexically(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(tsLayout)
	b := time.Date(2024, 1, 1, 0, 0, 0, 500000, time.UTC).Format(tsLayout)
	require.Len(t, b, len(a))
	require.Less(t, a, b)
}
