package crmsdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"crmcore/internal/config"
	"crmcore/internal/db"
	"crmcore/internal/engine"
	"crmcore/internal/migrate"
	"crmcore/internal/server"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	handler, err := server.New(server.Config{Engine: engine.New(conn, config.Default(), nil)})
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL, "sdk-user")
}

func TestClientBoardRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	order, err := c.InsertOrder(ctx, "ticket", "open", "")
	require.NoError(t, err)
	require.Equal(t, 100.0, order)

	first, err := c.CreateCard(ctx, "ticket", CreateCardInput{Name: "login broken", StageID: "open"})
	require.NoError(t, err)
	second, err := c.CreateCard(ctx, "ticket", CreateCardInput{Name: "slow search", StageID: "open"})
	require.NoError(t, err)

	_, err = c.MoveCard(ctx, "ticket", second.ID, "", "")
	require.NoError(t, err)
	cards, err := c.Cards(ctx, "ticket", "open", false)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	require.Equal(t, second.ID, cards[0].ID)

	committed, err := c.CommitOrders(ctx, "ticket", "open", []OrderItem{{ID: first.ID, Order: 1}, {ID: second.ID, Order: 2}})
	require.NoError(t, err)
	require.Equal(t, first.ID, committed[0].ID)
}

func TestClientLinks(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	card, err := c.CreateCard(ctx, "deal", CreateCardInput{Name: "renewal", StageID: "s", Links: map[string][]string{"company": {"co1"}}})
	require.NoError(t, err)

	var edited Card
	require.NoError(t, c.EditLinks(ctx, "deal", card.ID, "customer", []string{"cu1"}, &edited))
	require.Equal(t, card.ID, edited.ID)

	ids, err := c.SavedLinks(ctx, "customer", "cu1", "deal")
	require.NoError(t, err)
	require.Equal(t, []string{card.ID}, ids)
	ids, err = c.RelatedLinks(ctx, "customer", "cu1", "company")
	require.NoError(t, err)
	require.Equal(t, []string{"co1"}, ids)
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	c := newTestClient(t)
	_, err := c.MoveCard(context.Background(), "deal", "ghost", "", "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
