package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"crmcore/internal/config"
	"crmcore/internal/db"
	"crmcore/internal/domain"
	"crmcore/internal/engine"
	"crmcore/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	_, err := db.EnsureWorkspace(workspace)
	require.NoError(t, err)
	conn, err := db.Open(db.Config{Workspace: workspace})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(conn))
	e := engine.New(conn, config.Default(), nil)
	handler, err := New(Config{Engine: e, BasePath: "/v0"})
	require.NoError(t, err)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(testSrv.Close)
	return testSrv
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", "tester")
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func (s *testServer) createCard(t *testing.T, id, stage, above string) domain.Card {
	t.Helper()
	res, data := doJSON(t, s.Client(), http.MethodPost, s.URL+"/v0/cards/deal", map[string]any{
		"id":            id,
		"name":          "deal " + id,
		"stage_id":      stage,
		"above_item_id": above,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	return decode[domain.Card](t, data)
}

func TestCardLifecycle(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	srv.createCard(t, "a", "lead", "")
	srv.createCard(t, "b", "lead", "")
	mid := srv.createCard(t, "m", "lead", "a")
	require.Equal(t, 0.5, mid.Order)

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/cards/deal?stage_id=lead", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	list := decode[CardListResponse](t, data)
	require.Len(t, list.Items, 3)
	require.Equal(t, "m", list.Items[1].ID)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/cards/deal/b/move", map[string]any{"stage_id": "won"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	moved := decode[domain.Card](t, data)
	require.Equal(t, "won", moved.StageID)
	require.Equal(t, 100.0, moved.Order)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/cards/deal/a/archive", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Equal(t, domain.StatusArchived, decode[domain.Card](t, data).Status)

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/cards/deal/m", nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/cards/deal/m", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Contains(t, string(data), `"code":"not_found"`)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/activity?content_type=deal&content_id=b", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	logs := decode[ActivityListResponse](t, data)
	require.Len(t, logs.Items, 2)
	require.Equal(t, "tester", logs.Items[0].CreatedBy)
}

func TestOrderEndpoints(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/orders/insert", map[string]any{"type": "deal", "stage_id": "empty"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Equal(t, 100.0, decode[OrderResponse](t, data).Order)

	srv.createCard(t, "a", "s", "")
	srv.createCard(t, "b", "s", "")
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/orders/insert", map[string]any{"type": "deal", "stage_id": "s", "after_item_id": "b"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Equal(t, 11.0, decode[OrderResponse](t, data).Order)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/orders/insert", map[string]any{"type": "deal", "stage_id": "s", "after_item_id": "ghost"})
	require.Equal(t, http.StatusNotFound, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/cards/deal/stages/s/orders", map[string]any{
		"items": []map[string]any{{"_id": "a", "order": 7}, {"_id": "b", "order": 3}},
	})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	list := decode[CardListResponse](t, data)
	require.Len(t, list.Items, 2)
	require.Equal(t, "b", list.Items[0].ID)
	require.Equal(t, 3.0, list.Items[0].Order)

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/cards/deal/stages/s/orders", map[string]any{"items": []any{}})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Empty(t, decode[CardListResponse](t, data).Items)
}

func TestUnknownTypeIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/cards/boat", map[string]any{"name": "x", "stage_id": "s"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))
	require.Contains(t, string(data), `"code":"unknown_type"`)
}

func TestConformityEndpoints(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	srv.createCard(t, "d1", "s", "")

	res, data := doJSON(t, client, http.MethodPut, srv.URL+"/v0/conformities/edit", map[string]any{
		"main_type": "deal", "main_type_id": "d1", "rel_type": "customer", "rel_type_ids": []string{"c1", "c2"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Equal(t, "d1", decode[domain.Card](t, data).ID)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/conformities", map[string]any{
		"main_type": "company", "main_type_id": "co1", "rel_type": "customer", "rel_type_id": "c1",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/conformities/saved?main_type=customer&main_type_id=c1&rel_type=deal", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Equal(t, []string{"d1"}, decode[IDListResponse](t, data).IDs)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/conformities/related?main_type=deal&main_type_id=d1&rel_type=company", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Equal(t, []string{"co1"}, decode[IDListResponse](t, data).IDs)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/conformities/filter", map[string]any{
		"main_type": "customer", "main_type_ids": []string{"c1", "c2"}, "rel_type": "deal",
	})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Equal(t, []string{"d1"}, decode[IDListResponse](t, data).IDs)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/conformities/change", map[string]any{
		"type": "customer", "old_type_ids": []string{"c1", "c2"}, "new_type_id": "c3",
	})
	require.Equal(t, http.StatusNoContent, res.StatusCode, string(data))
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/conformities/saved?main_type=deal&main_type_id=d1&rel_type=customer", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Equal(t, []string{"c3"}, decode[IDListResponse](t, data).IDs)

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/conformities?main_type=deal&main_type_id=d1", nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/conformities/saved?main_type=customer&main_type_id=c3&rel_type=deal", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Empty(t, decode[IDListResponse](t, data).IDs)

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/conformities/edit", map[string]any{
		"main_type": "boat", "main_type_id": "x", "rel_type": "customer", "rel_type_ids": []string{},
	})
	require.Equal(t, http.StatusNotFound, res.StatusCode, string(data))
}

func TestMergeContactsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	var ids []string
	for _, name := range []string{"Acme", "ACME Inc"} {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/contacts/company", map[string]any{"name": name})
		require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
		ids = append(ids, decode[domain.Contact](t, data).ID)
	}
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/contacts/company/merge", map[string]any{"ids": ids, "name": "Acme Corp"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	merged := decode[domain.Contact](t, data)
	require.Equal(t, "Acme Corp", merged.Name)
	require.Equal(t, ids, merged.MergedIDs)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/contacts/company/"+merged.ID, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/contacts/company/"+ids[0], nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestTypesAndOpenAPI(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/types", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	types := decode[TypesResponse](t, data)
	require.Contains(t, types.CardTypes, "deal")
	require.Contains(t, types.ContactTypes, "company")
	require.Len(t, types.ConformityTypes, len(types.CardTypes)+len(types.ContactTypes))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/openapi.json", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(data), "compute-insert-order")
	requireErrorSchemaResolves(t, data)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(data), `"status":"ok"`)
}

func requireErrorSchemaResolves(t *testing.T, data []byte) {
	t.Helper()
	var doc struct {
		Paths map[string]map[string]struct {
			Responses map[string]struct {
				Content map[string]struct {
					Schema struct {
						Ref string `json:"$ref"`
					} `json:"schema"`
				} `json:"content"`
			} `json:"responses"`
		} `json:"paths"`
		Components struct {
			Schemas map[string]json.RawMessage `json:"schemas"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.NotEmpty(t, doc.Paths)
	for p, item := range doc.Paths {
		for method, op := range item {
			ref := op.Responses["default"].Content["application/json"].Schema.Ref
			require.NotEmpty(t, ref, "%s %s", method, p)
			name := strings.TrimPrefix(ref, "#/components/schemas/")
			require.Contains(t, doc.Components.Schemas, name, "%s %s", method, p)
		}
	}
}
