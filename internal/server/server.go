package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"crmcore/internal/conformity"
	"crmcore/internal/docstore"
	"crmcore/internal/domain"
	"crmcore/internal/engine"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Logger   *slog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"document not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"type\":\"deal\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the CRM API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the requested envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(requestLogger(logger))
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	hcfg := huma.DefaultConfig("crmcore API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerTypes(group, cfg.Engine)
	registerOrders(group, cfg.Engine)
	registerCards(group, cfg.Engine)
	registerContacts(group, cfg.Engine)
	registerConformities(group, cfg.Engine)
	registerActivity(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	// an unregistered conformity type means the linked entity cannot be found
	if errors.Is(err, conformity.ErrUnknownType) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, engine.ErrUnknownType) {
		return newAPIError(http.StatusBadRequest, "unknown_type", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	errRef := "#/components/schemas/ApiError"
	if oas.Components != nil && oas.Components.Schemas != nil {
		errRef = oas.Components.Schemas.Schema(reflect.TypeOf(apiError{}), true, "ApiError").Ref
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: errRef},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>crmcore API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerTypes(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-types",
		Method:      http.MethodGet,
		Path:        "/types",
		Summary:     "List configured card, contact and conformity types",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body TypesResponse `json:"body"`
	}, error) {
		return &struct {
			Body TypesResponse `json:"body"`
		}{Body: typesResponse(e.Config, e.Conformity.Registry.Types())}, nil
	})
}

func registerOrders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "compute-insert-order",
		Method:      http.MethodPost,
		Path:        "/orders/insert",
		Summary:     "Compute the order of an item dropped after another one",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body InsertOrderRequest `json:"body"`
	}) (*struct {
		Body OrderResponse `json:"body"`
	}, error) {
		order, err := e.ComputeInsertOrder(ctx, input.Body.Type, input.Body.StageID, input.Body.AfterItemID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OrderResponse `json:"body"`
		}{Body: OrderResponse{Order: order}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "commit-orders",
		Method:      http.MethodPut,
		Path:        "/cards/{type}/stages/{stage_id}/orders",
		Summary:     "Persist explicit orders for cards of a stage",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type    string              `path:"type"`
		StageID string              `path:"stage_id"`
		Body    CommitOrdersRequest `json:"body"`
	}) (*struct {
		Body CardListResponse `json:"body"`
	}, error) {
		items, err := e.ReorderCards(ctx, input.Type, input.StageID, input.Body.Items)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CardListResponse `json:"body"`
		}{Body: CardListResponse{Items: nonNilSlice(items)}}, nil
	})
}

func registerCards(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-card",
		Method:        http.MethodPost,
		Path:          "/cards/{type}",
		Summary:       "Create card",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string            `header:"X-Actor-Id"`
		Type    string            `path:"type"`
		Body    CreateCardRequest `json:"body"`
	}) (*struct {
		Body domain.Card `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		card, err := e.CreateCard(ctx, engine.CardCreateOptions{
			ID:          input.Body.ID,
			Type:        input.Type,
			Name:        input.Body.Name,
			Description: input.Body.Description,
			StageID:     input.Body.StageID,
			AboveItemID: input.Body.AboveItemID,
			AssignedTo:  input.Body.AssignedTo,
			Links:       input.Body.Links,
			ActorID:     input.ActorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Card `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cards",
		Method:      http.MethodGet,
		Path:        "/cards/{type}",
		Summary:     "List the cards of a stage in board order",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type            string `path:"type"`
		StageID         string `query:"stage_id" required:"true"`
		IncludeArchived bool   `query:"include_archived"`
	}) (*struct {
		Body CardListResponse `json:"body"`
	}, error) {
		items, err := e.ListCards(ctx, input.Type, input.StageID, input.IncludeArchived)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CardListResponse `json:"body"`
		}{Body: CardListResponse{Items: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-card",
		Method:      http.MethodGet,
		Path:        "/cards/{type}/{id}",
		Summary:     "Get card",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Type string `path:"type"`
		ID   string `path:"id"`
	}) (*struct {
		Body domain.Card `json:"body"`
	}, error) {
		card, err := e.GetCard(ctx, input.Type, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Card `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-card",
		Method:      http.MethodPost,
		Path:        "/cards/{type}/{id}/move",
		Summary:     "Move a card within or across stages",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string          `header:"X-Actor-Id"`
		Type    string          `path:"type"`
		ID      string          `path:"id"`
		Body    MoveCardRequest `json:"body"`
	}) (*struct {
		Body domain.Card `json:"body"`
	}, error) {
		card, err := e.MoveCard(ctx, engine.CardMoveOptions{
			Type:        input.Type,
			ID:          input.ID,
			StageID:     input.Body.StageID,
			AboveItemID: input.Body.AboveItemID,
			ActorID:     input.ActorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Card `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-card",
		Method:      http.MethodPost,
		Path:        "/cards/{type}/{id}/archive",
		Summary:     "Archive card",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string `header:"X-Actor-Id"`
		Type    string `path:"type"`
		ID      string `path:"id"`
	}) (*struct {
		Body domain.Card `json:"body"`
	}, error) {
		card, err := e.ArchiveCard(ctx, input.Type, input.ID, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Card `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-card",
		Method:        http.MethodDelete,
		Path:          "/cards/{type}/{id}",
		Summary:       "Delete card and its links",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string `header:"X-Actor-Id"`
		Type    string `path:"type"`
		ID      string `path:"id"`
	}) (*struct{}, error) {
		if err := e.RemoveCard(ctx, input.Type, input.ID, input.ActorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerContacts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-contact",
		Method:        http.MethodPost,
		Path:          "/contacts/{type}",
		Summary:       "Create contact",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ActorID string               `header:"X-Actor-Id"`
		Type    string               `path:"type"`
		Body    CreateContactRequest `json:"body"`
	}) (*struct {
		Body domain.Contact `json:"body"`
	}, error) {
		c, err := e.CreateContact(ctx, engine.ContactCreateOptions{
			ID:      input.Body.ID,
			Type:    input.Type,
			Name:    input.Body.Name,
			Emails:  input.Body.Emails,
			ActorID: input.ActorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contact `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-contact",
		Method:      http.MethodGet,
		Path:        "/contacts/{type}/{id}",
		Summary:     "Get contact",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Type string `path:"type"`
		ID   string `path:"id"`
	}) (*struct {
		Body domain.Contact `json:"body"`
	}, error) {
		c, err := e.GetContact(ctx, input.Type, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contact `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "merge-contacts",
		Method:      http.MethodPost,
		Path:        "/contacts/{type}/merge",
		Summary:     "Merge contacts into a new record",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string               `header:"X-Actor-Id"`
		Type    string               `path:"type"`
		Body    MergeContactsRequest `json:"body"`
	}) (*struct {
		Body domain.Contact `json:"body"`
	}, error) {
		c, err := e.MergeContacts(ctx, input.Type, input.Body.IDs, input.Body.Name, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contact `json:"body"`
		}{Body: c}, nil
	})
}

type conformityQuery struct {
	MainType   string `query:"main_type" required:"true"`
	MainTypeID string `query:"main_type_id" required:"true"`
	RelType    string `query:"rel_type" required:"true"`
}

func registerConformities(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-conformity",
		Method:        http.MethodPost,
		Path:          "/conformities",
		Summary:       "Add one link",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ActorID string               `header:"X-Actor-Id"`
		Body    AddConformityRequest `json:"body"`
	}) (*struct {
		Body domain.Conformity `json:"body"`
	}, error) {
		b := input.Body
		if b.MainType == "" || b.MainTypeID == "" || b.RelType == "" || b.RelTypeID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "main_type, main_type_id, rel_type and rel_type_id are required", nil)
		}
		c, err := e.Conformity.Add(ctx, conformity.AddInput{
			MainType:   b.MainType,
			MainTypeID: b.MainTypeID,
			RelType:    b.RelType,
			RelTypeID:  b.RelTypeID,
			Content:    b.Content,
			EditAble:   b.EditAble,
			CreatedBy:  input.ActorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Conformity `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "saved-conformities",
		Method:      http.MethodGet,
		Path:        "/conformities/saved",
		Summary:     "Ids of rel_type entities linked to an entity",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *conformityQuery) (*struct {
		Body IDListResponse `json:"body"`
	}, error) {
		ids, err := e.Conformity.Saved(ctx, input.MainType, input.MainTypeID, input.RelType)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDListResponse `json:"body"`
		}{Body: IDListResponse{IDs: nonNilSlice(ids)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "related-conformities",
		Method:      http.MethodGet,
		Path:        "/conformities/related",
		Summary:     "Ids of rel_type entities reachable in two hops",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *conformityQuery) (*struct {
		Body IDListResponse `json:"body"`
	}, error) {
		ids, err := e.Conformity.Related(ctx, input.MainType, input.MainTypeID, input.RelType)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDListResponse `json:"body"`
		}{Body: IDListResponse{IDs: nonNilSlice(ids)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "filter-conformities",
		Method:      http.MethodPost,
		Path:        "/conformities/filter",
		Summary:     "Union of saved ids over several entities",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body FilterConformityRequest `json:"body"`
	}) (*struct {
		Body IDListResponse `json:"body"`
	}, error) {
		ids, err := e.Conformity.Filter(ctx, input.Body.MainType, input.Body.MainTypeIDs, input.Body.RelType)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDListResponse `json:"body"`
		}{Body: IDListResponse{IDs: nonNilSlice(ids)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-conformities",
		Method:      http.MethodPut,
		Path:        "/conformities/edit",
		Summary:     "Replace the rel_type links of an entity",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string                `header:"X-Actor-Id"`
		Body    EditConformityRequest `json:"body"`
	}) (*struct {
		Body any `json:"body"`
	}, error) {
		b := input.Body
		if b.MainType == "" || b.MainTypeID == "" || b.RelType == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "main_type, main_type_id and rel_type are required", nil)
		}
		entity, err := e.EditLinks(ctx, b.MainType, b.MainTypeID, b.RelType, b.RelTypeIDs, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body any `json:"body"`
		}{Body: entity}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "change-conformities",
		Method:        http.MethodPost,
		Path:          "/conformities/change",
		Summary:       "Repoint links from old ids to a new id",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ChangeConformityRequest `json:"body"`
	}) (*struct{}, error) {
		if input.Body.Type == "" || input.Body.NewTypeID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "type and new_type_id are required", nil)
		}
		if err := e.Conformity.Change(ctx, input.Body.Type, input.Body.OldTypeIDs, input.Body.NewTypeID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "remove-conformities",
		Method:        http.MethodDelete,
		Path:          "/conformities",
		Summary:       "Remove every link touching an entity",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		MainType   string `query:"main_type" required:"true"`
		MainTypeID string `query:"main_type_id" required:"true"`
	}) (*struct{}, error) {
		if err := e.Conformity.Remove(ctx, input.MainType, input.MainTypeID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerActivity(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/activity",
		Summary:     "List activity log entries, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ContentType string `query:"content_type"`
		ContentID   string `query:"content_id"`
		Limit       int    `query:"limit" default:"50"`
	}) (*struct {
		Body ActivityListResponse `json:"body"`
	}, error) {
		items, err := e.Activity(ctx, input.ContentType, input.ContentID, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActivityListResponse `json:"body"`
		}{Body: ActivityListResponse{Items: nonNilSlice(items)}}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
