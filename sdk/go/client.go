package crmsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal crmcore HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, actorID string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		ActorID:  actorID,
		Timeout:  10 * time.Second,
	}
}

// Card represents a pipeline card.
type Card struct {
	ID          string   `json:"_id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	StageID     string   `json:"stageId"`
	Order       float64  `json:"order"`
	Status      string   `json:"status"`
	AssignedTo  []string `json:"assignedUserIds,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// OrderItem assigns an explicit order to a card.
type OrderItem struct {
	ID    string  `json:"_id"`
	Order float64 `json:"order"`
}

// CreateCardInput holds the fields of a new card.
type CreateCardInput struct {
	ID          string              `json:"id,omitempty"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	StageID     string              `json:"stage_id"`
	AboveItemID string              `json:"above_item_id,omitempty"`
	Links       map[string][]string `json:"links,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateCard creates a card of the given type.
func (c *Client) CreateCard(ctx context.Context, cardType string, in CreateCardInput) (Card, error) {
	var resp Card
	err := c.do(ctx, http.MethodPost, "cards/"+url.PathEscape(cardType), in, &resp)
	return resp, err
}

// Cards lists the cards of a stage in board order.
func (c *Client) Cards(ctx context.Context, cardType, stageID string, includeArchived bool) ([]Card, error) {
	q := url.Values{"stage_id": {stageID}}
	if includeArchived {
		q.Set("include_archived", "true")
	}
	var resp struct {
		Items []Card `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "cards/"+url.PathEscape(cardType)+"?"+q.Encode(), nil, &resp)
	return resp.Items, err
}

// MoveCard moves a card to stageID (empty keeps its stage), right after aboveItemID
// or to the top when aboveItemID is empty.
func (c *Client) MoveCard(ctx context.Context, cardType, id, stageID, aboveItemID string) (Card, error) {
	body := map[string]any{
		"stage_id":      stageID,
		"above_item_id": aboveItemID,
	}
	var resp Card
	endpoint := fmt.Sprintf("cards/%s/%s/move", url.PathEscape(cardType), url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// InsertOrder asks the server which order a card dropped after afterItemID would get.
func (c *Client) InsertOrder(ctx context.Context, cardType, stageID, afterItemID string) (float64, error) {
	body := map[string]any{
		"type":          cardType,
		"stage_id":      stageID,
		"after_item_id": afterItemID,
	}
	var resp struct {
		Order float64 `json:"order"`
	}
	err := c.do(ctx, http.MethodPost, "orders/insert", body, &resp)
	return resp.Order, err
}

// CommitOrders writes explicit orders and returns the affected cards sorted by order.
func (c *Client) CommitOrders(ctx context.Context, cardType, stageID string, items []OrderItem) ([]Card, error) {
	if items == nil {
		items = []OrderItem{}
	}
	var resp struct {
		Items []Card `json:"items"`
	}
	endpoint := fmt.Sprintf("cards/%s/stages/%s/orders", url.PathEscape(cardType), url.PathEscape(stageID))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]any{"items": items}, &resp)
	return resp.Items, err
}

// SavedLinks returns the ids of relType entities linked to (mainType, mainTypeID).
func (c *Client) SavedLinks(ctx context.Context, mainType, mainTypeID, relType string) ([]string, error) {
	return c.linkQuery(ctx, "saved", mainType, mainTypeID, relType)
}

// RelatedLinks returns the ids of relType entities two hops away.
func (c *Client) RelatedLinks(ctx context.Context, mainType, mainTypeID, relType string) ([]string, error) {
	return c.linkQuery(ctx, "related", mainType, mainTypeID, relType)
}

// EditLinks makes the relType links of an entity exactly relTypeIDs. The response
// is the entity itself, decoded into out when non-nil.
func (c *Client) EditLinks(ctx context.Context, mainType, mainTypeID, relType string, relTypeIDs []string, out any) error {
	if relTypeIDs == nil {
		relTypeIDs = []string{}
	}
	body := map[string]any{
		"main_type":    mainType,
		"main_type_id": mainTypeID,
		"rel_type":     relType,
		"rel_type_ids": relTypeIDs,
	}
	return c.do(ctx, http.MethodPut, "conformities/edit", body, out)
}

func (c *Client) linkQuery(ctx context.Context, kind, mainType, mainTypeID, relType string) ([]string, error) {
	q := url.Values{
		"main_type":    {mainType},
		"main_type_id": {mainTypeID},
		"rel_type":     {relType},
	}
	var resp struct {
		IDs []string `json:"ids"`
	}
	err := c.do(ctx, http.MethodGet, "conformities/"+kind+"?"+q.Encode(), nil, &resp)
	return resp.IDs, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}
