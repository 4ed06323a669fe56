package server

import (
	"crmcore/internal/config"
	"crmcore/internal/domain"
)

// Request payloads

type InsertOrderRequest struct {
	Type        string `json:"type"`
	StageID     string `json:"stage_id"`
	AfterItemID string `json:"after_item_id,omitempty"`
}

type CommitOrdersRequest struct {
	Items []domain.OrderItem `json:"items"`
}

type CreateCardRequest struct {
	ID          string              `json:"id,omitempty"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	StageID     string              `json:"stage_id"`
	AboveItemID string              `json:"above_item_id,omitempty"`
	AssignedTo  []string            `json:"assigned_user_ids,omitempty"`
	Links       map[string][]string `json:"links,omitempty"`
}

type MoveCardRequest struct {
	StageID     string `json:"stage_id,omitempty"`
	AboveItemID string `json:"above_item_id,omitempty"`
}

type CreateContactRequest struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name"`
	Emails []string `json:"emails,omitempty"`
}

type MergeContactsRequest struct {
	IDs  []string `json:"ids"`
	Name string   `json:"name,omitempty"`
}

type AddConformityRequest struct {
	MainType   string `json:"main_type"`
	MainTypeID string `json:"main_type_id"`
	RelType    string `json:"rel_type"`
	RelTypeID  string `json:"rel_type_id"`
	Content    string `json:"content,omitempty"`
	EditAble   bool   `json:"edit_able,omitempty"`
}

type FilterConformityRequest struct {
	MainType    string   `json:"main_type"`
	MainTypeIDs []string `json:"main_type_ids"`
	RelType     string   `json:"rel_type"`
}

type EditConformityRequest struct {
	MainType   string   `json:"main_type"`
	MainTypeID string   `json:"main_type_id"`
	RelType    string   `json:"rel_type"`
	RelTypeIDs []string `json:"rel_type_ids"`
}

type ChangeConformityRequest struct {
	Type       string   `json:"type"`
	OldTypeIDs []string `json:"old_type_ids"`
	NewTypeID  string   `json:"new_type_id"`
}

// Response payloads

type OrderResponse struct {
	Order float64 `json:"order"`
}

type CardListResponse struct {
	Items []domain.Card `json:"items"`
}

type IDListResponse struct {
	IDs []string `json:"ids"`
}

type ActivityListResponse struct {
	Items []domain.ActivityLog `json:"items"`
}

type TypesResponse struct {
	CardTypes       []string `json:"card_types"`
	ContactTypes    []string `json:"contact_types"`
	ConformityTypes []string `json:"conformity_types"`
}

func typesResponse(cfg *config.Config, conformityTypes []string) TypesResponse {
	return TypesResponse{
		CardTypes:       nonNilSlice(cfg.CardTypeNames()),
		ContactTypes:    nonNilSlice(cfg.ContactTypeNames()),
		ConformityTypes: nonNilSlice(conformityTypes),
	}
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
