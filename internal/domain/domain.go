package domain

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Card is a pipeline item (deal, task, ticket, growth hack) positioned inside a stage by Order.
type Card struct {
	ID          string   `json:"_id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	StageID     string   `json:"stageId"`
	Order       float64  `json:"order"`
	Status      string   `json:"status" enum:"active,archived"`
	AssignedTo  []string `json:"assignedUserIds,omitempty"`
	CreatedAt   string   `json:"createdAt" format:"date-time"`
	UpdatedAt   string   `json:"updatedAt" format:"date-time"`
	ModifiedBy  string   `json:"modifiedBy,omitempty"`
}

// Contact is a customer or company record that cards get linked to.
type Contact struct {
	ID        string   `json:"_id"`
	Type      string   `json:"type"`
	Name      string   `json:"name"`
	Emails    []string `json:"emails,omitempty"`
	MergedIDs []string `json:"mergedIds,omitempty"`
	CreatedAt string   `json:"createdAt" format:"date-time"`
}

// Conformity links two typed entities. Stored with a main and a rel side but
// queried as an undirected relation.
type Conformity struct {
	ID         string `json:"_id"`
	MainType   string `json:"mainType"`
	MainTypeID string `json:"mainTypeId"`
	RelType    string `json:"relType"`
	RelTypeID  string `json:"relTypeId"`
	Content    string `json:"content,omitempty"`
	EditAble   bool   `json:"editAble,omitempty"`
	CreatedBy  string `json:"createdBy,omitempty"`
	CreatedAt  string `json:"createdAt" format:"date-time"`
}

type ActivityLog struct {
	ID          string         `json:"_id"`
	Action      string         `json:"action"`
	ContentType string         `json:"contentType"`
	ContentID   string         `json:"contentId"`
	CreatedBy   string         `json:"createdBy"`
	CreatedAt   string         `json:"createdAt" format:"date-time"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// OrderItem assigns an explicit order to one card.
type OrderItem struct {
	ID    string  `json:"_id"`
	Order float64 `json:"order"`
}
