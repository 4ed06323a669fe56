package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"crmcore/internal/docstore"
	"crmcore/internal/domain"
)

const CollectionName = "activity_logs"

// fixed width so createdAt sorts lexically
const tsLayout = "2006-01-02T15:04:05.000000Z07:00"

type Writer struct {
	Logs docstore.Collection[domain.ActivityLog]
	Now  func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, action, contentType, contentID, actorID string, payload EventPayload) (domain.ActivityLog, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	entry := domain.ActivityLog{
		ID:          uuid.NewString(),
		Action:      action,
		ContentType: contentType,
		ContentID:   contentID,
		CreatedBy:   actorID,
		CreatedAt:   w.Now().UTC().Format(tsLayout),
		Payload:     payload,
	}
	if err := w.Logs.InsertOne(ctx, entry); err != nil {
		return domain.ActivityLog{}, err
	}
	return entry, nil
}

// List returns the newest entries first. Empty contentType/contentID match everything.
func (w Writer) List(ctx context.Context, contentType, contentID string, limit int) ([]domain.ActivityLog, error) {
	var filters []docstore.Filter
	if contentType != "" {
		filters = append(filters, docstore.Eq("contentType", contentType))
	}
	if contentID != "" {
		filters = append(filters, docstore.Eq("contentId", contentID))
	}
	return w.Logs.Find(ctx, docstore.And(filters...), docstore.SortBy("createdAt", true), docstore.Limit(limit))
}
