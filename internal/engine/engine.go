package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crmcore/internal/config"
	"crmcore/internal/conformity"
	"crmcore/internal/docstore"
	"crmcore/internal/domain"
	"crmcore/internal/events"
	"crmcore/internal/ordering"
)

var ErrUnknownType = errors.New("unknown type")

// Engine is the mutation layer over cards, contacts and their links. It owns the
// per-type collections and hands the conformity store a registry built from them.
type Engine struct {
	DB         *sql.DB
	Config     *config.Config
	Events     events.Writer
	Conformity conformity.Store
	Logger     *slog.Logger
	Now        func() time.Time

	cards    map[string]docstore.Collection[domain.Card]
	contacts map[string]docstore.Collection[domain.Contact]
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := Engine{
		DB:       db,
		Config:   cfg,
		Events:   events.Writer{Logs: docstore.NewCollection[domain.ActivityLog](db, events.CollectionName)},
		Logger:   logger,
		Now:      time.Now,
		cards:    map[string]docstore.Collection[domain.Card]{},
		contacts: map[string]docstore.Collection[domain.Contact]{},
	}
	for typ, ref := range cfg.Pipeline.CardTypes {
		e.cards[typ] = docstore.NewCollection[domain.Card](db, ref.Collection)
	}
	for typ, ref := range cfg.Contacts.Types {
		e.contacts[typ] = docstore.NewCollection[domain.Contact](db, ref.Collection)
	}
	e.Conformity = conformity.New(docstore.NewCollection[domain.Conformity](db, conformity.CollectionName), e.Registry())
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// activityLog is the event writer stamped with the engine clock.
func (e Engine) activityLog() events.Writer {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// Registry maps every configured card and contact type to a by-id lookup.
func (e Engine) Registry() conformity.Registry {
	r := conformity.Registry{}
	for typ, coll := range e.cards {
		r[typ] = func(ctx context.Context, id string) (any, error) {
			return coll.FindOne(ctx, docstore.ByID(id))
		}
	}
	for typ, coll := range e.contacts {
		r[typ] = func(ctx context.Context, id string) (any, error) {
			return coll.FindOne(ctx, docstore.ByID(id))
		}
	}
	return r
}

func (e Engine) cardCollection(typ string) (docstore.Collection[domain.Card], error) {
	c, ok := e.cards[typ]
	if !ok {
		return c, fmt.Errorf("%w: card type %s", ErrUnknownType, typ)
	}
	return c, nil
}

func (e Engine) contactCollection(typ string) (docstore.Collection[domain.Contact], error) {
	c, ok := e.contacts[typ]
	if !ok {
		return c, fmt.Errorf("%w: contact type %s", ErrUnknownType, typ)
	}
	return c, nil
}

// Ordering returns the order engine for one card type.
func (e Engine) Ordering(typ string) (ordering.Engine, error) {
	coll, err := e.cardCollection(typ)
	if err != nil {
		return ordering.Engine{}, err
	}
	oe := ordering.New(coll)
	oe.Logger = e.Logger.With("card_type", typ)
	if e.Config != nil {
		oe.ArchivedStatus = e.Config.Pipeline.ArchivedStatus
		oe.Spacing = ordering.Spacing{Empty: e.Config.Ordering.EmptyStageOrder, Step: e.Config.Ordering.TailStep}
	}
	return oe, nil
}

// ComputeInsertOrder previews the order a card of typ would get after afterItemID.
func (e Engine) ComputeInsertOrder(ctx context.Context, typ, stageID, afterItemID string) (float64, error) {
	if stageID == "" {
		return 0, errors.New("stage id is required")
	}
	oe, err := e.Ordering(typ)
	if err != nil {
		return 0, err
	}
	return oe.ComputeInsertOrder(ctx, stageID, afterItemID)
}

// Activity lists logged actions, newest first.
func (e Engine) Activity(ctx context.Context, contentType, contentID string, limit int) ([]domain.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return e.activityLog().List(ctx, contentType, contentID, limit)
}
