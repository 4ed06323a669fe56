// Package docstore keeps JSON documents in named collections on top of SQLite.
// It offers the filter-based find/insert/update/delete surface the board and
// conformity components are written against.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("not found")

// Set lists field assignments applied by an update.
type Set map[string]any

// UpdateModel is one entry of a BulkWrite.
type UpdateModel struct {
	Filter Filter
	Set    Set
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Collection is a typed view over the documents stored under one collection name.
// T must marshal to a JSON object carrying a string "_id".
type Collection[T any] struct {
	db   *sql.DB
	name string
}

func NewCollection[T any](db *sql.DB, name string) Collection[T] {
	return Collection[T]{db: db, name: name}
}

func (c Collection[T]) Name() string { return c.name }

type findOptions struct {
	sort  []sortKey
	limit int
}

type sortKey struct {
	field string
	desc  bool
}

type FindOption func(*findOptions)

// SortBy orders results by field. Ties fall back to document id.
func SortBy(field string, desc bool) FindOption {
	return func(o *findOptions) { o.sort = append(o.sort, sortKey{field: field, desc: desc}) }
}

func Limit(n int) FindOption {
	return func(o *findOptions) { o.limit = n }
}

func (c Collection[T]) scope(f Filter) (string, []any, error) {
	if f == nil {
		f = All()
	}
	clause, args, err := f.where()
	if err != nil {
		return "", nil, err
	}
	return "collection = ? AND (" + clause + ")", append([]any{c.name}, args...), nil
}

func (c Collection[T]) Find(ctx context.Context, f Filter, opts ...FindOption) ([]T, error) {
	var o findOptions
	for _, opt := range opts {
		opt(&o)
	}
	where, args, err := c.scope(f)
	if err != nil {
		return nil, err
	}
	query := `SELECT body FROM documents WHERE ` + where
	var order []string
	for _, s := range o.sort {
		expr, err := fieldExpr(s.field)
		if err != nil {
			return nil, err
		}
		dir := "ASC"
		if s.desc {
			dir = "DESC"
		}
		order = append(order, expr+" "+dir)
	}
	order = append(order, "id ASC")
	query += " ORDER BY " + strings.Join(order, ", ")
	if o.limit > 0 {
		query += " LIMIT ?"
		args = append(args, o.limit)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []T{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var doc T
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", c.name, err)
		}
		res = append(res, doc)
	}
	return res, rows.Err()
}

// FindOne returns the first document matching f, or ErrNotFound.
func (c Collection[T]) FindOne(ctx context.Context, f Filter, opts ...FindOption) (T, error) {
	var zero T
	docs, err := c.Find(ctx, f, append(opts, Limit(1))...)
	if err != nil {
		return zero, err
	}
	if len(docs) == 0 {
		return zero, ErrNotFound
	}
	return docs[0], nil
}

func (c Collection[T]) Count(ctx context.Context, f Filter) (int64, error) {
	where, args, err := c.scope(f)
	if err != nil {
		return 0, err
	}
	var n int64
	err = c.db.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE `+where, args...).Scan(&n)
	return n, err
}

func (c Collection[T]) InsertOne(ctx context.Context, doc T) error {
	return c.InsertMany(ctx, []T{doc})
}

// InsertMany stores all docs in one transaction.
func (c Collection[T]) InsertMany(ctx context.Context, docs []T) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s document: %w", c.name, err)
		}
		var head struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(body, &head); err != nil {
			return fmt.Errorf("encode %s document: %w", c.name, err)
		}
		if head.ID == "" {
			return fmt.Errorf("%s document missing _id", c.name)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO documents(collection,id,body) VALUES (?,?,?)`, c.name, head.ID, string(body)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateOne applies set to the first matching document and reports whether one matched.
func (c Collection[T]) UpdateOne(ctx context.Context, f Filter, set Set) (int64, error) {
	return c.update(ctx, c.db, f, set, true)
}

func (c Collection[T]) UpdateMany(ctx context.Context, f Filter, set Set) (int64, error) {
	return c.update(ctx, c.db, f, set, false)
}

// BulkWrite runs every model as an UpdateOne inside one transaction and returns
// the number of modified documents. The first failing model aborts the batch.
func (c Collection[T]) BulkWrite(ctx context.Context, models []UpdateModel) (int64, error) {
	if len(models) == 0 {
		return 0, nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	var total int64
	for _, m := range models {
		n, err := c.update(ctx, tx, m.Filter, m.Set, true)
		if err != nil {
			return 0, err
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func (c Collection[T]) update(ctx context.Context, ex execer, f Filter, set Set, one bool) (int64, error) {
	if len(set) == 0 {
		return 0, nil
	}
	fields := make([]string, 0, len(set))
	for k := range set {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	var (
		paths []string
		args  []any
	)
	for _, field := range fields {
		if field == "_id" {
			return 0, errors.New("_id is immutable")
		}
		if !fieldPattern.MatchString(field) {
			return 0, fmt.Errorf("invalid field name %q", field)
		}
		raw, err := json.Marshal(set[field])
		if err != nil {
			return 0, fmt.Errorf("encode %s: %w", field, err)
		}
		paths = append(paths, fmt.Sprintf("'$.%s', json(?)", field))
		args = append(args, string(raw))
	}
	where, wargs, err := c.scope(f)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`UPDATE documents SET body = json_set(body, %s) WHERE `, strings.Join(paths, ", "))
	if one {
		query += `collection = ? AND id = (SELECT id FROM documents WHERE ` + where + ` ORDER BY id LIMIT 1)`
		args = append(args, c.name)
	} else {
		query += where
	}
	args = append(args, wargs...)
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteMany removes every matching document and returns how many were removed.
func (c Collection[T]) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	where, args, err := c.scope(f)
	if err != nil {
		return 0, err
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE `+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
