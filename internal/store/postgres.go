package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        BIGSERIAL,
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	doc        JSONB NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_doc_gin ON documents USING GIN (doc jsonb_path_ops);
CREATE INDEX IF NOT EXISTS documents_collection_seq ON documents (collection, seq);
`

// Postgres stores every collection in one JSONB table. Filters use JSONB
// containment, so they are meant for scalar top-level fields.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and creates the documents table.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) unavailable(op string, err error) error {
	return &UnavailableError{Backend: "postgres", Op: op, Cause: err}
}

func (p *Postgres) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	filterJSON, err := json.Marshal(nonNil(filter))
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	var raw []byte
	err = p.pool.QueryRow(ctx,
		`SELECT doc FROM documents
		 WHERE collection = $1 AND doc @> $2::jsonb
		 ORDER BY seq LIMIT 1`,
		collection, filterJSON,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return p.unavailable("find_one", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

func (p *Postgres) FindMany(ctx context.Context, collection string, filter Filter, out any) error {
	filterJSON, err := json.Marshal(nonNil(filter))
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT doc FROM documents
		 WHERE collection = $1 AND doc @> $2::jsonb
		 ORDER BY seq`,
		collection, filterJSON,
	)
	if err != nil {
		return p.unavailable("find_many", err)
	}
	defer rows.Close()

	docs := make([]json.RawMessage, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return p.unavailable("find_many", err)
		}
		docs = append(docs, raw)
	}
	if err := rows.Err(); err != nil {
		return p.unavailable("find_many", err)
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode documents: %w", err)
	}
	return nil
}

func (p *Postgres) InsertOne(ctx context.Context, collection string, doc any) (string, error) {
	d, id, err := toDocument(doc)
	if err != nil {
		return "", err
	}
	docJSON, err := json.Marshal(d)
	if err != nil {
		return "", err
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)`,
		collection, id, docJSON,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "", fmt.Errorf("%w: %s/%s", ErrDuplicateID, collection, id)
	}
	if err != nil {
		return "", p.unavailable("insert_one", err)
	}
	return id, nil
}

func (p *Postgres) UpdateOne(ctx context.Context, collection string, filter Filter, update Update) (bool, error) {
	filterJSON, err := json.Marshal(nonNil(filter))
	if err != nil {
		return false, fmt.Errorf("invalid filter: %w", err)
	}
	set := make(map[string]any, len(update.Set))
	for k, v := range update.Set {
		if k != "_id" {
			set[k] = v
		}
	}
	setJSON, err := json.Marshal(set)
	if err != nil {
		return false, fmt.Errorf("invalid update: %w", err)
	}

	query, args, err := buildPostgresUpdate(collection, filterJSON, setJSON, update.Push)
	if err != nil {
		return false, err
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, p.unavailable("update_one", err)
	}
	return tag.RowsAffected() > 0, nil
}

// buildPostgresUpdate renders the single-statement patch. The filter is
// re-checked on the locked row so a conditional update cannot apply twice.
func buildPostgresUpdate(collection string, filterJSON, setJSON []byte, push map[string][]any) (string, []any, error) {
	args := []any{collection, filterJSON, setJSON}
	expr := "d.doc || $3::jsonb"
	for field, values := range push {
		valuesJSON, err := json.Marshal(nonNilSlice(values))
		if err != nil {
			return "", nil, fmt.Errorf("invalid push for %s: %w", field, err)
		}
		args = append(args, field, valuesJSON)
		fieldArg := len(args) - 1
		valuesArg := len(args)
		expr = fmt.Sprintf(
			"jsonb_set(%s, ARRAY[$%d::text], COALESCE(d.doc->$%d::text, '[]'::jsonb) || $%d::jsonb)",
			expr, fieldArg, fieldArg, valuesArg,
		)
	}

	var sb strings.Builder
	sb.WriteString("UPDATE documents d SET doc = ")
	sb.WriteString(expr)
	sb.WriteString(` WHERE d.collection = $1 AND d.doc @> $2::jsonb AND d.id = (
		SELECT id FROM documents
		WHERE collection = $1 AND doc @> $2::jsonb
		ORDER BY seq LIMIT 1
		FOR UPDATE
	)`)
	return sb.String(), args, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool
func (p *Postgres) Close(context.Context) error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func nonNil(filter Filter) Filter {
	if filter == nil {
		return Filter{}
	}
	return filter
}

func nonNilSlice(values []any) []any {
	if values == nil {
		return []any{}
	}
	return values
}

var _ Store = (*Postgres)(nil)
