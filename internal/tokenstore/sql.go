package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	pkgsql "github.com/klwxsrx/storefront-console/pkg/sql"
	pkgtime "github.com/klwxsrx/storefront-console/pkg/time"
)

const sessionTokenTable = "session_token"

type sqlStore struct {
	client pkgsql.Client
	scope  string
	clock  pkgtime.Clock
}

func NewSQLStore(client pkgsql.Client, scope string, clock pkgtime.Clock) Store {
	return &sqlStore{
		client: client,
		scope:  scope,
		clock:  clock,
	}
}

func (s *sqlStore) Get(ctx context.Context, kind Kind) (string, error) {
	query, args, err := pkgsql.Builder.
		Select("token").
		From(sessionTokenTable).
		Where(sq.Eq{"scope": s.scope}).
		Where(sq.Eq{"kind": string(kind)}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build select token query: %w", err)
	}

	var token string
	err = s.client.GetContext(ctx, &token, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select %s: %w", kind, err)
	}

	return token, nil
}

func (s *sqlStore) Set(ctx context.Context, kind Kind, token string) error {
	query, args, err := pkgsql.Builder.
		Insert(sessionTokenTable).
		Columns("scope", "kind", "token", "updated_at").
		Values(s.scope, string(kind), token, s.clock.Now(ctx).UTC()).
		Suffix("ON CONFLICT (scope, kind) DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert token query: %w", err)
	}

	_, err = s.client.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", kind, err)
	}

	return nil
}

func (s *sqlStore) Clear(ctx context.Context, kind Kind) error {
	query, args, err := pkgsql.Builder.
		Delete(sessionTokenTable).
		Where(sq.Eq{"scope": s.scope}).
		Where(sq.Eq{"kind": string(kind)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete token query: %w", err)
	}

	_, err = s.client.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}

	return nil
}
