package sql

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/klwxsrx/storefront-console/pkg/log"
)

const (
	migrationLock  = "perform_migration_lock"
	querySeparator = ";\n"

	migrationTableDDL = `CREATE TABLE IF NOT EXISTS migration (id text PRIMARY KEY)`
)

type (
	MigrationSource interface {
		IDs() ([]string, error)
		SQL(id string) (string, error)
	}

	Migrator struct {
		db     TxClient
		logger log.Logger
	}

	fsMigrations struct {
		files fs.ReadDirFS
	}
)

// FSMigrations treats every file of the root directory as a migration, ordered by name.
func FSMigrations(files fs.ReadDirFS) MigrationSource {
	return fsMigrations{files}
}

func (m fsMigrations) IDs() ([]string, error) {
	entries, err := m.files.ReadDir(".")
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		result = append(result, entry.Name())
	}

	slices.Sort(result)
	return result, nil
}

func (m fsMigrations) SQL(id string) (string, error) {
	content, err := fs.ReadFile(m.files, id)
	if err != nil {
		return "", err
	}

	return string(content), nil
}

func NewMigrator(db TxClient, logger log.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

// Execute applies pending migrations of all sources in one transaction guarded by an advisory lock.
func (m *Migrator) Execute(ctx context.Context, sources ...MigrationSource) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("start migration tx: %w", err)
	}

	applied, err := m.execute(ctx, tx, sources)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit migration tx: %w", err)
	}

	for _, id := range applied {
		m.logger.WithField("migrationID", id).Info(ctx, "migration executed successfully")
	}

	return nil
}

func (m *Migrator) execute(ctx context.Context, tx ClientTx, sources []MigrationSource) ([]string, error) {
	err := withTransactionLevelLock(ctx, migrationLock, tx)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, migrationTableDDL)
	if err != nil {
		return nil, fmt.Errorf("create migration table: %w", err)
	}

	var performedIDs []string
	err = tx.SelectContext(ctx, &performedIDs, `SELECT id FROM migration`)
	if err != nil {
		return nil, fmt.Errorf("get performed migrations: %w", err)
	}

	var applied []string
	for _, source := range sources {
		ids, err := source.IDs()
		if err != nil {
			return nil, fmt.Errorf("get migration ids: %w", err)
		}

		for _, id := range ids {
			if slices.Contains(performedIDs, id) {
				continue
			}

			migrationSQL, err := source.SQL(id)
			if err != nil {
				return nil, fmt.Errorf("read migration %s: %w", id, err)
			}

			err = m.performMigration(ctx, tx, id, migrationSQL)
			if err != nil {
				return nil, fmt.Errorf("migration %s failed: %w", id, err)
			}
			applied = append(applied, id)
		}
	}

	return applied, nil
}

func (m *Migrator) performMigration(ctx context.Context, client Client, id, migrationSQL string) error {
	if strings.TrimSpace(migrationSQL) == "" {
		return errors.New("empty migration")
	}

	_, err := client.ExecContext(ctx, `INSERT INTO migration VALUES ($1)`, id)
	if err != nil {
		return err
	}

	for _, query := range strings.Split(migrationSQL, querySeparator) {
		if strings.TrimSpace(query) == "" {
			continue
		}

		_, err = client.ExecContext(ctx, query)
		if err != nil {
			return err
		}
	}

	return nil
}
