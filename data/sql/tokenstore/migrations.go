package tokenstore

import (
	"embed"

	pkgsql "github.com/klwxsrx/storefront-console/pkg/sql"
)

var Migrations = pkgsql.FSMigrations(migrationFiles)

//go:embed *.sql
var migrationFiles embed.FS
