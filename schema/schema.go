// Package schema declares the persisted tables and indexes and applies
// them through the executor. All DDL goes through the dialect-aware
// schema builder so the same declarations serve both engines.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/lorekeep/lorekeep/builder"
	"github.com/lorekeep/lorekeep/executor"
	"github.com/lorekeep/lorekeep/internal/debug"
	"github.com/lorekeep/lorekeep/sqlgen"
)

// Table names, shared with the repositories.
const (
	TableAccounts    = "accounts"
	TableEntries     = "content_entries"
	TableSubmissions = "content_submissions"
	TableCollections = "item_collections"
	TableItems       = "item_properties"
	TableNameChanges = "name_changes"
)

type ddlBuilder interface {
	Build() (string, error)
}

// Statements returns the full DDL for the given dialect, in dependency
// order.
func Statements(d sqlgen.Dialect) ([]string, error) {
	builders := []ddlBuilder{
		builder.CreateTable(d, TableAccounts).
			BigIncrements("id").
			Column("player_uuid", "VARCHAR(36)").NotNull().Unique().
			Column("name", "VARCHAR(64)").NotNull().
			Column("last_seen_at", "DATETIME").
			Column("created_at", "DATETIME").NotNull().Default("CURRENT_TIMESTAMP"),

		builder.CreateTable(d, TableEntries).
			BigIncrements("id").
			Column("stable_id", "VARCHAR(36)").NotNull().Unique().
			Column("category", "VARCHAR(64)").NotNull().
			Column("display_name", "VARCHAR(255)").NotNull().
			Column("description", "TEXT").
			Column("metadata", "TEXT").
			Column("anchor_world", "VARCHAR(64)").
			Column("anchor_x", "DOUBLE").Default("0").
			Column("anchor_y", "DOUBLE").Default("0").
			Column("anchor_z", "DOUBLE").Default("0").
			Column("approved", "BOOLEAN").NotNull().Default("0").
			// Zero means no authoring account, so no foreign key here.
			Column("created_by", "BIGINT").NotNull().Default("0").
			Column("created_at", "DATETIME").NotNull().Default("CURRENT_TIMESTAMP").
			Column("updated_at", "DATETIME").NotNull().Default("CURRENT_TIMESTAMP"),

		builder.CreateTable(d, TableSubmissions).
			BigIncrements("id").
			Column("entry_id", "BIGINT").NotNull().References(TableEntries, "id").
			Column("slug", "VARCHAR(255)").NotNull().
			Column("visibility", "VARCHAR(16)").NotNull().Default("'PUBLIC'").
			Column("status", "VARCHAR(16)").NotNull().Default("'PENDING'").
			Column("submitted_by", "BIGINT").NotNull().Default("0").
			Column("submitted_at", "DATETIME").NotNull().Default("CURRENT_TIMESTAMP").
			Column("approval_status", "VARCHAR(16)").NotNull().Default("'PENDING'").
			Column("approved_by", "BIGINT").
			Column("approved_at", "DATETIME").
			Column("version", "INT").NotNull().
			Column("is_current_version", "BOOLEAN").NotNull().Default("0").
			Column("view_count", "BIGINT").NotNull().Default("0").
			Column("last_viewed_at", "DATETIME").
			Column("body", "TEXT"),

		builder.CreateTable(d, TableCollections).
			BigIncrements("id").
			Column("entry_id", "BIGINT").References(TableEntries, "id").
			Column("name", "VARCHAR(255)").NotNull().
			Column("theme", "VARCHAR(64)").
			Column("created_at", "DATETIME").NotNull().Default("CURRENT_TIMESTAMP"),

		builder.CreateTable(d, TableItems).
			BigIncrements("id").
			Column("entry_id", "BIGINT").References(TableEntries, "id").
			Column("collection_id", "BIGINT").References(TableCollections, "id").
			Column("name", "VARCHAR(255)").NotNull().
			Column("material", "VARCHAR(64)").NotNull().
			Column("custom_model_data", "BIGINT").NotNull().Default("0").
			Column("created_at", "DATETIME").NotNull().Default("CURRENT_TIMESTAMP"),

		builder.CreateTable(d, TableNameChanges).
			BigIncrements("id").
			Column("account_id", "BIGINT").NotNull().References(TableAccounts, "id").
			Column("old_name", "VARCHAR(64)").NotNull().
			Column("new_name", "VARCHAR(64)").NotNull().
			Column("changed_at", "DATETIME").NotNull().Default("CURRENT_TIMESTAMP"),

		builder.CreateIndex(d, "idx_submissions_entry", TableSubmissions, "entry_id"),
		builder.CreateIndex(d, "idx_submissions_entry_version", TableSubmissions, "entry_id", "version").Unique(),
		builder.CreateIndex(d, "idx_submissions_current", TableSubmissions, "entry_id", "is_current_version"),
		builder.CreateIndex(d, "idx_submissions_slug", TableSubmissions, "slug"),
		builder.CreateIndex(d, "idx_entries_category", TableEntries, "category"),
		builder.CreateIndex(d, "idx_items_collection", TableItems, "collection_id"),
		builder.CreateIndex(d, "idx_name_changes_account", TableNameChanges, "account_id"),
	}

	statements := make([]string, 0, len(builders))
	for _, b := range builders {
		stmt, err := b.Build()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// Migrate applies the full schema. Safe to call on every startup; all
// DDL is IF NOT EXISTS.
func Migrate(ctx context.Context, e *executor.Executor, d sqlgen.Dialect) error {
	statements, err := Statements(d)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	for _, stmt := range statements {
		if _, err := e.ExecRaw(ctx, stmt).Get(); err != nil {
			// Index re-creation on MySQL, which lacks IF NOT EXISTS
			// for indexes.
			if strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("schema: %w", err)
		}
		debug.Debug("applied", "ddl", stmt)
	}
	return nil
}
