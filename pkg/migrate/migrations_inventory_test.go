package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestInventoryCoreMigrationConstraints(t *testing.T) {
	content := readMigration(t, "*_create_inventory_core.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS inventory_stock_items",
		"CHECK (stock_quantity + fractional_stock >= 0)",
		"version BIGINT NOT NULL DEFAULT 1",
		"CHECK (previous_quantity + quantity_change = new_quantity)",
		"ux_idempotency_txn_stock",
		"DROP TABLE IF EXISTS inventory_stock_items",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestRecipeDeploymentMigrationTables(t *testing.T) {
	content := readMigration(t, "*_create_recipe_deployment.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS recipe_templates",
		"CREATE TABLE IF NOT EXISTS recipe_ingredient_mappings",
		"CREATE TABLE IF NOT EXISTS product_catalog_entries",
		"REFERENCES inventory_stock_items(id)",
		"DROP TABLE IF EXISTS recipes",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
