package schema_test

import (
	"strings"
	"testing"

	"github.com/relaydb/dbshift/internal/schema"
)

func TestColumnValidateIdentityNullable(t *testing.T) {
	c := schema.ColumnSchema{Name: "id", Identity: true, Nullable: true}
	if err := c.Validate(); err == nil {
		t.Error("expected error for nullable identity column")
	}
}

func TestColumnValidateOK(t *testing.T) {
	c := schema.ColumnSchema{Name: "id", Identity: true, Nullable: false}
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConstraintValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       schema.ConstraintSchema
		wantErr bool
	}{
		{"check ok", schema.ConstraintSchema{Name: "ck_age", Kind: schema.ConstraintCheck, Check: "age >= 0"}, false},
		{"check missing expr", schema.ConstraintSchema{Name: "ck_age", Kind: schema.ConstraintCheck}, true},
		{"default ok", schema.ConstraintSchema{Name: "df_created", Kind: schema.ConstraintDefault, Columns: []string{"created_at"}, Default: "NOW()"}, false},
		{"default multi-column", schema.ConstraintSchema{Name: "df_x", Kind: schema.ConstraintDefault, Columns: []string{"a", "b"}, Default: "0"}, true},
		{"unique ok", schema.ConstraintSchema{Name: "uq_email", Kind: schema.ConstraintUnique, Columns: []string{"email"}}, false},
		{"unique no columns", schema.ConstraintSchema{Name: "uq_email", Kind: schema.ConstraintUnique}, true},
		{"unknown kind", schema.ConstraintSchema{Name: "x", Kind: "bogus"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTableValidateUnknownPrimaryKeyColumn(t *testing.T) {
	tbl := schema.TableSchema{
		SchemaName: "public",
		TableName:  "users",
		Columns:    []schema.ColumnSchema{{Name: "id"}},
		PrimaryKey: []string{"nope"},
	}
	err := tbl.Validate()
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("expected error mentioning missing column, got %v", err)
	}
}

func TestTableValidateUnknownForeignKeyColumn(t *testing.T) {
	tbl := schema.TableSchema{
		SchemaName:  "public",
		TableName:   "orders",
		Columns:     []schema.ColumnSchema{{Name: "id"}},
		ForeignKeys: []schema.ForeignKeySchema{{ConstraintName: "fk", Column: "customer_id", RefTable: "customers", RefColumn: "id"}},
	}
	err := tbl.Validate()
	if err == nil || !strings.Contains(err.Error(), "customer_id") {
		t.Errorf("expected error mentioning missing fk column, got %v", err)
	}
}

func TestTableQualifiedNameAndColumnNames(t *testing.T) {
	tbl := schema.TableSchema{
		SchemaName: "public",
		TableName:  "users",
		Columns:    []schema.ColumnSchema{{Name: "id"}, {Name: "email"}},
	}
	if got, want := tbl.QualifiedName(), "public.users"; got != want {
		t.Errorf("QualifiedName() = %q, want %q", got, want)
	}
	names := tbl.ColumnNames()
	if len(names) != 2 || names[0] != "id" || names[1] != "email" {
		t.Errorf("ColumnNames() = %v, want [id email] in declaration order", names)
	}
}

func TestGroupForeignKeysGroupsMultiColumn(t *testing.T) {
	fks := []schema.ForeignKeySchema{
		{ConstraintName: "fk_order_items", Column: "order_id", RefSchema: "public", RefTable: "orders", RefColumn: "id"},
		{ConstraintName: "fk_order_items", Column: "order_region", RefSchema: "public", RefTable: "orders", RefColumn: "region"},
		{ConstraintName: "fk_items_product", Column: "product_id", RefSchema: "public", RefTable: "products", RefColumn: "id"},
	}
	groups := schema.GroupForeignKeys("public", "order_items", fks)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].ConstraintName != "fk_order_items" {
		t.Errorf("expected first-seen group first, got %q", groups[0].ConstraintName)
	}
	if len(groups[0].Columns) != 2 || groups[0].Columns[0] != "order_id" || groups[0].Columns[1] != "order_region" {
		t.Errorf("expected composite column order preserved, got %v", groups[0].Columns)
	}
	if len(groups[1].Columns) != 1 || groups[1].Columns[0] != "product_id" {
		t.Errorf("expected single-column group, got %v", groups[1].Columns)
	}
}

func TestGroupForeignKeysEmpty(t *testing.T) {
	groups := schema.GroupForeignKeys("public", "t", nil)
	if len(groups) != 0 {
		t.Errorf("expected no groups for no foreign keys, got %d", len(groups))
	}
}
