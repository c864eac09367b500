package depsort_test

import (
	"reflect"
	"testing"

	"github.com/relaydb/dbshift/internal/depsort"
	"github.com/relaydb/dbshift/internal/schema"
)

func table(schemaName, name string, fks ...schema.ForeignKeySchema) schema.TableSchema {
	return schema.TableSchema{SchemaName: schemaName, TableName: name, ForeignKeys: fks}
}

func fk(constraint, col, refSchema, refTable, refCol string) schema.ForeignKeySchema {
	return schema.ForeignKeySchema{ConstraintName: constraint, Column: col, RefSchema: refSchema, RefTable: refTable, RefColumn: refCol}
}

func position(order []schema.TableSchema, qualified string) int {
	for i, t := range order {
		if t.QualifiedName() == qualified {
			return i
		}
	}
	return -1
}

func TestSortOrdersReferencedTablesFirst(t *testing.T) {
	orders := table("dbo", "order_items", fk("fk_oi_order", "order_id", "dbo", "orders", "id"))
	ordersTable := table("dbo", "orders")

	// Arbitrary input order.
	result := depsort.Sort([]schema.TableSchema{orders, ordersTable})

	if position(result.Order, "dbo.orders") >= position(result.Order, "dbo.order_items") {
		t.Fatalf("expected orders before order_items, got order %v", names(result.Order))
	}
	if len(result.Cycles) != 0 {
		t.Fatalf("expected no cycles, got %v", result.Cycles)
	}
}

func TestSortIsOrderIndependent(t *testing.T) {
	a := table("s", "a")
	b := table("s", "b", fk("fk_b_a", "a_id", "s", "a", "id"))
	c := table("s", "c", fk("fk_c_b", "b_id", "s", "b", "id"))

	r1 := depsort.Sort([]schema.TableSchema{a, b, c})
	r2 := depsort.Sort([]schema.TableSchema{c, b, a})
	r3 := depsort.Sort([]schema.TableSchema{b, c, a})

	if !reflect.DeepEqual(names(r1.Order), names(r2.Order)) || !reflect.DeepEqual(names(r2.Order), names(r3.Order)) {
		t.Fatalf("sort is not input-order independent: %v vs %v vs %v", names(r1.Order), names(r2.Order), names(r3.Order))
	}
}

func TestSortDetectsCycleAndEmitsBothTablesLexicographically(t *testing.T) {
	a := table("s", "a", fk("fk_a_b", "b_id", "s", "b", "id"))
	b := table("s", "b", fk("fk_b_a", "a_id", "s", "a", "id"))

	result := depsort.Sort([]schema.TableSchema{b, a})

	if len(result.Order) != 2 {
		t.Fatalf("expected both cycle members in output, got %v", names(result.Order))
	}
	if names(result.Order)[0] != "s.a" || names(result.Order)[1] != "s.b" {
		t.Errorf("expected lexicographic tie-break s.a, s.b, got %v", names(result.Order))
	}
	if len(result.Cycles) == 0 {
		t.Errorf("expected cycle edges to be reported")
	}
}

func TestSortSelfReferenceTreatedAsAbsent(t *testing.T) {
	a := table("s", "tree", fk("fk_parent", "parent_id", "s", "tree", "id"))
	result := depsort.Sort([]schema.TableSchema{a})
	if len(result.Order) != 1 {
		t.Fatalf("expected table present exactly once, got %v", names(result.Order))
	}
	if len(result.Cycles) != 0 {
		t.Errorf("self-reference must not be reported as a cycle, got %v", result.Cycles)
	}
}

func names(tables []schema.TableSchema) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.QualifiedName()
	}
	return out
}
