package sqlcollector_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/relaydb/dbshift/internal/sqlcollector"
)

func TestAddAndCategoryCounts(t *testing.T) {
	c := sqlcollector.New()
	c.AddComment("Tables")
	c.Add(sqlcollector.CategoryTables, "public.users", "CREATE TABLE public.users (id int)")
	c.Add(sqlcollector.CategoryTables, "public.orders", "CREATE TABLE public.orders (id int)")
	c.Add(sqlcollector.CategoryIndexes, "public.users_idx", "CREATE INDEX ...")

	counts := c.CategoryCounts()
	if counts[sqlcollector.CategoryTables] != 2 {
		t.Errorf("Tables count = %d, want 2", counts[sqlcollector.CategoryTables])
	}
	if counts[sqlcollector.CategoryIndexes] != 1 {
		t.Errorf("Indexes count = %d, want 1", counts[sqlcollector.CategoryIndexes])
	}
	if counts[sqlcollector.CategoryComment] != 1 {
		t.Errorf("Comment count = %d, want 1", counts[sqlcollector.CategoryComment])
	}

	if got, want := c.TotalStatements(), 3; got != want {
		t.Errorf("TotalStatements() = %d, want %d (sum of categories minus Comment)", got, want)
	}
}

func TestGetScriptContainsHeadersAndStatements(t *testing.T) {
	c := sqlcollector.New()
	c.AddComment("Tables")
	c.Add(sqlcollector.CategoryTables, "t", "CREATE TABLE t (id int)")

	script := c.GetScript()
	if !strings.Contains(script, "-- === Tables ===") {
		t.Errorf("expected phase header in script, got %q", script)
	}
	if !strings.Contains(script, "CREATE TABLE t (id int);") {
		t.Errorf("expected statement with terminator in script, got %q", script)
	}
}

func TestClearResetsBuffer(t *testing.T) {
	c := sqlcollector.New()
	c.Add(sqlcollector.CategoryTables, "t", "CREATE TABLE t (id int)")
	c.Clear()
	if len(c.Entries()) != 0 {
		t.Errorf("expected empty buffer after Clear, got %d entries", len(c.Entries()))
	}
}

func TestConcurrentAppendIsSafe(t *testing.T) {
	c := sqlcollector.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Add(sqlcollector.CategoryData, "t", "INSERT INTO t VALUES (1)")
		}(i)
	}
	wg.Wait()
	if len(c.Entries()) != 50 {
		t.Errorf("expected 50 entries after concurrent appends, got %d", len(c.Entries()))
	}
}
