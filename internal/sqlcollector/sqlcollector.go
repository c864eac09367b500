// Package sqlcollector implements the dry-run execution mode: an
// append-only, mutex-guarded capture of every statement the live write path
// would have issued, with per-category statement counts and full-script
// rendering.
package sqlcollector

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Category tags one captured statement by migration phase concern.
type Category string

const (
	CategorySchema      Category = "Schema"
	CategoryTables      Category = "Tables"
	CategoryData        Category = "Data"
	CategoryIndexes     Category = "Indexes"
	CategoryConstraints Category = "Constraints"
	CategoryForeignKeys Category = "ForeignKeys"
	CategoryViews       Category = "Views"
	CategoryComment     Category = "Comment"
)

// Entry is one captured statement.
type Entry struct {
	ID       uuid.UUID
	SQL      string
	Category Category
	Object   string // qualified object name, optional
}

// Collector is safe for concurrent use by the maximum data-phase worker
// count: appends are guarded by mu, per spec.md §5 ("a mutex around the
// append is sufficient").
type Collector struct {
	mu      sync.Mutex
	entries []Entry
}

// New creates an empty Collector.
func New() *Collector {
	return &Collector{}
}

// Add appends one captured statement. Safe for concurrent callers.
func (c *Collector) Add(category Category, object, sql string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Entry{ID: uuid.New(), SQL: sql, Category: category, Object: object})
}

// AddComment appends a phase-boundary header comment.
func (c *Collector) AddComment(phase string) {
	c.Add(CategoryComment, "", fmt.Sprintf("-- === %s ===", phase))
}

// Clear resets the buffer.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// Entries returns a snapshot copy of the captured entries in capture order.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// CategoryCounts returns the number of captured entries per category,
// Comment included; TotalStatements is the figure that leaves Comment out.
func (c *Collector) CategoryCounts() map[Category]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[Category]int)
	for _, e := range c.entries {
		counts[e.Category]++
	}
	return counts
}

// TotalStatements returns sum(category counts) - Comment count, per
// spec.md §8's invariant.
func (c *Collector) TotalStatements() int {
	counts := c.CategoryCounts()
	total := 0
	for cat, n := range counts {
		if cat == CategoryComment {
			continue
		}
		total += n
	}
	return total
}

// GetScript returns the concatenation of every captured statement,
// interleaved with header comments, one statement per line.
func (c *Collector) GetScript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	for _, e := range c.entries {
		b.WriteString(e.SQL)
		if !strings.HasSuffix(strings.TrimSpace(e.SQL), ";") && e.Category != CategoryComment {
			b.WriteString(";")
		}
		b.WriteString("\n")
	}
	return b.String()
}
