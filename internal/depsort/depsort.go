// Package depsort orders tables by their foreign-key dependencies so that,
// for every non-cycle edge, a referenced table is created before the table
// that references it. Tables participating in FK cycles are detected and
// deferred rather than causing failure.
package depsort

import (
	"sort"

	"github.com/relaydb/dbshift/internal/schema"
)

// CycleEdge is one foreign-key edge the sorter could not place acyclically;
// the orchestrator must defer it to the foreign-key phase.
type CycleEdge struct {
	From string // qualified name of the referencing table
	To   string // qualified name of the referenced table
	schema.ForeignKeySchema
}

// Result is the sorter's output: Order is the dependency-safe table order
// (cycle members appended, lexicographically, after all acyclic tables);
// Cycles lists every FK edge that participates in a cycle.
type Result struct {
	Order  []schema.TableSchema
	Cycles []CycleEdge
}

// Sort computes a topological order over tables using Kahn's algorithm with
// deterministic lexicographic-by-qualified-name tie-breaking. Self-
// references are treated as absent edges. Cycles are detected and their
// members are emitted, in lexicographic order, after every acyclic table;
// the edges that close a cycle are returned in Cycles so the orchestrator
// can defer them to the foreign-key phase. Sort never fails on a cycle.
func Sort(tables []schema.TableSchema) Result {
	byName := make(map[string]schema.TableSchema, len(tables))
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		q := t.QualifiedName()
		byName[q] = t
		names = append(names, q)
	}
	sort.Strings(names)

	// edges[a] = set of tables a depends on (must come before a), excluding
	// self-references and references to tables outside this set.
	edges := make(map[string]map[string]bool, len(names))
	// fkByEdge maps each (referencing, referenced) pair to its FK entries,
	// used for cycle reporting.
	fkByEdge := make(map[[2]string][]schema.ForeignKeySchema)
	for _, q := range names {
		edges[q] = map[string]bool{}
	}
	for _, q := range names {
		t := byName[q]
		for _, fk := range t.ForeignKeys {
			refQ := fk.RefSchema + "." + fk.RefTable
			if refQ == q {
				continue // self-reference, treated as absent
			}
			if _, ok := byName[refQ]; !ok {
				continue // reference outside this table set
			}
			edges[q][refQ] = true
			key := [2]string{q, refQ}
			fkByEdge[key] = append(fkByEdge[key], fk)
		}
	}

	// inDegree[a] counts how many dependencies a still has outstanding.
	inDegree := make(map[string]int, len(names))
	dependents := make(map[string][]string, len(names)) // refQ -> tables depending on it
	for _, q := range names {
		inDegree[q] = len(edges[q])
		for dep := range edges[q] {
			dependents[dep] = append(dependents[dep], q)
		}
	}
	for dep := range dependents {
		sort.Strings(dependents[dep])
	}

	var ready []string
	for _, q := range names {
		if inDegree[q] == 0 {
			ready = append(ready, q)
		}
	}
	sort.Strings(ready)

	var order []string
	visited := map[string]bool{}
	for len(ready) > 0 {
		// Pop the lexicographically smallest ready node.
		sort.Strings(ready)
		n := ready[0]
		ready = ready[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		order = append(order, n)
		for _, dependent := range dependents[n] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	var cycles []CycleEdge
	if len(order) < len(names) {
		remaining := make([]string, 0, len(names)-len(order))
		for _, q := range names {
			if !visited[q] {
				remaining = append(remaining, q)
			}
		}
		sort.Strings(remaining)
		remainingSet := make(map[string]bool, len(remaining))
		for _, q := range remaining {
			remainingSet[q] = true
		}
		for _, q := range remaining {
			for dep := range edges[q] {
				if remainingSet[dep] {
					for _, fk := range fkByEdge[[2]string{q, dep}] {
						cycles = append(cycles, CycleEdge{From: q, To: dep, ForeignKeySchema: fk})
					}
				}
			}
		}
		order = append(order, remaining...)
	}

	result := Result{Order: make([]schema.TableSchema, len(order))}
	for i, q := range order {
		result.Order[i] = byName[q]
	}
	result.Cycles = cycles
	return result
}
