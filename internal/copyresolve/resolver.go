// Package copyresolve implements the fixed-point resolution loop for
// `copy`/`paste` chunk dependencies, including cycle detection, per the
// specification's §4.F.
package copyresolve

import (
	"fmt"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/codebraid/internal/chunk"
	"github.com/mvp-joe/codebraid/internal/message"
)

// Resolver attaches copy_targets to every chunk naming a `copy` and then
// resolves code in fixed-point passes, breaking cycles it finds along the
// way.
type Resolver struct {
	byName map[string]*chunk.Chunk
}

// New builds a Resolver over every named chunk in the document (chunks
// without a `name` option never participate as a copy target).
func New(named map[string]*chunk.Chunk) *Resolver {
	return &Resolver{byName: named}
}

// AttachTargets looks up every chunk's `copy` option (a `+`-joined list of
// names) against the named-chunk index, collecting "unknown name" errors
// early rather than failing on the first one.
func (r *Resolver) AttachTargets(chunks []*chunk.Chunk) error {
	var unknown []string
	for _, c := range chunks {
		if c.Options.Copy == "" {
			continue
		}
		for _, name := range strings.Split(c.Options.Copy, "+") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			target, ok := r.byName[name]
			if !ok {
				unknown = append(unknown, name)
				continue
			}
			c.CopyTargets = append(c.CopyTargets, target)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("copy: unknown name(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Resolve runs the fixed-point loop described in §4.F: repeatedly resolve
// any chunk whose targets are all ready, and when a pass makes no
// progress, run cycle detection and remove the offending chunks, attaching
// a traceback-style SourceError to each.
func (r *Resolver) Resolve(chunks []*chunk.Chunk) error {
	pending := map[*chunk.Chunk]bool{}
	for _, c := range chunks {
		if c.NeedsCopy() {
			pending[c] = true
		}
	}

	for len(pending) > 0 {
		progressed := false
		for c := range pending {
			if blocked, blocker := firstPreventExecTarget(c); blocked {
				delete(pending, c)
				attachCopyError(c, fmt.Sprintf("copy target %q cannot execute", blocker))
				progressed = true
				continue
			}
			if !c.ResolvedTargets() {
				continue
			}
			if err := c.CopyCode(); err != nil {
				attachCopyError(c, err.Error())
			}
			delete(pending, c)
			progressed = true
		}
		if progressed {
			continue
		}

		cycleNodes, err := detectCycle(pending)
		if err != nil {
			return fmt.Errorf("copy resolution: %w", err)
		}
		if len(cycleNodes) == 0 {
			return fmt.Errorf("copy resolution: no progress but no cycle detected (internal inconsistency)")
		}
		cycleDesc := describeCycle(cycleNodes)
		for _, c := range cycleNodes {
			attachCopyError(c, fmt.Sprintf("circular copy: %s", cycleDesc))
			delete(pending, c)
		}
	}
	return nil
}

func firstPreventExecTarget(c *chunk.Chunk) (bool, string) {
	for _, t := range c.CopyTargets {
		if t.Messages != nil && t.Messages.PreventExec {
			return true, t.Options.Name
		}
	}
	return false, ""
}

// attachCopyError uses CategoryCanExecSource rather than plain
// CategorySource: an unresolved copy (a cycle, or a target that itself
// cannot execute) must gate execution of the chunk it belongs to, not just
// mark it uncacheable.
func attachCopyError(c *chunk.Chunk, text string) {
	m := message.New(message.Error, message.CategoryCanExecSource, text)
	if c.Messages == nil {
		c.Messages = &message.Collector{}
	}
	c.Messages.Add(m)
}

// detectCycle builds a directed graph over the still-pending chunks (an
// edge c -> t for every copy target t also pending) and returns one full
// cycle's member chunks, found by a DFS over that dominikbraun/graph graph
// (built without cycle prevention, so every edge is added) which also
// recovers the actual path for the error message.
func detectCycle(pending map[*chunk.Chunk]bool) ([]*chunk.Chunk, error) {
	g := graph.New(func(c *chunk.Chunk) string { return c.Options.Name }, graph.Directed())
	for c := range pending {
		_ = g.AddVertex(c)
	}
	for c := range pending {
		for _, t := range c.CopyTargets {
			if !pending[t] {
				continue
			}
			if err := g.AddEdge(c.Options.Name, t.Options.Name); err != nil && err != graph.ErrEdgeAlreadyExists {
				return nil, fmt.Errorf("building copy graph: %w", err)
			}
		}
	}

	for start := range pending {
		if path := findCyclePath(g, start.Options.Name, map[string]bool{}, []string{}); path != nil {
			var nodes []*chunk.Chunk
			for _, name := range path {
				for c := range pending {
					if c.Options.Name == name {
						nodes = append(nodes, c)
						break
					}
				}
			}
			return nodes, nil
		}
	}
	return nil, nil
}

func findCyclePath(g graph.Graph[string, *chunk.Chunk], node string, visited map[string]bool, path []string) []string {
	if visited[node] {
		for i, n := range path {
			if n == node {
				return append(path[i:], node)
			}
		}
		return nil
	}
	visited[node] = true
	path = append(path, node)

	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil
	}
	for target := range adj[node] {
		if found := findCyclePath(g, target, visited, path); found != nil {
			return found
		}
	}
	return nil
}

func describeCycle(nodes []*chunk.Chunk) string {
	var names []string
	for _, c := range nodes {
		names = append(names, c.Options.Name)
	}
	return strings.Join(names, " → ")
}
