package firewall

import (
	"github.com/dominikbraun/graph"

	"github.com/defguard/defguard-core/internal/logging"
)

// acyclicAliasRefs builds a directed graph of alias-to-alias component
// references (Alias.AliasRefs) and returns the alias IDs at both ends of
// every reference edge that would close a cycle. Which edge of a cycle is
// the rejected one depends on map iteration order, so other members of the
// same cycle are not necessarily in the set. A cyclic alias reference must never be
// walked by resolveDestinations — doing so would recurse forever — so
// Compile treats a cyclic alias the same way it treats an unresolved one:
// skipped and logged (spec.md §4.D FirewallError::MissingAlias), rather
// than failing the whole compilation.
//
// graph.PreventCycles is used instead of hand-rolled DFS/recursion so a
// cycle is caught the moment the offending edge would be added, matching
// SPEC_FULL.md §2's domain-stack wiring for github.com/dominikbraun/graph.
func acyclicAliasRefs(aliases map[int64]*Alias) map[int64]bool {
	g := graph.New(graph.IntHash, graph.Directed(), graph.PreventCycles())
	for id := range aliases {
		_ = g.AddVertex(int(id))
	}

	broken := map[int64]bool{}
	log := logging.Component("firewall")
	for id, alias := range aliases {
		for _, ref := range alias.AliasRefs {
			if _, ok := aliases[ref]; !ok {
				continue
			}
			if err := g.AddEdge(int(id), int(ref)); err != nil {
				log.Warn("alias reference forms a cycle, skipping", "alias_id", id, "ref_alias_id", ref, "error", err)
				broken[id] = true
				broken[ref] = true
			}
		}
	}
	return broken
}
