package store

import "github.com/rdf-fusion/rdffusion-go"

// RoutingDecision names the concrete set of graphs a pattern scan must
// visit plus whether a graph column should be materialized, replacing
// the teacher's tier/engine routing decision (internal/federated_routing.go)
// with SPARQL's four active-graph modes.
type RoutingDecision struct {
	// Graphs is nil for AllNamed/UnionOfAll (meaning: every known named
	// graph), or the explicit set for NamedSet, or empty for DefaultOnly.
	Graphs          []string
	IncludeDefault  bool
	EmitGraphColumn bool
	Reason          string
}

// EvaluateActiveGraphRouting mirrors the teacher's EvaluateRoutingPolicy
// switch-on-strategy shape, here switching on ActiveGraphMode instead of
// a tiering strategy.
func EvaluateActiveGraphRouting(ag rdffusion.ActiveGraph, knownGraphs []string, wantGraphColumn bool) RoutingDecision {
	switch ag.Mode {
	case rdffusion.ActiveGraphDefaultOnly:
		return RoutingDecision{IncludeDefault: true, Reason: "default graph only"}
	case rdffusion.ActiveGraphNamedSet:
		graphs := make([]string, len(ag.Graphs))
		for i, g := range ag.Graphs {
			graphs[i] = g.IRI
		}
		return RoutingDecision{Graphs: graphs, EmitGraphColumn: wantGraphColumn, Reason: "explicit named set"}
	case rdffusion.ActiveGraphAllNamed:
		return RoutingDecision{Graphs: append([]string{}, knownGraphs...), EmitGraphColumn: wantGraphColumn, Reason: "all named graphs"}
	case rdffusion.ActiveGraphUnionOfAll:
		return RoutingDecision{
			Graphs:          append([]string{}, knownGraphs...),
			IncludeDefault:  true,
			EmitGraphColumn: wantGraphColumn,
			Reason:          "union of all graphs",
		}
	default:
		return RoutingDecision{IncludeDefault: true, Reason: "unknown mode - default"}
	}
}
