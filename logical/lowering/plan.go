package lowering

import (
	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/functions"
	"github.com/rdf-fusion/rdffusion-go/logical"
)

// Plan runs the mandatory lowering step plus encoding placement. Every
// OptimizationLevel runs exactly these two steps: no expression
// simplifier or base optimizer pass runs at any level, so the level does
// not change the resulting plan.
func Plan(n logical.Node, level rdffusion.OptimizationLevel, registry *functions.Registry) (logical.Node, error) {
	lowered, err := Lower(n)
	if err != nil {
		return nil, err
	}
	switch level {
	case rdffusion.OptimizationNone, rdffusion.OptimizationDefault, rdffusion.OptimizationFull:
		return PlaceEncodings(lowered, registry), nil
	default:
		return PlaceEncodings(lowered, registry), nil
	}
}
