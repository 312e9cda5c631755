package nwscript

import (
	"slices"
	"strings"

	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

// assemble turns the concatenated pass output into the final result. members
// must already be in pass order: engine structures, functions, constants.
// Equal names keep that order.
func assemble(members []symbols.Symbol, enc Encoding) *symbols.FileResult {
	res := &symbols.FileResult{Members: members, Encoding: enc.String()}
	for _, m := range members {
		switch m.Kind {
		case symbols.KindEngineStructure:
			res.EngineStructureCount++
		case symbols.KindFunction:
			res.FunctionCount++
		case symbols.KindConstant:
			res.ConstantCount++
		}
	}
	slices.SortStableFunc(res.Members, func(a, b symbols.Symbol) int {
		return strings.Compare(a.Name, b.Name)
	})
	return res
}
