package optable

import (
	"io"

	"github.com/bradleyjkemp/memviz"
)

// WriteGraph renders both the primary and CB-prefixed opcode tables to
// Graphviz dot via memviz, so `dmgcore disasm --graph` can be piped straight
// into `dot -Tsvg`. memviz walks arbitrary Go values into a memory-layout
// graph; here it's pointed at the tables themselves rather than at live
// interpreter state, since the tables are the one part of this package
// meant to be inspected as data.
func WriteGraph(w io.Writer) {
	tables := struct {
		Primary [256]Entry
		CB      [256]Entry
	}{Table(), CBTable()}
	memviz.Map(w, &tables)
}
