package catalog

// BOXES is the adjacency map driving path generation: a positive key
// maps to the list of signed-integer child sequences that may follow
// it. StartingPoints lists the roots the generator walks from.
//
// The production catalog is an offline-generated artifact of roughly
// 1.5x10^6 entries produced by a separate tool from a much larger
// BOXES table than the one below; that generation step runs outside
// this engine, which treats the path catalog as a pre-computed
// constant input. What ships here is a small, hand-verified seed table
// that exercises branching, sign propagation on negative keys, and
// terminal paths end to end; no child sequence in it ends at its own
// key, so the cycle rule is not reached from this table. Swapping in the full generated table is a data change
// only — Build, Matcher, and the Level Function are all parameterized
// over the BOXES map and never assume this table's size or shape.
var BOXES = map[int][][]int{
	2000: {{1732, -1500}},
	1000: {{870, -750}},
	5000: {
		{4200, -3600},
		{3900},
	},
	3600: {{-3100}},
	3900: {{3300}},
}

// StartingPoints are the roots the generator walks from.
var StartingPoints = []int{2000, 1000, 5000}
