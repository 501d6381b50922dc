package domain

// CentralityMode names the strategy that produced centrality values
type CentralityMode string

const (
	CentralityModeExact   CentralityMode = "exact"
	CentralityModeSampled CentralityMode = "sampled"
)

// CentralityResult holds per-node graph metrics
type CentralityResult struct {
	NodeID                string  `json:"node_id" yaml:"node_id"`
	Betweenness           float64 `json:"betweenness" yaml:"betweenness"`
	NormalizedBetweenness float64 `json:"normalized_betweenness" yaml:"normalized_betweenness"`
	Closeness             float64 `json:"closeness" yaml:"closeness"`
	InDegree              int     `json:"in_degree" yaml:"in_degree"`
	OutDegree             int     `json:"out_degree" yaml:"out_degree"`
	InCycle               bool    `json:"in_cycle" yaml:"in_cycle"`
	CycleLength           int     `json:"cycle_length,omitempty" yaml:"cycle_length,omitempty"`
	SelfLoop              bool    `json:"self_loop,omitempty" yaml:"self_loop,omitempty"`
	Approximate           bool    `json:"approximate" yaml:"approximate"`
}

// GraphSummary describes the dependency graph of a run
type GraphSummary struct {
	Nodes         int            `json:"nodes" yaml:"nodes"`
	Edges         int            `json:"edges" yaml:"edges"`
	ExternalNodes int            `json:"external_nodes" yaml:"external_nodes"`
	Mode          CentralityMode `json:"mode" yaml:"mode"`
	Sources       int            `json:"sources" yaml:"sources"`
	Cycles        int            `json:"cycles" yaml:"cycles"`
	NodesInCycles int            `json:"nodes_in_cycles" yaml:"nodes_in_cycles"`
	LargestCycle  int            `json:"largest_cycle" yaml:"largest_cycle"`
	SelfLoops     int            `json:"self_loops" yaml:"self_loops"`
}

// GraphResult is the Graph Analyzer output for one run
type GraphResult struct {
	Summary    GraphSummary                `json:"summary" yaml:"summary"`
	Centrality map[string]CentralityResult `json:"centrality" yaml:"centrality"`
	Cycles     [][]string                  `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}
