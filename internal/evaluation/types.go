package evaluation

// Query is one ranking to evaluate.
type Query[ID comparable] struct {
	ID     string
	Ranked RankedList[ID]
}

// QueryResult contains metrics for a single query
type QueryResult struct {
	QueryID   string             `json:"query_id"`
	Scores    map[string]float64 `json:"scores"` // canonical metric name -> score
	Retrieved int                `json:"retrieved"`
	Relevant  int                `json:"relevant"`
	Unjudged  bool               `json:"unjudged,omitempty"` // no judgments were loaded for the query
}

// Summary aggregates metrics across multiple queries
type Summary struct {
	RunID      string             `json:"run_id,omitempty"`
	QueryCount int                `json:"query_count"`
	Unjudged   int                `json:"unjudged"`
	Means      map[string]float64 `json:"means"`
}

// BatchResult is the outcome of one EvaluateBatch call.
type BatchResult struct {
	RunID   string         `json:"run_id"`
	Results []*QueryResult `json:"results"`
	Summary Summary        `json:"summary"`
}
