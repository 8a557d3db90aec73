package schema

// CheckResult is the outcome of the CI gate over one run.
type CheckResult struct {
	Passed       bool                 `json:"passed"`
	Total        int                  `json:"total"`
	StatusCounts map[FilterStatus]int `json:"status_counts"`
	Failed       []FilterResult       `json:"failed"`
	Warned       []FilterResult       `json:"warned"`
	Errored      []ManifestEntry      `json:"errored"`
	Incomplete   []string             `json:"incomplete,omitempty"`
}
