package domain

// Gap is a window that was abandoned after exhausting its retry budget.
// Gaps are replayed at the start of later runs until they succeed.
type Gap struct {
	Window    Window `json:"window"`
	Reason    string `json:"reason"`
	Attempts  int    `json:"attempts"`
	CreatedAt int64  `json:"created_at"`
}
