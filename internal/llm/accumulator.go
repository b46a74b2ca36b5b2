package llm

// ToolCallAccumulator reassembles tool calls whose name and arguments arrive
// spread across successive stream deltas, keyed by the backend-assigned index.
type ToolCallAccumulator struct {
	calls    map[int]*ToolCall
	maxIndex int
}

// NewToolCallAccumulator creates an empty accumulator.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{calls: make(map[int]*ToolCall)}
}

// Apply merges one incremental tool call delta. The first delta for an index
// establishes id and name; every delta appends its arguments fragment.
func (a *ToolCallAccumulator) Apply(delta ToolCall) {
	idx := delta.Index
	if idx > a.maxIndex {
		a.maxIndex = idx
	}
	existing, ok := a.calls[idx]
	if !ok {
		existing = &ToolCall{Index: idx, Type: "function"}
		a.calls[idx] = existing
	}
	// ID and name are set once and never overwritten by later fragments.
	if existing.ID == "" {
		existing.ID = delta.ID
	}
	if existing.Function.Name == "" {
		existing.Function.Name = delta.Function.Name
	}
	existing.Function.Arguments += delta.Function.Arguments
}

// Finalize returns the accumulated tool calls as a dense list in index order.
// Indexes the backend skipped simply produce no entry.
func (a *ToolCallAccumulator) Finalize() []ToolCall {
	out := make([]ToolCall, 0, len(a.calls))
	for i := 0; i <= a.maxIndex; i++ {
		if tc, ok := a.calls[i]; ok {
			out = append(out, *tc)
		}
	}
	return out
}
