package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/michaelbrown/rentdesk/internal/llm"
)

// Handler executes one tool call with decoded arguments and returns a
// payload for the model to read. Returned errors are captured by the
// dispatcher and turned into result data; they never propagate.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Result is the envelope every dispatch produces, success or not.
type Result struct {
	ToolCallID string
	Name       string
	Success    bool
	Payload    any
}

// Content renders the payload as the tool message body sent back to the
// model.
func (r Result) Content() string {
	data, err := json.Marshal(r.Payload)
	if err != nil {
		return `{"error":"unserializable_result"}`
	}
	return string(data)
}

// Registry maps tool names to handlers and dispatches finalized tool calls.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under the given tool name, replacing any previous
// registration.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}

// Dispatch runs one tool call and always returns a Result: unknown names,
// bad argument JSON, handler errors, and handler panics all become result
// payloads the model can react to.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall) (res Result) {
	res = Result{ToolCallID: call.ID, Name: call.Function.Name}

	defer func() {
		if rec := recover(); rec != nil {
			res.Success = false
			res.Payload = map[string]any{"error": fmt.Sprintf("tool panicked: %v", rec)}
		}
	}()

	h, ok := r.handlers[call.Function.Name]
	if !ok {
		res.Payload = map[string]any{"error": "unknown_tool"}
		return res
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		res.Payload = map[string]any{"error": "invalid_arguments"}
		return res
	}

	payload, err := h(ctx, args)
	if err != nil {
		res.Payload = map[string]any{"error": err.Error()}
		return res
	}

	res.Success = true
	res.Payload = payload
	return res
}

// DispatchAll runs the given tool calls concurrently and returns their
// results in input order.
func (r *Registry) DispatchAll(ctx context.Context, calls []llm.ToolCall) []Result {
	results := make([]Result, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			results[i] = r.Dispatch(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}
