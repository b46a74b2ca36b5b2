package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/michaelbrown/rentdesk/internal/llm"
	"github.com/michaelbrown/rentdesk/internal/tools"
)

// State is the orchestrator's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateToolExecuting
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateToolExecuting:
		return "tool_executing"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

var (
	// ErrBusy is returned when a turn is submitted while another is running.
	ErrBusy = errors.New("a turn is already in progress")

	// ErrTurnLimit is returned when consecutive tool-calling turns exceed the
	// safety limit.
	ErrTurnLimit = errors.New("tool-calling turn limit exceeded")
)

const defaultMaxTurns = 8

// Orchestrator owns one Conversation and drives request/stream/tool cycles
// against the chat backend until the model stops requesting tools.
type Orchestrator struct {
	client   *llm.Client
	registry *tools.Registry
	conv     Conversation
	maxTurns int

	mu    sync.Mutex
	state State
	route string

	// Optional observation hooks, called from the turn's goroutine.
	OnTextDelta  func(delta string)
	OnToolCall   func(name, arguments string)
	OnToolResult func(result tools.Result)
}

// New creates an orchestrator for one conversation. maxTurns bounds the
// number of request/stream exchanges a single user turn may trigger; values
// below 1 use the default.
func New(client *llm.Client, registry *tools.Registry, route string, maxTurns int) *Orchestrator {
	if maxTurns < 1 {
		maxTurns = defaultMaxTurns
	}
	return &Orchestrator{
		client:   client,
		registry: registry,
		route:    route,
		maxTurns: maxTurns,
	}
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SetRoute updates the UI route sent with each exchange.
func (o *Orchestrator) SetRoute(route string) {
	o.mu.Lock()
	o.route = route
	o.mu.Unlock()
}

// Messages returns a copy of the conversation log.
func (o *Orchestrator) Messages() []llm.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conv.Messages()
}

// Reset clears the conversation and returns to Idle. It is rejected while a
// turn is running and is the only way out of the Errored state.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle && o.state != StateErrored {
		return ErrBusy
	}
	o.conv.Reset()
	o.state = StateIdle
	return nil
}

// SubmitUserTurn appends a user message and drives the exchange loop until
// the model answers without requesting tools. Valid only from Idle.
//
// On 429/402/other transport failures the pending user message (and any
// partial progress of the turn) is rolled back so it can be resubmitted; the
// returned error is llm.ErrRateLimited, llm.ErrPaymentRequired, or a wrapped
// transport error. Cancellation keeps whatever partial answer already
// arrived. Exceeding the turn limit leaves the orchestrator in Errored.
func (o *Orchestrator) SubmitUserTurn(ctx context.Context, text string) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	o.state = StateSending
	mark := o.conv.Len()
	o.conv.Append(llm.UserMessage(text))
	o.mu.Unlock()

	return o.runTurn(ctx, mark)
}

// runTurn executes bounded exchange/tool cycles. mark is the conversation
// length to restore on rollback.
func (o *Orchestrator) runTurn(ctx context.Context, mark int) error {
	for turn := 0; turn < o.maxTurns; turn++ {
		calls, err := o.exchange(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled: the partial assistant message stays as-is.
				o.setState(StateIdle)
				return ctx.Err()
			}
			o.rollback(mark)
			o.setState(StateIdle)
			return err
		}

		if len(calls) == 0 {
			o.setState(StateIdle)
			return nil
		}

		o.setState(StateToolExecuting)
		results := o.registry.DispatchAll(ctx, calls)
		o.mu.Lock()
		for _, res := range results {
			o.conv.Append(llm.ToolResultMessage(res.ToolCallID, res.Content()))
		}
		o.mu.Unlock()
		for _, res := range results {
			if o.OnToolResult != nil {
				o.OnToolResult(res)
			}
		}

		// Continue the exchange with the tool outputs; no new user message.
		o.setState(StateSending)
	}

	o.setState(StateErrored)
	return ErrTurnLimit
}

// exchange drives one HTTP round trip: send the full log, stream the reply
// into the conversation, and return any finalized tool calls.
func (o *Orchestrator) exchange(ctx context.Context) ([]llm.ToolCall, error) {
	o.mu.Lock()
	messages := o.conv.Messages()
	route := o.route
	o.mu.Unlock()

	body, err := o.client.StartTurn(ctx, messages, route)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	o.setState(StateStreaming)

	dec := llm.NewFrameDecoder()
	acc := llm.NewToolCallAccumulator()
	asstIdx := -1

	apply := func(events []llm.Event) bool {
		for _, ev := range events {
			switch ev.Type {
			case llm.EventContentDelta:
				o.mu.Lock()
				if asstIdx < 0 {
					o.conv.Append(llm.AssistantMessage(""))
					asstIdx = o.conv.Len() - 1
				}
				o.conv.ExtendContent(asstIdx, ev.Content)
				o.mu.Unlock()
				if o.OnTextDelta != nil {
					o.OnTextDelta(ev.Content)
				}
			case llm.EventToolCallDelta:
				acc.Apply(ev.ToolCall)
			case llm.EventStreamEnd:
				return true
			}
		}
		return false
	}

	buf := make([]byte, 4096)
	ended := false
	for !ended {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			ended = apply(dec.Feed(buf[:n]))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading stream: %w", readErr)
		}
	}
	if !ended {
		// Socket closed without a [DONE]: flush the carry-over buffer.
		apply(dec.Flush())
	}

	calls := acc.Finalize()
	if len(calls) > 0 {
		o.mu.Lock()
		if asstIdx < 0 {
			o.conv.Append(llm.AssistantMessage(""))
			asstIdx = o.conv.Len() - 1
		}
		o.conv.SetToolCalls(asstIdx, calls)
		o.mu.Unlock()
		if o.OnToolCall != nil {
			for _, tc := range calls {
				o.OnToolCall(tc.Function.Name, tc.Function.Arguments)
			}
		}
	}
	return calls, nil
}

func (o *Orchestrator) rollback(mark int) {
	o.mu.Lock()
	o.conv.TruncateTo(mark)
	o.mu.Unlock()
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}
