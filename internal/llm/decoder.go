package llm

import (
	"encoding/json"
	"strings"
)

// EventType discriminates the protocol events a response stream produces.
type EventType int

const (
	// EventContentDelta carries an incremental fragment of assistant text.
	EventContentDelta EventType = iota
	// EventToolCallDelta carries a partial tool call keyed by its index.
	EventToolCallDelta
	// EventStreamEnd signals the [DONE] sentinel.
	EventStreamEnd
)

// Event is one decoded protocol event.
type Event struct {
	Type     EventType
	Content  string   // set for EventContentDelta
	ToolCall ToolCall // set for EventToolCallDelta; fields may be partial
}

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// FrameDecoder turns a raw, arbitrarily chunked byte stream into protocol
// events. Chunk boundaries may split a line or a JSON payload anywhere; the
// decoder carries partial data over between Feed calls so nothing is lost or
// duplicated.
type FrameDecoder struct {
	pending []string // complete lines waiting to be parsed
	tail    string   // trailing partial line, no terminating newline yet
	done    bool
}

// NewFrameDecoder creates a decoder for one response stream.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed appends a chunk and returns the events it completes. A line whose
// JSON payload does not parse yet stays queued and is retried on the next
// call, which handles a payload split across a chunk boundary.
func (d *FrameDecoder) Feed(chunk []byte) []Event {
	if d.done {
		return nil
	}
	d.tail += string(chunk)
	for {
		i := strings.IndexByte(d.tail, '\n')
		if i < 0 {
			break
		}
		d.pending = append(d.pending, d.tail[:i])
		d.tail = d.tail[i+1:]
	}
	return d.drain(false)
}

// Flush runs whatever is still buffered through the line parser after the
// stream has closed. The final unterminated line is treated as complete, and
// lines that still fail to parse are dropped rather than retried.
func (d *FrameDecoder) Flush() []Event {
	if d.done {
		return nil
	}
	if d.tail != "" {
		d.pending = append(d.pending, d.tail)
		d.tail = ""
	}
	return d.drain(true)
}

func (d *FrameDecoder) drain(final bool) []Event {
	var events []Event
	for len(d.pending) > 0 {
		line := strings.TrimSuffix(d.pending[0], "\r")

		// Blank lines, comments/keep-alives, and non-event lines are noise.
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, dataPrefix) {
			d.pending = d.pending[1:]
			continue
		}

		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == doneSentinel {
			d.done = true
			d.pending = nil
			return append(events, Event{Type: EventStreamEnd})
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			if !final {
				// Keep the line at the front of the queue; a later Feed may
				// complete it.
				return events
			}
			d.pending = d.pending[1:]
			continue
		}

		d.pending = d.pending[1:]
		events = append(events, chunk.events()...)
	}
	return events
}

// streamChunk is the JSON shape of one data: record.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    *int   `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c streamChunk) events() []Event {
	var events []Event
	for _, choice := range c.Choices {
		if choice.Delta.Content != "" {
			events = append(events, Event{Type: EventContentDelta, Content: choice.Delta.Content})
		}
		for _, tc := range choice.Delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			events = append(events, Event{
				Type: EventToolCallDelta,
				ToolCall: ToolCall{
					Index: idx,
					ID:    tc.ID,
					Function: FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				},
			})
		}
	}
	return events
}
