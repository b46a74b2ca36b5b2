package llm

import (
	"reflect"
	"testing"
)

// decodeAll runs a full stream through the decoder in fixed-size chunks and
// returns every emitted event, including the end-of-stream flush.
func decodeAll(stream string, chunkSize int) []Event {
	d := NewFrameDecoder()
	var events []Event
	for i := 0; i < len(stream); i += chunkSize {
		end := i + chunkSize
		if end > len(stream) {
			end = len(stream)
		}
		events = append(events, d.Feed([]byte(stream[i:end]))...)
	}
	return append(events, d.Flush()...)
}

const sampleStream = ": keep-alive\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\r\n" +
	"\n" +
	"event: noise\n" +
	"data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"c1\",\"function\":{\"name\":\"search_customer_by_name\",\"arguments\":\"{\\\"na\"}}]}}]}\n" +
	"data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"function\":{\"arguments\":\"me\\\":\\\"Ali\\\"}\"}}]}}]}\n" +
	"data: [DONE]\n"

func TestDecoderChunkSizeIndependence(t *testing.T) {
	want := decodeAll(sampleStream, len(sampleStream))
	if len(want) == 0 {
		t.Fatal("expected events from the sample stream")
	}

	for _, size := range []int{1, 2, 3, 5, 7, 16, 64} {
		got := decodeAll(sampleStream, size)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("chunk size %d: events differ\ngot:  %+v\nwant: %+v", size, got, want)
		}
	}
}

func TestDecoderEventSequence(t *testing.T) {
	events := decodeAll(sampleStream, len(sampleStream))

	want := []Event{
		{Type: EventContentDelta, Content: "Hel"},
		{Type: EventContentDelta, Content: "lo"},
		{Type: EventToolCallDelta, ToolCall: ToolCall{
			ID:       "c1",
			Function: FunctionCall{Name: "search_customer_by_name", Arguments: `{"na`},
		}},
		{Type: EventToolCallDelta, ToolCall: ToolCall{
			Function: FunctionCall{Arguments: `me":"Ali"}`},
		}},
		{Type: EventStreamEnd},
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events differ\ngot:  %+v\nwant: %+v", events, want)
	}
}

func TestDecoderSplitJSONAcrossChunks(t *testing.T) {
	d := NewFrameDecoder()

	// The payload is split mid-JSON with no newline in sight: nothing may be
	// emitted or lost.
	events := d.Feed([]byte(`data: {"choices":[{"delta":{"content":"hi"}}`))
	if len(events) != 0 {
		t.Fatalf("partial line produced events: %+v", events)
	}

	events = d.Feed([]byte("]}\n"))
	if len(events) != 1 || events[0].Content != "hi" {
		t.Fatalf("got %+v, want single ContentDelta \"hi\"", events)
	}
}

func TestDecoderPushBackOnParseFailure(t *testing.T) {
	d := NewFrameDecoder()

	// A newline-terminated line with truncated JSON is kept, not discarded.
	events := d.Feed([]byte("data: {\"choices\"\n"))
	if len(events) != 0 {
		t.Fatalf("malformed line produced events: %+v", events)
	}

	// It blocks the queue while the stream is live...
	events = d.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n"))
	if len(events) != 0 {
		t.Fatalf("queue should be blocked behind the malformed line, got %+v", events)
	}

	// ...and is dropped at flush so the rest of the buffer still decodes.
	events = d.Flush()
	if len(events) != 1 || events[0].Content != "ok" {
		t.Fatalf("flush = %+v, want single ContentDelta \"ok\"", events)
	}
}

func TestDecoderDoneStopsProcessing(t *testing.T) {
	d := NewFrameDecoder()

	events := d.Feed([]byte("data: [DONE]\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n"))
	if len(events) != 1 || events[0].Type != EventStreamEnd {
		t.Fatalf("got %+v, want single StreamEnd", events)
	}

	if events := d.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n")); events != nil {
		t.Fatalf("feed after DONE produced events: %+v", events)
	}
	if events := d.Flush(); events != nil {
		t.Fatalf("flush after DONE produced events: %+v", events)
	}
}

func TestDecoderFlushTreatsFinalPartialLineAsComplete(t *testing.T) {
	d := NewFrameDecoder()

	// Socket closed before the final newline arrived.
	if events := d.Feed([]byte(`data: {"choices":[{"delta":{"content":"tail"}}]}`)); len(events) != 0 {
		t.Fatalf("unterminated line produced events: %+v", events)
	}
	events := d.Flush()
	if len(events) != 1 || events[0].Content != "tail" {
		t.Fatalf("flush = %+v, want single ContentDelta \"tail\"", events)
	}
}

func TestDecoderToolCallIndexDefaultsToZero(t *testing.T) {
	d := NewFrameDecoder()
	events := d.Feed([]byte("data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"id\":\"c9\",\"function\":{\"name\":\"f\"}}]}}]}\n"))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].ToolCall.Index != 0 {
		t.Errorf("index = %d, want 0", events[0].ToolCall.Index)
	}
}

func TestDecoderEmptyDeltaYieldsNoEvents(t *testing.T) {
	d := NewFrameDecoder()
	events := d.Feed([]byte("data: {\"choices\":[{\"delta\":{}}]}\n"))
	if len(events) != 0 {
		t.Fatalf("empty delta produced events: %+v", events)
	}
}
