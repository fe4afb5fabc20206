package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/openai/openai-go/v3/packages/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0madic/go-ocigenai/internal/types"
	"github.com/n0madic/go-ocigenai/internal/upstream"
)

type trackingBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackingBody) Close() error {
	b.closed.Store(true)
	return nil
}

type fakeTransport struct {
	body      io.Reader
	streaming bool
	err       error

	calls     int
	details   *types.ChatDetails
	gotStream bool
	resp      *trackingBody
}

func (f *fakeTransport) Chat(_ context.Context, d *types.ChatDetails, stream bool) (*upstream.Response, error) {
	f.calls++
	f.details = d
	f.gotStream = stream
	d.ChatRequest.SetStream(stream)
	if f.err != nil {
		return nil, f.err
	}
	f.resp = &trackingBody{Reader: f.body}
	return &upstream.Response{StatusCode: http.StatusOK, Body: f.resp, Streaming: f.streaming}, nil
}

func drain(ch <-chan types.StreamEvent) []types.StreamEvent {
	var out []types.StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func eventTypes(events []types.StreamEvent) []types.EventType {
	out := make([]types.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

var prompt = types.Prompt{types.SystemMessage("be brief"), types.UserText("hello")}

const genericReply = `{"chatResponse":{"apiFormat":"GENERIC","choices":[{"index":0,"message":{"role":"ASSISTANT","content":[{"type":"TEXT","text":"Hello there"}]},"finishReason":"stop"}],"usage":{"promptTokens":3,"completionTokens":2,"totalTokens":5}}}`

func TestGenerate(t *testing.T) {
	tr := &fakeTransport{body: strings.NewReader(genericReply)}
	e := New(tr, Config{CompartmentID: "ocid1.compartment.oc1..c"})

	res, err := e.Generate(context.Background(), prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", res.Text())
	assert.Equal(t, types.FinishStop, res.FinishReason)
	assert.Equal(t, types.Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}, res.Usage)
	assert.Empty(t, res.Warnings)

	assert.False(t, tr.gotStream)
	assert.True(t, tr.resp.closed.Load())
	assert.Equal(t, "ocid1.compartment.oc1..c", tr.details.CompartmentID)
	assert.Equal(t, types.OnDemand("meta.llama-3.3-70b-instruct"), tr.details.ServingMode)
	assert.Equal(t, "GENERIC", tr.details.ChatRequest.APIFormat())
}

func TestGenerateDedicatedEndpointAndWarnings(t *testing.T) {
	tr := &fakeTransport{body: strings.NewReader(genericReply)}
	e := New(tr, Config{CompartmentID: "default"})

	res, err := e.Generate(context.Background(), prompt, nil, Options{
		Model:         "xai.grok-4",
		EndpointID:    "ocid1.generativeaiendpoint.oc1..e",
		CompartmentID: "override",
		Generation: types.GenerationOptions{
			FrequencyPenalty: param.NewOpt(0.5),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, types.Dedicated("ocid1.generativeaiendpoint.oc1..e"), tr.details.ServingMode)
	assert.Equal(t, "override", tr.details.CompartmentID)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "frequencyPenalty", res.Warnings[0].Setting)
	assert.Nil(t, tr.details.ChatRequest.(*types.GenericChatRequest).FrequencyPenalty)
}

func TestGenerateCollectsStreamedReply(t *testing.T) {
	body := `data: {"message":{"content":[{"type":"TEXT","text":"Hel"}]}}

data: {"message":{"content":[{"type":"TEXT","text":"lo"}],"toolCalls":[{"id":"c1","type":"FUNCTION","name":"f","arguments":"{}"}]}}

data: {"finishReason":"stop","usage":{"inputTokens":1,"outputTokens":2}}

`
	tr := &fakeTransport{body: strings.NewReader(body), streaming: true}
	res, err := New(tr, Config{}).Generate(context.Background(), prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"})
	require.NoError(t, err)

	require.Len(t, res.Content, 2)
	assert.Equal(t, types.ContentBlock{Type: types.BlockText, Text: "Hello"}, res.Content[0])
	assert.Equal(t, "c1", res.Content[1].ToolCallID)
	assert.Equal(t, types.FinishToolCalls, res.FinishReason)
	assert.Equal(t, "stop", res.RawFinishReason)
	assert.Equal(t, int64(3), res.Usage.TotalTokens)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("upstream status", func(t *testing.T) {
		tr := &fakeTransport{err: &upstream.UpstreamError{
			StatusCode: http.StatusUnauthorized,
			Body:       []byte(`{"code":"NotAuthenticated","message":"bad token"}`),
		}}
		_, err := New(tr, Config{}).Generate(context.Background(), prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"})
		var te *types.Error
		require.True(t, errors.As(err, &te))
		assert.Equal(t, types.ErrorKindTransport, te.Kind)
		assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
		assert.Contains(t, te.Message, "bad token")
		assert.Contains(t, te.Message, "hint: check the access token")
		var ue *upstream.UpstreamError
		assert.True(t, errors.As(err, &ue))
	})

	t.Run("connection", func(t *testing.T) {
		tr := &fakeTransport{err: errors.New("dial tcp: connection refused")}
		_, err := New(tr, Config{}).Generate(context.Background(), prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"})
		var te *types.Error
		require.True(t, errors.As(err, &te))
		assert.Equal(t, types.ErrorKindTransport, te.Kind)
		assert.Equal(t, "dial tcp: connection refused", te.Message)
	})

	t.Run("parse", func(t *testing.T) {
		tr := &fakeTransport{body: strings.NewReader("<html>")}
		_, err := New(tr, Config{}).Generate(context.Background(), prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"})
		var te *types.Error
		require.True(t, errors.As(err, &te))
		assert.Equal(t, types.ErrorKindParse, te.Kind)
	})

	t.Run("validation", func(t *testing.T) {
		tr := &fakeTransport{}
		_, err := New(tr, Config{}).Generate(context.Background(), prompt, nil, Options{})
		var te *types.Error
		require.True(t, errors.As(err, &te))
		assert.Equal(t, types.ErrorKindValidation, te.Kind)

		_, err = New(tr, Config{}).Generate(context.Background(), nil, nil, Options{Model: "meta.llama-3.3-70b-instruct"})
		require.True(t, errors.As(err, &te))
		assert.Equal(t, types.ErrorKindValidation, te.Kind)
		assert.Zero(t, tr.calls)
	})

	t.Run("cancelled", func(t *testing.T) {
		tr := &fakeTransport{body: strings.NewReader(genericReply)}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(tr, Config{}).Generate(ctx, prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"})
		var te *types.Error
		require.True(t, errors.As(err, &te))
		assert.True(t, te.IsCancelled())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, tr.calls)
	})
}

func TestStream(t *testing.T) {
	body := `data: {"message":{"content":[{"type":"TEXT","text":"Hi"}]}}

data: {"finishReason":"stop"}

data: [DONE]

`
	tr := &fakeTransport{body: strings.NewReader(body), streaming: true}
	e := New(tr, Config{})
	events := drain(e.Stream(context.Background(), prompt, nil, Options{
		Model:      "xai.grok-4",
		Generation: types.GenerationOptions{StopSequences: []string{"END"}},
	}))

	assert.Equal(t, []types.EventType{
		types.EventStreamStart, types.EventTextStart, types.EventTextDelta, types.EventTextEnd, types.EventFinish,
	}, eventTypes(events))
	require.Len(t, events[0].Warnings, 1)
	assert.Equal(t, "stopSequences", events[0].Warnings[0].Setting)
	assert.Equal(t, types.FinishStop, events[4].FinishReason)
	assert.True(t, tr.gotStream)
	assert.True(t, tr.resp.closed.Load())
}

func TestStreamSimulatesJSONReply(t *testing.T) {
	long := strings.Repeat("a", 40)
	reply := `{"chatResponse":{"choices":[{"message":{"content":[{"type":"TEXT","text":"` + long + `"}]},"finishReason":"MAX_TOKENS"}]}}`
	tr := &fakeTransport{body: strings.NewReader(reply)}
	events := drain(New(tr, Config{}).Stream(context.Background(), prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"}))

	assert.Equal(t, []types.EventType{
		types.EventStreamStart, types.EventTextStart, types.EventTextDelta, types.EventTextDelta, types.EventTextEnd, types.EventFinish,
	}, eventTypes(events))
	assert.Len(t, events[2].Delta, 32)
	assert.Len(t, events[3].Delta, 8)
	assert.Equal(t, types.FinishLength, events[5].FinishReason)
}

func TestStreamTransportError(t *testing.T) {
	tr := &fakeTransport{err: &upstream.UpstreamError{StatusCode: http.StatusServiceUnavailable}}
	events := drain(New(tr, Config{}).Stream(context.Background(), prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"}))
	require.Len(t, events, 1)
	assert.Equal(t, types.EventError, events[0].Type)
	assert.Equal(t, types.ErrorKindTransport, events[0].Error.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, events[0].Error.StatusCode)
	assert.Equal(t, 1, strings.Count(events[0].Error.Message, "hint:"))
}

func TestStreamCancelledBeforeCall(t *testing.T) {
	tr := &fakeTransport{body: strings.NewReader("")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	events := drain(New(tr, Config{}).Stream(ctx, prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"}))
	require.Len(t, events, 1)
	assert.True(t, events[0].Error.IsCancelled())
	assert.Zero(t, tr.calls)
}

func TestStreamReadErrorAfterStart(t *testing.T) {
	body := io.MultiReader(
		strings.NewReader("data: {\"message\":{\"content\":[{\"type\":\"TEXT\",\"text\":\"par\"}]}}\n\n"),
		iotest.ErrReader(errors.New("unexpected EOF")),
	)
	tr := &fakeTransport{body: body, streaming: true}
	events := drain(New(tr, Config{}).Stream(context.Background(), prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"}))

	assert.Equal(t, []types.EventType{
		types.EventStreamStart, types.EventTextStart, types.EventTextDelta, types.EventError,
	}, eventTypes(events))
	last := events[len(events)-1]
	assert.Equal(t, types.ErrorKindTransport, last.Error.Kind)
	assert.Contains(t, last.Error.Message, "unexpected EOF")
	assert.True(t, tr.resp.closed.Load())
}

func TestHintDescriber(t *testing.T) {
	d := HintDescriber{}
	assert.Equal(t, "boom", d.Describe(&types.Error{Kind: types.ErrorKindTransport, Message: "boom"}))
	assert.Equal(t, "boom (hint: the service is rate limiting requests)",
		d.Describe(&types.Error{Kind: types.ErrorKindTransport, StatusCode: http.StatusTooManyRequests, Message: "boom"}))
	assert.Contains(t, d.Describe(&types.Error{StatusCode: http.StatusBadGateway, Message: "x"}), "try again later")
}

func TestStreamReleasesBodyWhenCallerStopsReading(t *testing.T) {
	frame := "data: {\"message\":{\"content\":[{\"type\":\"TEXT\",\"text\":\"x\"}]}}\n\n"
	tr := &fakeTransport{body: strings.NewReader(strings.Repeat(frame, 100)), streaming: true}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := New(tr, Config{}).Stream(ctx, prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"})
	first := <-ch
	require.Equal(t, types.EventStreamStart, first.Type)
	cancel()

	assert.Eventually(t, func() bool { return tr.resp.closed.Load() }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamSimulatedReplyWithRepeatedToolCall(t *testing.T) {
	reply := `{"chatResponse":{"apiFormat":"GENERIC","choices":[{"message":{"role":"ASSISTANT",` +
		`"content":[{"type":"TOOL_CALL","id":"call_a","name":"lookup","arguments":"{}"}],` +
		`"toolCalls":[{"id":"call_a","type":"FUNCTION","name":"lookup","arguments":"{}"}]},"finishReason":"tool_calls"}]}}`

	events := drain(New(&fakeTransport{body: strings.NewReader(reply)}, Config{}).
		Stream(context.Background(), prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"}))
	assert.Equal(t, []types.EventType{
		types.EventStreamStart,
		types.EventToolInputStart, types.EventToolInputDelta, types.EventToolInputEnd, types.EventToolCall,
		types.EventFinish,
	}, eventTypes(events))

	res, err := New(&fakeTransport{body: strings.NewReader(reply)}, Config{}).
		Generate(context.Background(), prompt, nil, Options{Model: "meta.llama-3.3-70b-instruct"})
	require.NoError(t, err)
	assert.Len(t, res.ToolCalls(), 1)
}
