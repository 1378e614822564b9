// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package counsel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/grace-tui/internal/gemini"
	"github.com/jeranaias/grace-tui/internal/model"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type call struct {
	model    string
	contents []gemini.Content
	system   string
}

type fakeGen struct {
	mu         sync.Mutex
	configured bool
	calls      []call
	fn         func(model string, req *gemini.Request) (*gemini.Response, error)
}

func (f *fakeGen) IsConfigured() bool { return f.configured }

func (f *fakeGen) Generate(ctx context.Context, name string, req *gemini.Request) (*gemini.Response, error) {
	c := call{model: name, contents: append([]gemini.Content(nil), req.Contents...)}
	if req.SystemInstruction != nil && len(req.SystemInstruction.Parts) > 0 {
		c.system = req.SystemInstruction.Parts[0].Text
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	fn := f.fn
	f.mu.Unlock()
	return fn(name, req)
}

func (f *fakeGen) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeGen) Models() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.model)
	}
	return out
}

func textResp(text string) *gemini.Response {
	return &gemini.Response{Candidates: []gemini.Candidate{{Content: gemini.ModelContent(text)}}}
}

func echo() func(string, *gemini.Request) (*gemini.Response, error) {
	return func(_ string, req *gemini.Request) (*gemini.Response, error) {
		last := req.Contents[len(req.Contents)-1].Parts[0].Text
		return textResp("reply to: " + last), nil
	}
}

func failing() func(string, *gemini.Request) (*gemini.Response, error) {
	return func(string, *gemini.Request) (*gemini.Response, error) {
		return nil, &gemini.APIError{HTTPStatus: 503, Status: "UNAVAILABLE", Message: "down"}
	}
}

func testPersona(models ...string) Persona {
	p := DefaultPersona()
	if len(models) > 0 {
		p.Models = models
	}
	return p
}

func newController(t *testing.T, gen *fakeGen, p Persona, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(gen, p, opts...)
}

func startedController(t *testing.T, gen *fakeGen, p Persona, opts ...Option) *Controller {
	t.Helper()
	c := newController(t, gen, p, opts...)
	require.NoError(t, c.Start(context.Background()))
	return c
}

// =============================================================================
// START
// =============================================================================

func TestStart_FreshSession(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := newController(t, gen, testPersona("m1"))

	require.NoError(t, c.Start(context.Background()))

	snap := c.Snapshot()
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, model.RoleModel, snap.Messages[0].Role)
	assert.Equal(t, "reply to: "+DefaultOpeningPrompt, snap.Messages[0].Content)
	assert.True(t, snap.Started)
	assert.False(t, snap.Loading)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, DefaultSystemInstruction, calls[0].system)
	require.Len(t, calls[0].contents, 1)
	assert.Equal(t, gemini.RoleUser, calls[0].contents[0].Role)
}

func TestStart_FixedGreetingWithoutOpeningPrompt(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	p := testPersona("m1")
	p.OpeningPrompt = ""
	p.Greeting = "Welcome in."
	c := newController(t, gen, p)

	require.NoError(t, c.Start(context.Background()))
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Welcome in.", msgs[0].Content)
	assert.Empty(t, gen.Calls())
}

func TestStart_NotConfigured(t *testing.T) {
	gen := &fakeGen{configured: false, fn: echo()}
	c := newController(t, gen, testPersona())

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Contains(t, err.Error(), "cannot start session")
	assert.False(t, c.Started())
	assert.Empty(t, c.Messages())
	assert.Empty(t, gen.Calls())
}

func TestStart_AllCandidatesFail(t *testing.T) {
	gen := &fakeGen{configured: true, fn: failing()}
	c := newController(t, gen, testPersona("a", "b"))

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrStartFailed)
	assert.False(t, c.Started())
	assert.False(t, c.Loading())
	assert.Empty(t, c.Messages())
	assert.Equal(t, []string{"a", "b"}, gen.Models())
}

func TestStart_Twice(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))

	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyStarted)
	assert.Len(t, c.Messages(), 1)
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_EmptyInputIsNoop(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))
	before := len(gen.Calls())

	for _, in := range []string{"", "   ", "\n\t  \r\n"} {
		msg, err := c.Send(context.Background(), in)
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Nil(t, msg)
	}
	assert.Len(t, c.Messages(), 1)
	assert.Len(t, gen.Calls(), before)
}

func TestSend_NotStarted(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := newController(t, gen, testPersona("m"))

	_, err := c.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Empty(t, c.Messages())
	assert.Empty(t, gen.Calls())
}

func TestSend_Success(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))

	reply, err := c.Send(context.Background(), "I feel anxious")
	require.NoError(t, err)
	require.NotNil(t, reply)

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Equal(t, "I feel anxious", msgs[1].Content)
	assert.Equal(t, model.RoleModel, msgs[2].Role)
	assert.Equal(t, "reply to: I feel anxious", msgs[2].Content)
	assert.Equal(t, msgs[2].ID, reply.ID)
	assert.False(t, c.Loading())
}

func TestSend_ErrorObjectWithoutFallbackAppendsApology(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("only"))

	gen.fn = func(string, *gemini.Request) (*gemini.Response, error) {
		return &gemini.Response{Error: &gemini.ErrorBody{Code: 400, Message: "bad", Status: "INVALID_ARGUMENT"}}, nil
	}
	reply, err := c.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, DefaultApology, reply.Content)

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, DefaultApology, msgs[2].Content)
}

func TestSend_AllCandidatesFailAppendsOneApology(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("a", "b", "c"))
	gen.fn = failing()

	_, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, DefaultApology, msgs[2].Content)
	assert.Equal(t, []string{"a", "a", "b", "c"}, gen.Models())
}

func TestSend_FallbackStopsAtFirstSuccess(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("a", "b", "c"))

	gen.fn = func(name string, req *gemini.Request) (*gemini.Response, error) {
		if name == "a" {
			return nil, errors.New("connection refused")
		}
		return textResp("from " + name), nil
	}
	reply, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "from b", reply.Content)
	assert.Equal(t, []string{"a", "a", "b"}, gen.Models())
}

func TestSend_BlankTextCountsAsFailure(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("a", "b"))

	gen.fn = func(name string, _ *gemini.Request) (*gemini.Response, error) {
		if name == "a" {
			return textResp("   \n"), nil
		}
		return &gemini.Response{}, nil
	}
	reply, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, DefaultApology, reply.Content)
}

func TestSend_SequentialOrdering(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))

	_, err := c.Send(context.Background(), "A")
	require.NoError(t, err)
	_, err = c.Send(context.Background(), "B")
	require.NoError(t, err)

	var got []string
	for _, m := range c.Messages()[1:] {
		got = append(got, m.Content)
	}
	assert.Equal(t, []string{"A", "reply to: A", "B", "reply to: B"}, got)
}

func TestSend_NormalizesInput(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))

	_, err := c.Send(context.Background(), "  line one\r\nline two  ")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", c.Messages()[1].Content)
}

func TestSend_WhileLoadingIsNoop(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))

	ex, err := c.Begin("first")
	require.NoError(t, err)
	assert.True(t, c.Loading())
	callsBefore := len(gen.Calls())

	_, err = c.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.End(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyStarted)
	assert.Len(t, c.Messages(), 2)
	assert.Len(t, gen.Calls(), callsBefore)

	require.NotNil(t, ex.Complete(context.Background()))
	assert.False(t, c.Loading())
	assert.Len(t, c.Messages(), 3)
}

func TestSend_LoadingTrueOnlyWhileInFlight(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))
	assert.False(t, c.Loading())

	var sawLoading bool
	gen.fn = func(string, *gemini.Request) (*gemini.Response, error) {
		sawLoading = c.Loading()
		return textResp("ok"), nil
	}
	_, err := c.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.True(t, sawLoading)
	assert.False(t, c.Loading())

	gen.fn = failing()
	_, err = c.Send(context.Background(), "again")
	require.NoError(t, err)
	assert.False(t, c.Loading())
}

func TestSend_ConcurrentCallersOnlyOneProceeds(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	gen.fn = func(string, *gemini.Request) (*gemini.Response, error) {
		entered <- struct{}{}
		<-release
		return textResp("ok"), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "first")
		done <- err
	}()
	<-entered

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Send(context.Background(), "late")
			assert.ErrorIs(t, err, ErrBusy)
		}()
	}
	wg.Wait()

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, c.Messages(), 3)
}

// =============================================================================
// WIRE HISTORY
// =============================================================================

func TestWireHistory_OnlySuccessfulTurnsRecorded(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))

	_, err := c.Send(context.Background(), "A")
	require.NoError(t, err)

	gen.fn = failing()
	_, err = c.Send(context.Background(), "lost")
	require.NoError(t, err)

	gen.fn = echo()
	_, err = c.Send(context.Background(), "B")
	require.NoError(t, err)

	calls := gen.Calls()
	last := calls[len(calls)-1].contents
	var texts []string
	for _, ct := range last {
		texts = append(texts, ct.Parts[0].Text)
	}
	assert.Equal(t, []string{
		DefaultOpeningPrompt, "reply to: " + DefaultOpeningPrompt,
		"A", "reply to: A",
		"B",
	}, texts)
}

// =============================================================================
// END / RESET
// =============================================================================

func TestEnd_SendsHiddenClosingPrompt(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))

	reply, err := c.End(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "reply to: "+DefaultClosingPrompt, reply.Content)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleModel, msgs[1].Role)
	assert.True(t, c.Started())
	assert.False(t, c.Loading())
}

func TestEnd_FailureAppendsApology(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))
	gen.fn = failing()

	reply, err := c.End(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultApology, reply.Content)
	assert.Len(t, c.Messages(), 2)
}

func TestEnd_WithoutClosingPromptUsesFarewell(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	p := testPersona("m")
	p.ClosingPrompt = ""
	c := startedController(t, gen, p)
	before := len(gen.Calls())

	reply, err := c.End(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultFarewell, reply.Content)
	assert.Len(t, gen.Calls(), before)
}

func TestEnd_NotStarted(t *testing.T) {
	c := newController(t, &fakeGen{configured: true, fn: echo()}, testPersona("m"))
	_, err := c.End(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestReset_ClearsEverything(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))
	_, err := c.Send(context.Background(), "A")
	require.NoError(t, err)
	oldID := c.Snapshot().ID

	c.Reset()
	snap := c.Snapshot()
	assert.Zero(t, snap.Len())
	assert.False(t, snap.Started)
	assert.NotEqual(t, oldID, snap.ID)

	require.NoError(t, c.Start(context.Background()))
	calls := gen.Calls()
	assert.Len(t, calls[len(calls)-1].contents, 1, "history must restart after reset")
}

func TestReset_DropsLateReply(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))

	ex, err := c.Begin("are you there")
	require.NoError(t, err)
	require.NotNil(t, ex.User())

	c.Reset()
	assert.False(t, c.Loading())

	assert.Nil(t, ex.Complete(context.Background()))
	snap := c.Snapshot()
	assert.Zero(t, snap.Len())
	assert.False(t, snap.Started)
	assert.False(t, snap.Loading)
}

func TestExchange_CompleteIsIdempotent(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))

	ex, err := c.Begin("once")
	require.NoError(t, err)
	first := ex.Complete(context.Background())
	second := ex.Complete(context.Background())
	assert.Same(t, first, second)
	assert.Len(t, c.Messages(), 3)
}

func TestSend_CanceledContextAppendsApology(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("a", "b"))
	before := len(gen.Calls())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reply, err := c.Send(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, DefaultApology, reply.Content)
	assert.Len(t, gen.Calls(), before)
}

// =============================================================================
// OPTIONS
// =============================================================================

func TestOnChange_ReportsEveryMutation(t *testing.T) {
	var mu sync.Mutex
	var snaps []model.Snapshot
	gen := &fakeGen{configured: true, fn: echo()}
	c := newController(t, gen, testPersona("m"), OnChange(func(s model.Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	}))

	require.NoError(t, c.Start(context.Background()))
	_, err := c.Send(context.Background(), "hi")
	require.NoError(t, err)
	c.Reset()

	mu.Lock()
	defer mu.Unlock()
	// start: loading, done; send: user+loading, reply; reset
	require.Len(t, snaps, 5)
	assert.True(t, snaps[0].Loading)
	assert.Equal(t, 1, snaps[1].Len())
	assert.True(t, snaps[2].Loading)
	assert.Equal(t, 2, snaps[2].Len())
	assert.False(t, snaps[3].Loading)
	assert.Equal(t, 3, snaps[3].Len())
	assert.Zero(t, snaps[4].Len())
}

func TestWithClock(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local)
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"), WithClock(func() time.Time { return fixed }))
	assert.Equal(t, "09:30", c.Messages()[0].Clock())
}

func TestWithGenerationConfig(t *testing.T) {
	temp := 0.4
	var got *gemini.GenerationConfig
	gen := &fakeGen{configured: true, fn: func(_ string, req *gemini.Request) (*gemini.Response, error) {
		got = req.GenerationConfig
		return textResp("ok"), nil
	}}
	startedController(t, gen, testPersona("m"), WithGenerationConfig(&gemini.GenerationConfig{Temperature: &temp, MaxOutputTokens: 256}))
	require.NotNil(t, got)
	assert.Equal(t, 256, got.MaxOutputTokens)
}

func TestSetPersona_AppliesFromNextSession(t *testing.T) {
	gen := &fakeGen{configured: true, fn: echo()}
	c := startedController(t, gen, testPersona("m"))

	next := testPersona("m")
	next.Name = "Hope"
	c.SetPersona(next)
	assert.Equal(t, DefaultName, c.Persona().Name)

	c.Reset()
	assert.Equal(t, "Hope", c.Persona().Name)

	idle := testPersona("m")
	idle.Name = "Faith"
	c.SetPersona(idle)
	assert.Equal(t, "Faith", c.Persona().Name)
}
