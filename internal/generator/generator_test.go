package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokorolog/feedback-service/internal/diary"
	"github.com/kokorolog/feedback-service/internal/persona"
)

type fakeClient struct {
	calls     int
	responses []func() (*CompletionResponse, error)
}

func (f *fakeClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx]()
}

func succeed(content string) func() (*CompletionResponse, error) {
	return func() (*CompletionResponse, error) {
		return &CompletionResponse{Content: content, TokensUsed: 42}, nil
	}
}

func fail(err error) func() (*CompletionResponse, error) {
	return func() (*CompletionResponse, error) { return nil, err }
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.BaseDelay = time.Millisecond
	opts.MaxDelay = 10 * time.Millisecond
	return opts
}

func testPersona() persona.Persona {
	return persona.DefaultRoster()[0]
}

func testEntry() diary.Entry {
	return diary.Entry{
		ID:        1,
		UserID:    "user-1",
		Content:   "今日は朝から雨だったけど、カフェで読書ができて良い一日だった。",
		Mood:      diary.MoodHappy,
		CreatedAt: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestBackoffDelay(t *testing.T) {
	logger := zerolog.Nop()
	g := New(nil, DefaultOptions(), &logger)

	expected := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		30000 * time.Millisecond, // capped
		30000 * time.Millisecond,
	}
	for attempt, want := range expected {
		assert.Equal(t, want, g.backoffDelay(attempt), "attempt %d", attempt)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"rate limited", &APIError{StatusCode: http.StatusTooManyRequests}, KindRateLimit},
		{"server error", &APIError{StatusCode: http.StatusBadGateway}, KindServerError},
		{"unauthorized", &APIError{StatusCode: http.StatusUnauthorized}, KindAuth},
		{"forbidden", &APIError{StatusCode: http.StatusForbidden}, KindAuth},
		{"bad request", &APIError{StatusCode: http.StatusBadRequest}, KindBadRequest},
		{"teapot", &APIError{StatusCode: http.StatusTeapot}, KindUnknown},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("requesting completion: %w", context.DeadlineExceeded), KindTimeout},
		{"quota message", errors.New("insufficient quota remaining"), KindRateLimit},
		{"connection refused", errors.New("dial tcp: connection refused"), KindNetwork},
		{"mystery", errors.New("something odd"), KindUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestKindRetryable(t *testing.T) {
	assert.True(t, KindRateLimit.Retryable())
	assert.True(t, KindServerError.Retryable())
	assert.True(t, KindTimeout.Retryable())
	assert.True(t, KindNetwork.Retryable())
	assert.False(t, KindAuth.Retryable())
	assert.False(t, KindBadRequest.Retryable())
	assert.False(t, KindUnknown.Retryable())
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	logger := zerolog.Nop()
	client := &fakeClient{responses: []func() (*CompletionResponse, error){
		fail(&APIError{StatusCode: http.StatusInternalServerError}),
		fail(&APIError{StatusCode: http.StatusTooManyRequests}),
		succeed("今日も頑張ったね。雨の日の読書は心を整える大事な時間だよ。明日も良い一日になりますように。"),
	}}
	g := New(client, testOptions(), &logger)

	fb, err := g.Generate(context.Background(), testPersona(), testEntry(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, client.calls)
	assert.Equal(t, testPersona().ID, fb.PersonaID)
	assert.Equal(t, 42, fb.TokensUsed)
	assert.Equal(t, "gpt-4o", fb.Model)
}

func TestGenerateNonRetryableFailsImmediately(t *testing.T) {
	logger := zerolog.Nop()
	client := &fakeClient{responses: []func() (*CompletionResponse, error){
		fail(&APIError{StatusCode: http.StatusUnauthorized, Message: "invalid api key"}),
	}}
	g := New(client, testOptions(), &logger)

	_, err := g.Generate(context.Background(), testPersona(), testEntry(), nil)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, KindAuth, genErr.Kind)
	assert.Equal(t, 1, genErr.Attempts)
	assert.Equal(t, 1, client.calls)
}

func TestGenerateExhaustsRetries(t *testing.T) {
	logger := zerolog.Nop()
	client := &fakeClient{responses: []func() (*CompletionResponse, error){
		fail(&APIError{StatusCode: http.StatusTooManyRequests}),
	}}
	opts := testOptions()
	opts.MaxRetries = 2
	g := New(client, opts, &logger)

	_, err := g.Generate(context.Background(), testPersona(), testEntry(), nil)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, KindRateLimit, genErr.Kind)
	assert.Equal(t, 3, genErr.Attempts)
	assert.Equal(t, 3, client.calls)
}

func TestGenerateRejectsShortContent(t *testing.T) {
	logger := zerolog.Nop()
	client := &fakeClient{responses: []func() (*CompletionResponse, error){
		succeed("短いね"),
	}}
	g := New(client, testOptions(), &logger)

	_, err := g.Generate(context.Background(), testPersona(), testEntry(), nil)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, KindUnknown, genErr.Kind)
	assert.Equal(t, 1, client.calls, "content violations must not retry")
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	logger := zerolog.Nop()
	client := &fakeClient{responses: []func() (*CompletionResponse, error){
		fail(&APIError{StatusCode: http.StatusInternalServerError}),
	}}
	opts := testOptions()
	opts.BaseDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	g := New(client, opts, &logger)
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := g.Generate(ctx, testPersona(), testEntry(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	var genErr *GenerationError
	assert.False(t, errors.As(err, &genErr), "cancellation must not look like an API failure")
	assert.Equal(t, 1, client.calls)
}

func TestGenerateCancelledBeforeFirstAttempt(t *testing.T) {
	logger := zerolog.Nop()
	client := &fakeClient{responses: []func() (*CompletionResponse, error){
		succeed("今日も頑張ったね。雨の日の読書は心を整える大事な時間だよ。"),
	}}
	g := New(client, testOptions(), &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, testPersona(), testEntry(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, client.calls)
}
