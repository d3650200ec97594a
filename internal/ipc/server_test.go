package ipc

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zpam/mailtype/pkg/ngram"
	"github.com/zpam/mailtype/pkg/predict"
)

func newTestPredictor(t *testing.T) *predict.Predictor {
	t.Helper()
	m, err := ngram.NewModel(3)
	require.NoError(t, err)
	m.Train(strings.Fields("please send me the report please send me the invoice i am happy i am sad i am happy"))
	return predict.New(m, 5)
}

func encodeRequests(t *testing.T, reqs ...Request) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	for _, r := range reqs {
		require.NoError(t, enc.Encode(r))
	}
	return &buf
}

func TestServeAnswersRequests(t *testing.T) {
	in := encodeRequests(t,
		Request{ID: "1", Text: "Could you please send", Limit: 3},
		Request{ID: "2", Text: "i am"},
		Request{ID: "3", Text: "hello"},
		Request{ID: "4", Text: "purple elephants"},
		Request{ID: "5", Action: "stats"},
		Request{ID: "6", Action: "reload"},
	)
	var out bytes.Buffer

	srv := NewServer(newTestPredictor(t), 1, in, &out)
	require.NoError(t, srv.Serve(context.Background()))

	dec := msgpack.NewDecoder(&out)

	var ready StatusResponse
	require.NoError(t, dec.Decode(&ready))
	assert.Equal(t, StatusReady, ready.Status)

	var r1 SuggestResponse
	require.NoError(t, dec.Decode(&r1))
	assert.Equal(t, "1", r1.ID)
	assert.Equal(t, "ok", r1.Status)
	assert.Equal(t, []string{"please", "send"}, r1.Context)
	assert.Equal(t, []string{"me"}, r1.Suggestions)

	var r2 SuggestResponse
	require.NoError(t, dec.Decode(&r2))
	assert.Equal(t, []string{"happy"}, r2.Suggestions, "limit is capped at max_limit")

	var r3 SuggestResponse
	require.NoError(t, dec.Decode(&r3))
	assert.Equal(t, "insufficient_context", r3.Status)
	assert.Empty(t, r3.Error)
	assert.Empty(t, r3.Suggestions)

	var r4 SuggestResponse
	require.NoError(t, dec.Decode(&r4))
	assert.Equal(t, "unknown_context", r4.Status)
	assert.Equal(t, []string{"purple", "elephants"}, r4.Context)

	var r5 StatsResponse
	require.NoError(t, dec.Decode(&r5))
	assert.Equal(t, "5", r5.ID)
	assert.Equal(t, 3, r5.Order)
	assert.Equal(t, uint64(5), r5.Requests)

	var r6 StatusResponse
	require.NoError(t, dec.Decode(&r6))
	assert.Equal(t, StatusError, r6.Status)
	assert.Contains(t, r6.Error, "unknown action")
}

func TestServeStopsOnEOF(t *testing.T) {
	var out bytes.Buffer
	srv := NewServer(newTestPredictor(t), 10, &bytes.Buffer{}, &out)
	require.NoError(t, srv.Serve(context.Background()))

	var ready StatusResponse
	require.NoError(t, msgpack.NewDecoder(&out).Decode(&ready))
	assert.Equal(t, StatusReady, ready.Status)
}

func TestServeRejectsGarbage(t *testing.T) {
	var out bytes.Buffer
	srv := NewServer(newTestPredictor(t), 10, strings.NewReader("\xc1"), &out)
	err := srv.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode request")

	dec := msgpack.NewDecoder(&out)
	var ready, failure StatusResponse
	require.NoError(t, dec.Decode(&ready))
	require.NoError(t, dec.Decode(&failure))
	assert.Equal(t, StatusError, failure.Status)
}

func TestServeHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := encodeRequests(t, Request{ID: "1", Text: "i am"})
	srv := NewServer(newTestPredictor(t), 10, in, &bytes.Buffer{})
	assert.ErrorIs(t, srv.Serve(ctx), context.Canceled)
}

func TestServeStopsWhenCancelledWhileWaiting(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	srv := NewServer(newTestPredictor(t), 10, pr, &out)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the context was cancelled")
	}
}

func TestServeAnswersThenStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outR, outW := io.Pipe()
	t.Cleanup(func() { outR.Close() })
	srv := NewServer(newTestPredictor(t), 10, pr, outW)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	dec := msgpack.NewDecoder(outR)
	var ready StatusResponse
	require.NoError(t, dec.Decode(&ready))

	go msgpack.NewEncoder(pw).Encode(Request{ID: "1", Text: "i am"})
	var resp SuggestResponse
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, []string{"happy", "sad"}, resp.Suggestions)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the context was cancelled")
	}
}
