package explainer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/reasoner/explainer"
	"github.com/c360/semreason/reasoner/rules"
	"github.com/c360/semreason/testutil"
	"github.com/c360/semreason/triple"
	"github.com/c360/semreason/vocabulary"
)

type chatServer struct {
	*httptest.Server
	calls   atomic.Int32
	lastReq atomic.Value // openai.ChatCompletionRequest
}

func newChatServer(t *testing.T, status int, content string) *chatServer {
	t.Helper()
	cs := &chatServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			cs.lastReq.Store(req)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(cs.Close)
	return cs
}

func newExplainer(t *testing.T, inner reasoner.Backend, url string) *explainer.Backend {
	t.Helper()
	b, err := explainer.New(inner, explainer.Config{BaseURL: url + "/v1", Model: "test-model", MaxLines: 3})
	require.NoError(t, err)
	return b
}

func TestNew_Validation(t *testing.T) {
	_, err := explainer.New(nil, explainer.Config{BaseURL: "http://x", Model: "m"})
	assert.True(t, errors.IsInvalid(err))

	_, err = explainer.New(rules.New(), explainer.Config{Model: "m"})
	assert.True(t, errors.IsInvalid(err))

	_, err = explainer.New(rules.New(), explainer.Config{BaseURL: "http://x"})
	assert.True(t, errors.IsInvalid(err))
}

func TestExplainInconsistency_AppendsSummary(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "Rex is typed as both an Animal\nand a Plant, which are disjoint.")
	b := newExplainer(t, rules.New(), srv.URL)

	lines, err := b.ExplainInconsistency(context.Background(), testutil.ContradictoryAnimalOntology())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[0], "[class_disjointness]")
	assert.Equal(t, explainer.SummaryPrefix+"Rex is typed as both an Animal and a Plant, which are disjoint.", lines[len(lines)-1])

	req := srv.lastReq.Load().(openai.ChatCompletionRequest)
	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.LessOrEqual(t, len(strings.Split(req.Messages[1].Content, "\n")), 3, "lines capped by MaxLines")
}

func TestExplainInconsistency_ConsistentSkipsModel(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "unused")
	b := newExplainer(t, rules.New(), srv.URL)

	lines, err := b.ExplainInconsistency(context.Background(), testutil.AnimalOntology())
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Equal(t, int32(0), srv.calls.Load())
}

func TestExplainInconsistency_ModelFailureDegrades(t *testing.T) {
	srv := newChatServer(t, http.StatusServiceUnavailable, "")
	b := newExplainer(t, rules.New(), srv.URL)

	lines, err := b.ExplainInconsistency(context.Background(), testutil.ContradictoryAnimalOntology())
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.False(t, strings.HasPrefix(line, explainer.SummaryPrefix))
	}
}

func TestExplainInconsistency_InnerErrorPropagates(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "unused")
	stub := testutil.NewStubBackend()
	stub.ExplainFunc = func(context.Context, triple.Dataset) ([]string, error) {
		return nil, errors.ErrBackendUnavailable
	}
	b := newExplainer(t, stub, srv.URL)

	_, err := b.ExplainInconsistency(context.Background(), testutil.ContradictoryAnimalOntology())
	assert.ErrorIs(t, err, errors.ErrBackendUnavailable)
}

func TestDelegation(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "unused")
	b := newExplainer(t, rules.New(), srv.URL)
	ctx := context.Background()

	assert.Equal(t, "rules+llm", b.Name())

	ok, err := b.CheckConsistency(ctx, testutil.AnimalOntology())
	require.NoError(t, err)
	assert.True(t, ok)

	lines, err := b.ExplainTriple(ctx, testutil.AnimalOntology(), testutil.T(testutil.Rex, vocabulary.RdfType, testutil.Mammal))
	require.NoError(t, err)
	assert.Contains(t, lines[0], "(by cax-sco)")

	plain := newExplainer(t, testutil.NewStubBackend(), srv.URL)
	lines, err = plain.ExplainTriple(ctx, testutil.AnimalOntology(), testutil.T(testutil.Rex, vocabulary.RdfType, testutil.Mammal))
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}
