package agent

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagekit/sage/internal/knowledge"
	"github.com/sagekit/sage/internal/log"
	"github.com/sagekit/sage/internal/model"
	"github.com/sagekit/sage/internal/progress"
)

const testDim = 32

// mockEmbedder implements ai.Embedder with deterministic bag-of-words
// vectors, so texts sharing words are genuinely more similar.
type mockEmbedder struct {
	dim       int // vector dimension; 0 means testDim
	failAfter int // fail once callCount exceeds this; 0 = never fail
	callCount int
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(api.Registry) {}

func (m *mockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if m.failAfter > 0 && m.callCount > m.failAfter {
		return nil, errors.New("embedding model unavailable")
	}

	dim := m.dim
	if dim == 0 {
		dim = testDim
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		text := ""
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		vec := make([]float32, dim)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(strings.Trim(word, ".,:?!\n")))
			vec[h.Sum32()%uint32(dim)]++
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}

// mockGenerator implements Generator.
type mockGenerator struct {
	initErr  error
	genErr   error
	tokens   []string // streamed then concatenated as the response
	embedder ai.Embedder

	blockUntilCancel bool // Generate waits for ctx cancellation

	lastMsgs []*ai.Message
	genCalls int
}

func (g *mockGenerator) Init(_ context.Context, report progress.Func) error {
	report.Emit(progress.Report{Message: "Loading chat model...", Progress: 0.1})
	if g.initErr != nil {
		return g.initErr
	}
	report.Emit(progress.Report{Message: "Chat model ready", Progress: 0.5})
	return nil
}

func (g *mockGenerator) Embedder() ai.Embedder { return g.embedder }

func (g *mockGenerator) Generate(ctx context.Context, msgs []*ai.Message, cb model.StreamCallback) (string, error) {
	g.genCalls++
	g.lastMsgs = msgs

	if g.blockUntilCancel {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if g.genErr != nil {
		return "", g.genErr
	}

	var full strings.Builder
	for _, tok := range g.tokens {
		if cb != nil {
			if err := cb(ctx, tok); err != nil {
				return "", err
			}
		}
		full.WriteString(tok)
	}
	return full.String(), nil
}

// mockFetcher implements Fetcher.
type mockFetcher struct {
	docs    []knowledge.Document
	reports []progress.Report
}

func (f *mockFetcher) FetchAll(_ context.Context, report progress.Func) []knowledge.Document {
	for _, r := range f.reports {
		report.Emit(r)
	}
	return f.docs
}

// systemText extracts the system message text from a prompt.
func systemText(t *testing.T, msgs []*ai.Message) string {
	t.Helper()
	require.NotEmpty(t, msgs)
	require.Equal(t, ai.RoleSystem, msgs[0].Role)
	require.NotEmpty(t, msgs[0].Content)
	return msgs[0].Content[0].Text
}

func newTestAgent(t *testing.T, gen *mockGenerator, fetcher *mockFetcher) *Agent {
	t.Helper()
	if gen.embedder == nil {
		gen.embedder = &mockEmbedder{}
	}
	a, err := New(Config{
		Generator:    gen,
		Fetcher:      fetcher,
		Logger:       log.NewNop(),
		ChunkSize:    500,
		ChunkOverlap: 50,
		EmbeddingDim: testDim,
	})
	require.NoError(t, err)
	return a
}

func readyAgent(t *testing.T, gen *mockGenerator, fetcher *mockFetcher) *Agent {
	t.Helper()
	a := newTestAgent(t, gen, fetcher)
	require.NoError(t, a.Initialize(context.Background(), nil))
	return a
}

func providerDocs(provider string, n, size int) []knowledge.Document {
	docs := make([]knowledge.Document, n)
	for i := range docs {
		docs[i] = knowledge.Document{
			ID:      provider + "-doc",
			Content: strings.Repeat("x", size),
			Metadata: knowledge.Metadata{
				Source: "provider", ProviderID: provider, Type: knowledge.TypeDocument,
			},
		}
	}
	return docs
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Fetcher: &mockFetcher{}}); err == nil {
		t.Error("New() without generator: want error")
	}
	if _, err := New(Config{Generator: &mockGenerator{}}); err == nil {
		t.Error("New() without fetcher: want error")
	}
}

func TestInitialize_Success(t *testing.T) {
	// Two providers contributing 3 and 2 items of 50 characters each with
	// chunkSize 500: one chunk per item, index size 5.
	fetcher := &mockFetcher{
		docs: append(providerDocs("p1", 3, 50), providerDocs("p2", 2, 50)...),
	}
	a := newTestAgent(t, &mockGenerator{}, fetcher)

	var reports []progress.Report
	err := a.Initialize(context.Background(), func(r progress.Report) {
		reports = append(reports, r)
	})
	require.NoError(t, err)

	assert.Equal(t, StateReady, a.State())
	assert.False(t, a.IsVectorStoreEmpty())
	assert.Equal(t, 5, a.index.Size())

	require.NotEmpty(t, reports)
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i].Progress, reports[i-1].Progress,
			"progress must be non-decreasing")
	}
	assert.Equal(t, 1.0, reports[len(reports)-1].Progress)
}

func TestInitialize_EmptyRegistryReachesReady(t *testing.T) {
	a := newTestAgent(t, &mockGenerator{}, &mockFetcher{})

	require.NoError(t, a.Initialize(context.Background(), nil))
	assert.Equal(t, StateReady, a.State())
	assert.True(t, a.IsVectorStoreEmpty())
}

func TestInitialize_ModelFailure(t *testing.T) {
	a := newTestAgent(t, &mockGenerator{initErr: errors.New("weights missing")}, &mockFetcher{})

	var reports []progress.Report
	err := a.Initialize(context.Background(), func(r progress.Report) {
		reports = append(reports, r)
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInitialization), "error = %v, want ErrInitialization", err)
	assert.Equal(t, StateFailed, a.State())
	for _, r := range reports {
		assert.Less(t, r.Progress, 1.0, "progress must stay below 1.0 on failure")
	}
}

func TestInitialize_EmbeddingFailureIsFatal(t *testing.T) {
	gen := &mockGenerator{embedder: &mockEmbedder{failAfter: 1, callCount: 1}}
	a := newTestAgent(t, gen, &mockFetcher{docs: providerDocs("p1", 1, 50)})

	err := a.Initialize(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInitialization))
	assert.Equal(t, StateFailed, a.State())
}

func TestInitialize_Twice(t *testing.T) {
	a := readyAgent(t, &mockGenerator{}, &mockFetcher{})

	err := a.Initialize(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrAlreadyInitialized), "error = %v, want ErrAlreadyInitialized", err)
	// The agent stays Ready; repeat initialization never tears it down.
	assert.Equal(t, StateReady, a.State())
}

func TestInitialize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newTestAgent(t, &mockGenerator{}, &mockFetcher{})
	err := a.Initialize(ctx, nil)

	require.Error(t, err)
	assert.Equal(t, StateFailed, a.State())
}

func TestInitialize_ForwardsIngestionErrors(t *testing.T) {
	fetcher := &mockFetcher{
		docs: providerDocs("p2", 2, 50),
		reports: []progress.Report{{
			Message:  "Syncing 2 items from 2 providers",
			Progress: 0.8,
			RAG:      &progress.RAGUpdate{Type: "provider-sync", Total: 2, Errors: 1, InProgress: true},
		}},
	}
	a := newTestAgent(t, &mockGenerator{}, fetcher)

	var ragErrors int
	require.NoError(t, a.Initialize(context.Background(), func(r progress.Report) {
		if r.RAG != nil && r.RAG.Errors > ragErrors {
			ragErrors = r.RAG.Errors
		}
	}))

	assert.GreaterOrEqual(t, ragErrors, 1)
	assert.Equal(t, 2, a.index.Size(), "healthy provider's chunks still indexed")
}

func TestGenerateResponse_NotReady(t *testing.T) {
	a := newTestAgent(t, &mockGenerator{}, &mockFetcher{})

	_, err := a.GenerateResponse(context.Background(), "hello")
	assert.True(t, errors.Is(err, ErrNotReady), "error = %v, want ErrNotReady", err)

	_, err = a.GenerateDirectResponse(context.Background(), "hello")
	assert.True(t, errors.Is(err, ErrNotReady))

	_, err = a.EmbedTexts(context.Background(), []string{"note"})
	assert.True(t, errors.Is(err, ErrNotReady))
}

func TestGenerateResponse_EmptyIndexUsesGroundedChainWithEmptyContext(t *testing.T) {
	gen := &mockGenerator{tokens: []string{"hi"}}
	a := readyAgent(t, gen, &mockFetcher{})

	text, err := a.GenerateResponse(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	system := systemText(t, gen.lastMsgs)
	assert.Contains(t, system, emptyContextNotice)
	assert.NotContains(t, system, groundedContextHeader)
}

func TestGenerateResponse_GroundsInRetrievedContext(t *testing.T) {
	calendar := "Event: Team Sync\nDate: 2024-01-01"
	email := "Invoice attached, please remit payment"
	fetcher := &mockFetcher{docs: []knowledge.Document{
		{ID: "d1", Content: calendar, Metadata: knowledge.Metadata{Type: knowledge.TypeCalendar}},
		{ID: "d2", Content: email, Metadata: knowledge.Metadata{Type: knowledge.TypeEmail}},
	}}
	gen := &mockGenerator{tokens: []string{"January 1st."}}
	a := readyAgent(t, gen, fetcher)

	_, err := a.GenerateResponse(context.Background(), "when is team sync")
	require.NoError(t, err)

	system := systemText(t, gen.lastMsgs)
	assert.Contains(t, system, groundedContextHeader)
	assert.Contains(t, system, calendar)
	// Best match first: the calendar chunk precedes the email chunk.
	assert.Less(t, strings.Index(system, calendar), strings.Index(system, email))
}

func TestGenerateResponse_QueryEmbeddingFailureDegrades(t *testing.T) {
	embedder := &mockEmbedder{}
	gen := &mockGenerator{tokens: []string{"ok"}, embedder: embedder}
	a := readyAgent(t, gen, &mockFetcher{docs: providerDocs("p1", 1, 50)})

	// All further embed calls fail: retrieval degrades, generation proceeds.
	embedder.failAfter = embedder.callCount

	text, err := a.GenerateResponse(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Contains(t, systemText(t, gen.lastMsgs), emptyContextNotice)
	assert.Equal(t, StateReady, a.State())
}

func TestGenerateResponse_DimensionFaultRejectsCall(t *testing.T) {
	embedder := &mockEmbedder{}
	gen := &mockGenerator{tokens: []string{"confident answer"}, embedder: embedder}
	a := readyAgent(t, gen, &mockFetcher{docs: providerDocs("p1", 1, 50)})

	var terminal TokenEvent
	unsubscribe := a.Subscribe(func(ev TokenEvent) {
		if ev.Err != nil {
			terminal = ev
		}
	})
	defer unsubscribe()

	// The query embedding comes back with the wrong dimension: a wiring
	// fault, not a transient failure.
	embedder.dim = testDim + 1

	text, err := a.GenerateResponse(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, knowledge.ErrDimension), "error = %v, want ErrDimension", err)
	assert.Empty(t, text, "no answer may be delivered on a dimension fault")
	assert.Equal(t, 0, gen.genCalls, "generation must not run")
	assert.Error(t, terminal.Err, "stream must end with an error event")
	assert.Equal(t, StateFailed, a.State())

	// The agent is unusable from here on.
	_, err = a.GenerateResponse(context.Background(), "anything")
	assert.True(t, errors.Is(err, ErrNotReady))
}

func TestNew_ZeroOverlapIsExplicit(t *testing.T) {
	cfg := Config{
		Generator:    &mockGenerator{},
		Fetcher:      &mockFetcher{},
		ChunkSize:    100,
		ChunkOverlap: 0,
	}
	a, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, a.chunkOverlap, "zero overlap is kept, not defaulted")

	cfg.ChunkOverlap = -1
	a, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, knowledge.DefaultChunkOverlap, a.chunkOverlap)
}

func TestGenerateResponse_GenerationError(t *testing.T) {
	gen := &mockGenerator{genErr: errors.New("model overloaded")}
	a := readyAgent(t, gen, &mockFetcher{})

	var terminal TokenEvent
	unsubscribe := a.Subscribe(func(ev TokenEvent) {
		if ev.Err != nil || ev.Done {
			terminal = ev
		}
	})
	defer unsubscribe()

	_, err := a.GenerateResponse(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneration), "error = %v, want ErrGeneration", err)
	assert.Error(t, terminal.Err, "stream must end with an error event")
	assert.Equal(t, StateReady, a.State(), "a failed query never invalidates the agent")
}

func TestGenerateResponse_Cancellation(t *testing.T) {
	gen := &mockGenerator{blockUntilCancel: true}
	a := readyAgent(t, gen, &mockFetcher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var text string
	var err error
	go func() {
		defer close(done)
		text, err = a.GenerateResponse(ctx, "hello")
	}()
	cancel()
	<-done

	require.Error(t, err)
	assert.Empty(t, text, "no partial text on cancellation")
	assert.Equal(t, StateReady, a.State(), "cancelling a query never invalidates the index")
}

func TestGenerateDirectResponse_BypassesRetrieval(t *testing.T) {
	gen := &mockGenerator{tokens: []string{"sure"}}
	a := readyAgent(t, gen, &mockFetcher{docs: providerDocs("p1", 2, 50)})

	text, err := a.GenerateDirectResponse(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "sure", text)

	system := systemText(t, gen.lastMsgs)
	assert.Equal(t, directSystemPrompt, system)
	assert.NotContains(t, system, groundedContextHeader)
}

func TestEmbedTexts(t *testing.T) {
	a := readyAgent(t, &mockGenerator{}, &mockFetcher{})
	require.True(t, a.IsVectorStoreEmpty())

	n, err := a.EmbedTexts(context.Background(), []string{"buy milk"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, a.IsVectorStoreEmpty())

	results, err := a.index.Search(context.Background(), "milk", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "buy milk", results[0].Chunk.Text)
	assert.Equal(t, knowledge.TypeNote, results[0].Chunk.Metadata.Type)
}

func TestEmbedTexts_EmptyInput(t *testing.T) {
	a := readyAgent(t, &mockGenerator{}, &mockFetcher{})

	n, err := a.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = a.EmbedTexts(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "empty content produces zero chunks")
}
