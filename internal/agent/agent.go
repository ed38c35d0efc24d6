package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/sagekit/sage/internal/knowledge"
	"github.com/sagekit/sage/internal/model"
	"github.com/sagekit/sage/internal/progress"
)

// Generator is the chat-generation capability the agent drives.
// Any implementation with this shape is pluggable; the production one is
// model.Genkit.
type Generator interface {
	// Init warms the model, reporting progress milestones in [0.1, 0.5].
	Init(ctx context.Context, report progress.Func) error

	// Embedder returns the embedding capability, valid after Init.
	Embedder() ai.Embedder

	// Generate invokes the model with the given prompt messages, streaming
	// tokens to cb when non-nil, and returns the full response text.
	Generate(ctx context.Context, msgs []*ai.Message, cb model.StreamCallback) (string, error)
}

// Fetcher supplies externally sourced documents for the build-time pipeline.
// The production implementation is provider.Fetcher.
type Fetcher interface {
	FetchAll(ctx context.Context, report progress.Func) []knowledge.Document
}

// Config carries the agent's dependencies and tuning.
type Config struct {
	Generator Generator
	Fetcher   Fetcher
	Logger    *slog.Logger

	// Ingestion and retrieval tuning. Zero values use the package defaults,
	// except ChunkOverlap: zero is a valid explicit setting, so only
	// negative values fall back to the default.
	ChunkSize    int
	ChunkOverlap int
	EmbeddingDim int
	SearchTopK   int
}

// Defaults applied for zero-valued Config fields.
const (
	defaultEmbeddingDim = 768
	defaultSearchTopK   = 10
)

// validate checks required dependencies.
func (cfg Config) validate() error {
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	if cfg.Fetcher == nil {
		return errors.New("fetcher is required")
	}
	return nil
}

// Agent orchestrates the ingestion -> indexing -> retrieval -> generation
// pipeline for one conversation context.
//
// All pipeline state (index, chunker, embedder, chains) is instance-scoped:
// multiple independent agents coexist and tests construct isolated ones.
//
// Lifecycle: construct with New, call Initialize exactly once, then use the
// query methods. Initialization has no partial-success mode.
type Agent struct {
	generator Generator
	fetcher   Fetcher
	logger    *slog.Logger

	chunkSize    int
	chunkOverlap int
	embeddingDim int
	searchTopK   int

	mu      sync.RWMutex // guards state
	state   State
	chunker *knowledge.Chunker
	index   *knowledge.Index

	ingestMu sync.Mutex // serializes index writers (pipeline + EmbedTexts)

	stream tokenStream
}

// New creates an uninitialized Agent.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = knowledge.DefaultChunkSize
	}
	chunkOverlap := cfg.ChunkOverlap
	if chunkOverlap < 0 {
		chunkOverlap = knowledge.DefaultChunkOverlap
	}
	embeddingDim := cfg.EmbeddingDim
	if embeddingDim <= 0 {
		embeddingDim = defaultEmbeddingDim
	}
	searchTopK := cfg.SearchTopK
	if searchTopK <= 0 {
		searchTopK = defaultSearchTopK
	}

	return &Agent{
		generator:    cfg.Generator,
		fetcher:      cfg.Fetcher,
		logger:       logger,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		embeddingDim: embeddingDim,
		searchTopK:   searchTopK,
		state:        StateUninitialized,
	}, nil
}

// State returns the current lifecycle state.
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// requireReady gates query methods on a completed initialization.
func (a *Agent) requireReady() error {
	if s := a.State(); s != StateReady {
		return fmt.Errorf("%w: state is %s", ErrNotReady, s)
	}
	return nil
}

// IsVectorStoreEmpty reports whether the index holds no chunks.
// Valid only after Initialize has completed.
func (a *Agent) IsVectorStoreEmpty() bool {
	a.mu.RLock()
	ix := a.index
	a.mu.RUnlock()
	return ix == nil || ix.IsEmpty()
}

// Initialize drives the full startup sequence:
//
//  1. warm the chat-generation capability (progress 0.1 -> 0.5)
//  2. construct the embedder and chunker (0.6)
//  3. construct an empty vector index (0.7)
//  4. fetch provider data, chunk, embed and index it (0.8)
//  5. prepare the generation chains (0.9)
//  6. report 1.0 and transition to Ready
//
// Successive progress values are non-decreasing and reach 1.0 only on
// success. Any failure transitions the agent to Failed, leaves progress
// frozen below 1.0, and is returned wrapped in ErrInitialization; a fresh
// instance is required to retry.
func (a *Agent) Initialize(ctx context.Context, report progress.Func) (retErr error) {
	a.mu.Lock()
	if a.state != StateUninitialized {
		a.mu.Unlock()
		return fmt.Errorf("%w: state is %s", ErrAlreadyInitialized, a.state)
	}
	a.state = StateLoading
	a.mu.Unlock()

	report = monotonic(report)

	defer func() {
		if retErr != nil {
			a.setState(StateFailed)
			a.logger.Error("agent initialization failed", "error", retErr)
			retErr = fmt.Errorf("%w: %w", ErrInitialization, retErr)
		}
	}()

	// Step 1: model warm-up (reports 0.1 -> 0.5 internally).
	if err := a.generator.Init(ctx, report); err != nil {
		return fmt.Errorf("loading chat model: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Step 2: embedder and chunker.
	embedder := a.generator.Embedder()
	if embedder == nil {
		return errors.New("generator returned no embedder")
	}
	chunker, err := knowledge.NewChunker(a.chunkSize, a.chunkOverlap)
	if err != nil {
		return fmt.Errorf("constructing chunker: %w", err)
	}
	report.Emit(progress.Report{Message: "Preparing document pipeline...", Progress: 0.6})

	// Step 3: empty vector index.
	index, err := knowledge.NewIndex(embedder, a.embeddingDim, a.logger)
	if err != nil {
		return fmt.Errorf("constructing vector index: %w", err)
	}
	report.Emit(progress.Report{Message: "Vector index ready", Progress: 0.7})

	a.mu.Lock()
	a.chunker = chunker
	a.index = index
	a.mu.Unlock()

	// Step 4: provider ingestion (reports 0.8 internally).
	// Fetch failures are recoverable and already reflected in the progress
	// RAGUpdate; an embedding failure here is fatal.
	docs := a.fetcher.FetchAll(ctx, report)
	if err := ctx.Err(); err != nil {
		return err
	}
	if chunks := chunker.Split(docs); len(chunks) > 0 {
		a.ingestMu.Lock()
		_, err := index.Add(ctx, chunks)
		a.ingestMu.Unlock()
		if err != nil {
			return fmt.Errorf("indexing provider documents: %w", err)
		}
		a.logger.Info("provider documents indexed", "documents", len(docs), "chunks", len(chunks))
	}

	// Step 5: generation chains are assembled per query from static
	// templates; nothing to precompute beyond this point.
	report.Emit(progress.Report{Message: "Preparing prompt chains...", Progress: 0.9})
	if err := ctx.Err(); err != nil {
		return err
	}

	report.Emit(progress.Report{Message: "Ready", Progress: 1.0})
	a.setState(StateReady)
	a.logger.Info("agent ready", "index_size", index.Size())
	return nil
}

// monotonic wraps report so forwarded progress values never decrease,
// regardless of how the underlying stages interleave their milestones.
func monotonic(report progress.Func) progress.Func {
	if report == nil {
		return nil
	}
	var last float64
	return func(r progress.Report) {
		if r.Progress < last {
			r.Progress = last
		} else {
			last = r.Progress
		}
		report(r)
	}
}

// GenerateResponse answers the question through the context-grounded chain,
// streaming tokens to all subscribed sinks as they are produced.
//
// When the index is non-empty the question is embedded, the top-k most
// similar chunks are assembled into the context block in descending score
// order, and the chain is invoked with them. An empty index (or a degraded
// retrieval, see below) invokes the same chain with empty context.
//
// A retrieval embedding failure degrades to ungrounded generation; a vector
// dimension mismatch is a programming fault and fails loudly: the call is
// rejected with no answer and the agent moves to Failed.
//
// The returned text is the exact concatenation of all streamed tokens.
// On cancellation the invocation is abandoned and no text is returned;
// the agent stays Ready.
func (a *Agent) GenerateResponse(ctx context.Context, question string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}

	contextBlock, err := a.retrieveContext(ctx, question)
	if err != nil {
		a.stream.publish(TokenEvent{Err: err})
		return "", err
	}
	msgs := groundedMessages(question, contextBlock, time.Now())

	text, err := a.generator.Generate(ctx, msgs, func(ctx context.Context, token string) error {
		a.stream.publish(TokenEvent{Text: token})
		return ctx.Err()
	})
	if err != nil {
		// Tokens already delivered are not retracted; the terminal error
		// event marks the transcript unreliable.
		genErr := fmt.Errorf("%w: %w", ErrGeneration, err)
		a.stream.publish(TokenEvent{Err: genErr})
		return "", genErr
	}

	a.stream.publish(TokenEvent{Done: true})
	return text, nil
}

// retrieveContext embeds the question and formats the top-k retrieved
// chunks. Returns an empty block when the index is empty or retrieval
// degrades; a dimension fault moves the agent to Failed and is returned
// so the caller rejects the query.
func (a *Agent) retrieveContext(ctx context.Context, question string) (string, error) {
	a.mu.RLock()
	index := a.index
	a.mu.RUnlock()

	if index.IsEmpty() {
		return "", nil
	}

	results, err := index.Search(ctx, question, a.searchTopK)
	if err != nil {
		if errors.Is(err, knowledge.ErrDimension) {
			a.setState(StateFailed)
			a.logger.Error("vector dimension fault during retrieval", "error", err)
			return "", fmt.Errorf("retrieving context: %w", err)
		}
		a.logger.Warn("retrieval degraded to ungrounded generation", "error", err)
		return "", nil
	}
	return formatContext(results), nil
}

// GenerateDirectResponse answers through the default chain, with no
// retrieval and no context slot, regardless of index state. Non-streaming.
func (a *Agent) GenerateDirectResponse(ctx context.Context, question string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}

	text, err := a.generator.Generate(ctx, directMessages(question), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return text, nil
}

// EmbedTexts chunks, embeds, and indexes caller-supplied texts. This is the
// ad-hoc ingestion path for user notes, independent of provider fetch.
// Returns the number of chunks added.
func (a *Agent) EmbedTexts(ctx context.Context, texts []string) (int, error) {
	if err := a.requireReady(); err != nil {
		return 0, err
	}

	now := time.Now()
	docs := make([]knowledge.Document, 0, len(texts))
	for _, text := range texts {
		docs = append(docs, knowledge.Document{
			ID:      uuid.NewString(),
			Content: text,
			Metadata: knowledge.Metadata{
				Source:    "user",
				Type:      knowledge.TypeNote,
				Timestamp: now,
			},
		})
	}

	a.mu.RLock()
	chunker, index := a.chunker, a.index
	a.mu.RUnlock()

	chunks := chunker.Split(docs)
	if len(chunks) == 0 {
		return 0, nil
	}

	a.ingestMu.Lock()
	_, err := index.Add(ctx, chunks)
	a.ingestMu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("indexing texts: %w", err)
	}

	a.logger.Debug("texts embedded", "texts", len(texts), "chunks", len(chunks))
	return len(chunks), nil
}

// Subscribe registers a sink for generation token events. Multiple
// independent listeners are supported; each receives every event of every
// GenerateResponse call until its unsubscribe function is called.
func (a *Agent) Subscribe(sink TokenSink) (unsubscribe func()) {
	return a.stream.subscribe(sink)
}

// SetStreamingCallback replaces the single-slot token callback used by
// GenerateResponse. Passing nil clears it. New code should prefer
// Subscribe, which supports multiple listeners and terminal events.
func (a *Agent) SetStreamingCallback(cb StreamingCallback) {
	a.stream.setSlot(cb)
}
