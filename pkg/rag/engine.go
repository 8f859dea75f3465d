package rag

import (
	"context"
	"fmt"
	"time"

	"cs-chatbot-be/internal/pkg/logger"
	"cs-chatbot-be/internal/repository/contract"
	"cs-chatbot-be/pkg/embedding"
	"cs-chatbot-be/pkg/llm"
	"cs-chatbot-be/pkg/rag/prompt"

	"github.com/patrickmn/go-cache"
)

// AnswerEngine turns (memory, message) into a complete answer string. It is
// synchronous and may be slow; callers must not assume it can be interrupted
// mid-call.
type AnswerEngine interface {
	Chat(ctx context.Context, memory *Memory, message string) (string, error)
}

// ChatEngine is an AnswerEngine bound to one session's memory.
type ChatEngine interface {
	Chat(ctx context.Context, message string) (string, error)
}

// EngineFactory binds an answer engine to a session memory. The session
// store caches the bound engine per session.
type EngineFactory interface {
	NewChatEngine(memory *Memory) ChatEngine
}

type boundEngine struct {
	engine AnswerEngine
	memory *Memory
}

func (b *boundEngine) Chat(ctx context.Context, message string) (string, error) {
	return b.engine.Chat(ctx, b.memory, message)
}

// Bind wraps an AnswerEngine with a fixed memory handle.
func Bind(engine AnswerEngine, memory *Memory) ChatEngine {
	return &boundEngine{engine: engine, memory: memory}
}

// Engine is the retrieval-augmented answer engine over the policy corpus:
// embed the question, pull the nearest policy chunks from pgvector, build a
// support prompt and let the LLM answer with the session history attached.
type Engine struct {
	chunkRepo      contract.DocumentChunkRepository
	embedder       embedding.EmbeddingProvider
	llmProvider    llm.LLMProvider
	retrievalCache *cache.Cache
	topK           int
	minScore       float64
	logger         logger.ILogger
}

var _ AnswerEngine = &Engine{}
var _ EngineFactory = &Engine{}

func NewEngine(
	chunkRepo contract.DocumentChunkRepository,
	embedder embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	topK int,
	minScore float64,
	log logger.ILogger,
) *Engine {
	if topK <= 0 {
		topK = 5
	}
	if minScore <= 0 {
		minScore = 0.3
	}
	return &Engine{
		chunkRepo:      chunkRepo,
		embedder:       embedder,
		llmProvider:    llmProvider,
		retrievalCache: cache.New(10*time.Minute, 30*time.Minute),
		topK:           topK,
		minScore:       minScore,
		logger:         log,
	}
}

// NewChatEngine implements EngineFactory.
func (e *Engine) NewChatEngine(memory *Memory) ChatEngine {
	return Bind(e, memory)
}

func (e *Engine) Chat(ctx context.Context, memory *Memory, message string) (string, error) {
	passages, err := e.retrieve(ctx, message)
	if err != nil {
		return "", fmt.Errorf("retrieve policy context: %w", err)
	}

	turnPrompt := prompt.NewSupportBuilder(passages, message).Build()

	history := memory.History()
	history = append(history, llm.Message{Role: "user", Content: turnPrompt})

	answer, err := e.llmProvider.Chat(ctx, history, llm.WithTemperature(0.3))
	if err != nil {
		return "", fmt.Errorf("llm chat: %w", err)
	}

	// The memory keeps the raw question, not the expanded prompt, so
	// follow-up turns read like a conversation.
	memory.Append("user", message)
	memory.Append("assistant", answer)

	e.logger.Info("RagEngine", "Chat turn answered", map[string]interface{}{
		"passages":   len(passages),
		"answer_len": len(answer),
	})

	return answer, nil
}

// retrieve embeds the query and returns the nearest chunk texts above the
// relevance floor, so marginal matches never reach the prompt. Results are
// cached per query text since support questions repeat heavily.
func (e *Engine) retrieve(ctx context.Context, query string) ([]string, error) {
	if cached, found := e.retrievalCache.Get(query); found {
		return cached.([]string), nil
	}

	res, err := e.embedder.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := e.chunkRepo.SearchSimilarWithScore(ctx, res.Embedding.Values, e.topK, e.minScore)
	if err != nil {
		return nil, err
	}

	passages := make([]string, len(scored))
	for i, sc := range scored {
		passages[i] = sc.Chunk.Chunk
	}

	e.retrievalCache.Set(query, passages, cache.DefaultExpiration)
	return passages, nil
}
