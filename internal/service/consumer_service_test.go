package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"cs-chatbot-be/internal/dto"
	"cs-chatbot-be/internal/model"
	"cs-chatbot-be/internal/repository/contract"
	"cs-chatbot-be/pkg/embedding"
	"cs-chatbot-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*model.PolicyDocument
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[uuid.UUID]*model.PolicyDocument)}
}

func (f *fakeDocRepo) Create(ctx context.Context, doc *model.PolicyDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.Id] = doc
	return nil
}

func (f *fakeDocRepo) Update(ctx context.Context, doc *model.PolicyDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.Id] = doc
	return nil
}

func (f *fakeDocRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeDocRepo) FindById(ctx context.Context, id uuid.UUID) (*model.PolicyDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocRepo) FindAll(ctx context.Context) ([]*model.PolicyDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.PolicyDocument, 0, len(f.docs))
	for _, doc := range f.docs {
		copied := *doc
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeDocRepo) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.docs)), nil
}

type fakeChunkStore struct {
	mu      sync.Mutex
	chunks  map[uuid.UUID][]*model.DocumentChunk
	deletes int
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{chunks: make(map[uuid.UUID][]*model.DocumentChunk)}
}

func (f *fakeChunkStore) CreateBulk(ctx context.Context, chunks []*model.DocumentChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range chunks {
		f.chunks[c.DocumentId] = append(f.chunks[c.DocumentId], c)
	}
	return nil
}

func (f *fakeChunkStore) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.chunks, documentId)
	f.deletes++
	return nil
}

func (f *fakeChunkStore) CountByDocumentId(ctx context.Context, documentId uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.chunks[documentId])), nil
}

func (f *fakeChunkStore) SearchSimilarWithScore(ctx context.Context, emb []float32, limit int, threshold float64) ([]*contract.ScoredChunk, error) {
	return nil, nil
}

func (f *fakeChunkStore) countFor(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks[id])
}

type fakeEmbeddingProvider struct{}

func (fakeEmbeddingProvider) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.5, 0.5}},
	}, nil
}

func TestConsumerIndexesDocumentAndEmitsEvent(t *testing.T) {
	docRepo := newFakeDocRepo()
	chunkStore := newFakeChunkStore()
	sink := &recordingSink{}

	doc := &model.PolicyDocument{
		Id:       uuid.New(),
		Title:    "Refund Policy",
		Content:  strings.Repeat("Refunds are available within 7 days. ", 100),
		Category: "refunds",
	}
	assert.NoError(t, docRepo.Create(context.Background(), doc))

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	topic := "EMBED_POLICY_DOCUMENT_TEST"
	svc := NewConsumerService(pubSub, topic, docRepo, chunkStore, fakeEmbeddingProvider{}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NoError(t, svc.Consume(ctx))

	payload, _ := json.Marshal(dto.PublishEmbedDocumentMessage{DocumentId: doc.Id})
	assert.NoError(t, pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)))

	// The indexed event is the last step of processing; wait for it.
	deadline := time.Now().Add(5 * time.Second)
	var indexed events.Event
	for time.Now().Before(deadline) {
		for _, ev := range sink.events() {
			if ev.EventType() == events.TypeDocumentIndexed {
				indexed = ev
			}
		}
		if indexed != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if indexed == nil {
		t.Fatal("no DOCUMENT_INDEXED event observed")
	}

	assert.Equal(t, doc.Id.String(), indexed.Payload()["document_id"])
	assert.Greater(t, chunkStore.countFor(doc.Id), 0, "chunks must be stored")

	stored, err := docRepo.FindById(context.Background(), doc.Id)
	assert.NoError(t, err)
	assert.True(t, stored.Indexed, "document must be marked indexed")
}

func TestConsumerAcksUnknownDocument(t *testing.T) {
	docRepo := newFakeDocRepo()
	chunkStore := newFakeChunkStore()
	sink := &recordingSink{}

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	topic := "EMBED_POLICY_DOCUMENT_TEST_UNKNOWN"
	svc := NewConsumerService(pubSub, topic, docRepo, chunkStore, fakeEmbeddingProvider{}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NoError(t, svc.Consume(ctx))

	payload, _ := json.Marshal(dto.PublishEmbedDocumentMessage{DocumentId: uuid.New()})
	assert.NoError(t, pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)))

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, sink.events(), "unknown document must not emit an indexed event")
	assert.Equal(t, 0, chunkStore.deletes)
}
