package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cs-chatbot-be/internal/dto"
	"cs-chatbot-be/internal/model"
	"cs-chatbot-be/internal/repository/contract"
	"cs-chatbot-be/pkg/embedding"
	"cs-chatbot-be/pkg/events"
	"cs-chatbot-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the embedding topic: for each ingested document it
// splits the text, embeds every chunk and replaces the stored chunk rows.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	docRepo           contract.PolicyDocumentRepository
	chunkRepo         contract.DocumentChunkRepository
	embeddingProvider embedding.EmbeddingProvider
	eventSink         ISessionEventService
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	docRepo contract.PolicyDocumentRepository,
	chunkRepo contract.DocumentChunkRepository,
	embeddingProvider embedding.EmbeddingProvider,
	eventSink ISessionEventService,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		docRepo:           docRepo,
		chunkRepo:         chunkRepo,
		embeddingProvider: embeddingProvider,
		eventSink:         eventSink,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Processing embedding for document: %s", payload.DocumentId)

	doc, err := cs.docRepo.FindById(ctx, payload.DocumentId)
	if err != nil {
		log.Printf("[ERROR] Failed to get document %s: %v", payload.DocumentId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	if doc == nil {
		log.Printf("[ERROR] Document not found: %s", payload.DocumentId)
		msg.Ack() // Deleted before we got here? Ack.
		return
	}

	content := fmt.Sprintf(`Document Title: %s
Category: %s

%s

Created At: %s`,
		doc.Title,
		doc.Category,
		doc.Content,
		doc.CreatedAt.Format(time.RFC3339),
	)

	// ChunkSize 1500 chars (approx 375 tokens) keeps each chunk well under
	// the embedding context limit; 200 chars of overlap preserves context
	// at boundaries.
	chunks := utils.SplitText(content, 1500, 200)
	log.Printf("[INFO] Content split into %d chunks", len(chunks))

	newChunks := make([]*model.DocumentChunk, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := cs.embeddingProvider.Generate(chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			log.Printf("[ERROR] Failed to embed chunk %d of document %s: %v", i, payload.DocumentId, err)
			msg.Nack()
			return
		}

		newChunks = append(newChunks, &model.DocumentChunk{
			Id:             uuid.New(),
			Chunk:          chunk,
			EmbeddingValue: pgvector.NewVector(res.Embedding.Values),
			DocumentId:     doc.Id,
			ChunkIndex:     i,
			CreatedAt:      time.Now(),
		})
	}

	if err := cs.chunkRepo.DeleteByDocumentId(ctx, doc.Id); err != nil {
		log.Printf("[ERROR] Failed to delete old chunks: %v", err)
		msg.Nack()
		return
	}

	if err := cs.chunkRepo.CreateBulk(ctx, newChunks); err != nil {
		log.Printf("[ERROR] Failed to create chunks: %v", err)
		msg.Nack()
		return
	}

	doc.Indexed = true
	if err := cs.docRepo.Update(ctx, doc); err != nil {
		log.Printf("[ERROR] Failed to mark document indexed: %v", err)
		msg.Nack()
		return
	}

	cs.eventSink.Emit(events.NewDocumentIndexedEvent(doc.Id.String(), len(newChunks)))

	log.Printf("[SUCCESS] Document processed: %d chunks for %s", len(newChunks), payload.DocumentId)
	msg.Ack()
}
