package service

import (
	"context"
	"encoding/json"
	"time"

	"cs-chatbot-be/internal/dto"
	"cs-chatbot-be/internal/model"
	"cs-chatbot-be/internal/pkg/logger"
	"cs-chatbot-be/internal/pkg/serverutils"
	"cs-chatbot-be/internal/repository/contract"

	"github.com/google/uuid"
)

// IDocumentService manages the policy corpus. Ingestion stores the raw
// document and hands embedding off to the consumer via the bus.
type IDocumentService interface {
	Ingest(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.DocumentResponse, error)
	List(ctx context.Context) ([]*dto.DocumentResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	docRepo          contract.PolicyDocumentRepository
	chunkRepo        contract.DocumentChunkRepository
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewDocumentService(
	docRepo contract.PolicyDocumentRepository,
	chunkRepo contract.DocumentChunkRepository,
	publisherService IPublisherService,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		docRepo:          docRepo,
		chunkRepo:        chunkRepo,
		publisherService: publisherService,
		logger:           log,
	}
}

func (ds *documentService) Ingest(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.DocumentResponse, error) {
	doc := model.PolicyDocument{
		Id:        uuid.New(),
		Title:     req.Title,
		Content:   req.Content,
		Category:  req.Category,
		CreatedAt: time.Now(),
	}

	if err := ds.docRepo.Create(ctx, &doc); err != nil {
		return nil, err
	}

	msgPayload := dto.PublishEmbedDocumentMessage{
		DocumentId: doc.Id,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}

	if err := ds.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	ds.logger.Info("DocumentService", "Document ingested, embedding queued", map[string]interface{}{
		"document_id": doc.Id,
		"title":       doc.Title,
	})

	return &dto.DocumentResponse{
		Id:        doc.Id,
		Title:     doc.Title,
		Category:  doc.Category,
		Indexed:   doc.Indexed,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (ds *documentService) List(ctx context.Context) ([]*dto.DocumentResponse, error) {
	docs, err := ds.docRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.DocumentResponse, len(docs))
	for i, doc := range docs {
		count, err := ds.chunkRepo.CountByDocumentId(ctx, doc.Id)
		if err != nil {
			return nil, err
		}
		res[i] = &dto.DocumentResponse{
			Id:         doc.Id,
			Title:      doc.Title,
			Category:   doc.Category,
			Indexed:    doc.Indexed,
			ChunkCount: count,
			CreatedAt:  doc.CreatedAt,
		}
	}
	return res, nil
}

func (ds *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := ds.docRepo.FindById(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return serverutils.ErrNotFound
	}

	if err := ds.chunkRepo.DeleteByDocumentId(ctx, id); err != nil {
		return err
	}
	return ds.docRepo.Delete(ctx, id)
}
