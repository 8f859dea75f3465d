package contract

import (
	"context"

	"cs-chatbot-be/internal/model"

	"github.com/google/uuid"
)

type PolicyDocumentRepository interface {
	Create(ctx context.Context, doc *model.PolicyDocument) error
	Update(ctx context.Context, doc *model.PolicyDocument) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindById(ctx context.Context, id uuid.UUID) (*model.PolicyDocument, error)
	FindAll(ctx context.Context) ([]*model.PolicyDocument, error)
	Count(ctx context.Context) (int64, error)
}
