package implementation

import (
	"context"
	"errors"

	"cs-chatbot-be/internal/model"
	"cs-chatbot-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PolicyDocumentRepositoryImpl struct {
	db *gorm.DB
}

func NewPolicyDocumentRepository(db *gorm.DB) contract.PolicyDocumentRepository {
	return &PolicyDocumentRepositoryImpl{db: db}
}

func (r *PolicyDocumentRepositoryImpl) Create(ctx context.Context, doc *model.PolicyDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *PolicyDocumentRepositoryImpl) Update(ctx context.Context, doc *model.PolicyDocument) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *PolicyDocumentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.PolicyDocument{}, id).Error
}

func (r *PolicyDocumentRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*model.PolicyDocument, error) {
	var m model.PolicyDocument
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *PolicyDocumentRepositoryImpl) FindAll(ctx context.Context) ([]*model.PolicyDocument, error) {
	var models []*model.PolicyDocument
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

func (r *PolicyDocumentRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PolicyDocument{}).Count(&count).Error
	return count, err
}
