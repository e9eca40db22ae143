package repository

import (
	"errors"

	"chat-server/models"

	"gorm.io/gorm"
)

// MessageRepository is the direct-message store seam.
type MessageRepository interface {
	Create(msg *models.Message) error
	FindByID(id string) (*models.Message, error)
	// FindUndeliveredForUser returns every message addressed to userID that
	// is still in the sent state, oldest first.
	FindUndeliveredForUser(userID uint) ([]models.Message, error)
	Update(msg *models.Message) error
}

type gormMessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a gorm-backed MessageRepository.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(msg *models.Message) error {
	return r.db.Create(msg).Error
}

func (r *gormMessageRepository) FindByID(id string) (*models.Message, error) {
	var msg models.Message
	if err := r.db.First(&msg, "message_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (r *gormMessageRepository) FindUndeliveredForUser(userID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.
		Where("receiver_id = ? AND status = ?", userID, models.MessageStatusSent).
		Order("timestamp asc").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *gormMessageRepository) Update(msg *models.Message) error {
	return r.db.Save(msg).Error
}
