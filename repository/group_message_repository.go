package repository

import (
	"errors"

	"chat-server/models"

	"gorm.io/gorm"
)

// GroupMessageRepository is the group-message store seam.
type GroupMessageRepository interface {
	Create(msg *models.GroupMessage) error
	FindByID(id string) (*models.GroupMessage, error)
	// FindUndeliveredForUser returns messages in the given groups that were
	// not sent by userID and have no delivery receipt for userID yet.
	FindUndeliveredForUser(userID uint, groupIDs []uint) ([]models.GroupMessage, error)
	Update(msg *models.GroupMessage) error
}

type gormGroupMessageRepository struct {
	db *gorm.DB
}

// NewGroupMessageRepository returns a gorm-backed GroupMessageRepository.
func NewGroupMessageRepository(db *gorm.DB) GroupMessageRepository {
	return &gormGroupMessageRepository{db: db}
}

func (r *gormGroupMessageRepository) Create(msg *models.GroupMessage) error {
	return r.db.Create(msg).Error
}

func (r *gormGroupMessageRepository) FindByID(id string) (*models.GroupMessage, error) {
	var msg models.GroupMessage
	if err := r.db.First(&msg, "message_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (r *gormGroupMessageRepository) FindUndeliveredForUser(userID uint, groupIDs []uint) ([]models.GroupMessage, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var candidates []models.GroupMessage
	err := r.db.
		Where("group_id IN ? AND sender_id <> ?", groupIDs, userID).
		Order("timestamp asc").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	// The receipt set is a JSON array of objects; filtering it in SQL is
	// not portable across MySQL versions, so the membership check runs here.
	var msgs []models.GroupMessage
	for _, m := range candidates {
		if !m.DeliveredToUser(userID) {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

func (r *gormGroupMessageRepository) Update(msg *models.GroupMessage) error {
	return r.db.Save(msg).Error
}
