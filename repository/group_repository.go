package repository

import (
	"errors"

	"chat-server/models"

	"gorm.io/gorm"
)

// GroupRepository is the group store seam.
type GroupRepository interface {
	Create(group *models.Group) error
	FindByID(id uint) (*models.Group, error)
	// FindGroupsContaining returns every group userID is a member of.
	FindGroupsContaining(userID uint) ([]models.Group, error)
	Update(group *models.Group) error
	Delete(id uint) error
}

type gormGroupRepository struct {
	db *gorm.DB
}

// NewGroupRepository returns a gorm-backed GroupRepository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &gormGroupRepository{db: db}
}

func (r *gormGroupRepository) Create(group *models.Group) error {
	return r.db.Create(group).Error
}

func (r *gormGroupRepository) FindByID(id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.First(&group, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *gormGroupRepository) FindGroupsContaining(userID uint) ([]models.Group, error) {
	// Members is a JSON array column; JSON_CONTAINS does the membership test
	// server-side so we never load the whole table.
	var groups []models.Group
	err := r.db.
		Where("JSON_CONTAINS(members, CAST(? AS JSON))", userID).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *gormGroupRepository) Update(group *models.Group) error {
	return r.db.Save(group).Error
}

func (r *gormGroupRepository) Delete(id uint) error {
	return r.db.Delete(&models.Group{}, "id = ?", id).Error
}
