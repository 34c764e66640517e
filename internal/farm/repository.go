package farm

import (
	"errors"

	"gorm.io/gorm"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

// FarmRepository interface defines farm database operations
type FarmRepository interface {
	Create(farm *models.Farm) error
	GetByFarmID(farmID string) (*models.Farm, error)
	List(status models.FarmStatus, limit, offset int) ([]*models.Farm, error)
	ListByStatus(status models.FarmStatus) ([]*models.Farm, error)
	ListByCreator(creator string) ([]*models.Farm, error)
	GetTopFarmsByStaked(limit int) ([]*models.Farm, error)
	Update(farm *models.Farm) error
}

// PositionRepository interface defines position database operations
type PositionRepository interface {
	Create(position *models.Position) error
	Get(farmID, userAddress string) (*models.Position, error)
	ListByFarm(farmID string) ([]*models.Position, error)
	ListByUser(userAddress string) ([]*models.Position, error)
	CountStakedByFarm(farmID string) (int64, error)
	Update(position *models.Position) error
	Delete(position *models.Position) error
}

// farmRepository implements FarmRepository interface
type farmRepository struct {
	db *gorm.DB
}

// NewFarmRepository creates a new farm repository
func NewFarmRepository(db *gorm.DB) FarmRepository {
	return &farmRepository{db: db}
}

// Create creates a new farm
func (r *farmRepository) Create(farm *models.Farm) error {
	if farm == nil {
		return errors.New("farm cannot be nil")
	}
	return r.db.Create(farm).Error
}

// GetByFarmID retrieves a farm by its farm ID
func (r *farmRepository) GetByFarmID(farmID string) (*models.Farm, error) {
	if farmID == "" {
		return nil, errors.New("farmID cannot be empty")
	}

	var farm models.Farm
	err := r.db.Where("farm_id = ?", farmID).First(&farm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &farm, nil
}

// List retrieves farms with optional status filter and pagination
func (r *farmRepository) List(status models.FarmStatus, limit, offset int) ([]*models.Farm, error) {
	query := r.db.Order("created_at DESC").Limit(limit).Offset(offset)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var farms []*models.Farm
	err := query.Find(&farms).Error
	return farms, err
}

// ListByStatus retrieves every farm in the given status, oldest first.
// Used by the background sweeps, which must see all matching farms.
func (r *farmRepository) ListByStatus(status models.FarmStatus) ([]*models.Farm, error) {
	if status == "" {
		return nil, errors.New("status cannot be empty")
	}

	var farms []*models.Farm
	err := r.db.Where("status = ?", status).Order("created_at ASC").Find(&farms).Error
	return farms, err
}

// ListByCreator retrieves farms created by one address
func (r *farmRepository) ListByCreator(creator string) ([]*models.Farm, error) {
	if creator == "" {
		return nil, errors.New("creator cannot be empty")
	}

	var farms []*models.Farm
	err := r.db.Where("creator = ?", creator).Order("created_at DESC").Find(&farms).Error
	return farms, err
}

// GetTopFarmsByStaked retrieves active farms ranked by total staked
func (r *farmRepository) GetTopFarmsByStaked(limit int) ([]*models.Farm, error) {
	var farms []*models.Farm
	err := r.db.Where("status = ?", models.FarmStatusActive).
		Order("total_staked DESC").
		Limit(limit).
		Find(&farms).Error
	return farms, err
}

// Update updates an existing farm
func (r *farmRepository) Update(farm *models.Farm) error {
	if farm == nil {
		return errors.New("farm cannot be nil")
	}
	return r.db.Save(farm).Error
}

// positionRepository implements PositionRepository interface
type positionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &positionRepository{db: db}
}

// Create creates a new position
func (r *positionRepository) Create(position *models.Position) error {
	if position == nil {
		return errors.New("position cannot be nil")
	}
	return r.db.Create(position).Error
}

// Get retrieves the single position a user holds in a farm
func (r *positionRepository) Get(farmID, userAddress string) (*models.Position, error) {
	if farmID == "" || userAddress == "" {
		return nil, errors.New("farmID and userAddress cannot be empty")
	}

	var position models.Position
	err := r.db.Where("farm_id = ? AND user_address = ?", farmID, userAddress).First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &position, nil
}

// ListByFarm retrieves all positions in a farm, oldest stake first
func (r *positionRepository) ListByFarm(farmID string) ([]*models.Position, error) {
	if farmID == "" {
		return nil, errors.New("farmID cannot be empty")
	}

	var positions []*models.Position
	err := r.db.Where("farm_id = ?", farmID).Order("staked_at ASC").Find(&positions).Error
	return positions, err
}

// ListByUser retrieves every position a user holds across farms
func (r *positionRepository) ListByUser(userAddress string) ([]*models.Position, error) {
	if userAddress == "" {
		return nil, errors.New("userAddress cannot be empty")
	}

	var positions []*models.Position
	err := r.db.Where("user_address = ?", userAddress).Order("staked_at ASC").Find(&positions).Error
	return positions, err
}

// CountStakedByFarm counts positions with stake still in the farm
func (r *positionRepository) CountStakedByFarm(farmID string) (int64, error) {
	if farmID == "" {
		return 0, errors.New("farmID cannot be empty")
	}

	var count int64
	err := r.db.Model(&models.Position{}).
		Where("farm_id = ? AND staked_amount > 0", farmID).
		Count(&count).Error
	return count, err
}

// Update updates an existing position
func (r *positionRepository) Update(position *models.Position) error {
	if position == nil {
		return errors.New("position cannot be nil")
	}
	return r.db.Save(position).Error
}

// Delete removes a position permanently. Fully unstaked positions are
// deleted, never retained at zero.
func (r *positionRepository) Delete(position *models.Position) error {
	if position == nil {
		return errors.New("position cannot be nil")
	}
	return r.db.Delete(position).Error
}
