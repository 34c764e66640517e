package ledger

import (
	"errors"

	"gorm.io/gorm"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

// TokenRepository interface defines token registry database operations
type TokenRepository interface {
	Create(token *models.Token) error
	GetByTokenID(tokenID string) (*models.Token, error)
	List(limit, offset int) ([]*models.Token, error)
	Update(token *models.Token) error
}

// BalanceRepository interface defines balance database operations
type BalanceRepository interface {
	Get(userAddress, tokenID string) (*models.Balance, error)
	ListByUser(userAddress string) ([]*models.Balance, error)
	Save(balance *models.Balance) error
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(token *models.Token) error {
	if token == nil {
		return errors.New("token cannot be nil")
	}
	return r.db.Create(token).Error
}

func (r *tokenRepository) GetByTokenID(tokenID string) (*models.Token, error) {
	if tokenID == "" {
		return nil, errors.New("tokenID cannot be empty")
	}

	var token models.Token
	err := r.db.Where("token_id = ?", tokenID).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) List(limit, offset int) ([]*models.Token, error) {
	var tokens []*models.Token
	err := r.db.Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&tokens).Error
	return tokens, err
}

func (r *tokenRepository) Update(token *models.Token) error {
	if token == nil {
		return errors.New("token cannot be nil")
	}
	return r.db.Save(token).Error
}

type balanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *gorm.DB) BalanceRepository {
	return &balanceRepository{db: db}
}

func (r *balanceRepository) Get(userAddress, tokenID string) (*models.Balance, error) {
	if userAddress == "" || tokenID == "" {
		return nil, errors.New("userAddress and tokenID cannot be empty")
	}

	var balance models.Balance
	err := r.db.Where("user_address = ? AND token_id = ?", userAddress, tokenID).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

func (r *balanceRepository) ListByUser(userAddress string) ([]*models.Balance, error) {
	if userAddress == "" {
		return nil, errors.New("userAddress cannot be empty")
	}

	var balances []*models.Balance
	err := r.db.Where("user_address = ?", userAddress).
		Order("token_id ASC").
		Find(&balances).Error
	return balances, err
}

// Save inserts the balance when it has no primary key yet and updates it
// otherwise.
func (r *balanceRepository) Save(balance *models.Balance) error {
	if balance == nil {
		return errors.New("balance cannot be nil")
	}
	return r.db.Save(balance).Error
}
