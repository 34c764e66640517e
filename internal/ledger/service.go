package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

// InsufficientBalanceError is returned by Debit when the user's balance
// does not cover the requested amount.
type InsufficientBalanceError struct {
	UserAddress string
	TokenID     string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s on token %s: requested %s, available %s",
		e.UserAddress, e.TokenID, e.Requested.String(), e.Available.String())
}

// Service interface defines token ledger business logic
type Service interface {
	CreateToken(token *models.Token) error
	GetToken(tokenID string) (*models.Token, error)
	ListTokens(limit, offset int) ([]*models.Token, error)
	BalanceOf(userAddress, tokenID string) (decimal.Decimal, error)
	BalancesFor(userAddress string) ([]*models.Balance, error)
	Credit(userAddress, tokenID string, amount decimal.Decimal) error
	Debit(userAddress, tokenID string, amount decimal.Decimal) error
	SeedDev(accounts []string) error
}

type service struct {
	tokens   TokenRepository
	balances BalanceRepository
	log      *logrus.Logger
	mu       sync.RWMutex
}

// NewService creates a new ledger service
func NewService(tokens TokenRepository, balances BalanceRepository, log *logrus.Logger) Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		tokens:   tokens,
		balances: balances,
		log:      log,
	}
}

// CreateToken registers a new token in the ledger
func (s *service) CreateToken(token *models.Token) error {
	if token == nil {
		return errors.New("token cannot be nil")
	}
	if token.TokenID == "" {
		return errors.New("tokenID cannot be empty")
	}
	if token.Symbol == "" || token.Name == "" {
		return errors.New("symbol and name cannot be empty")
	}
	if token.Decimals > 18 {
		return errors.New("decimals cannot exceed 18")
	}
	if token.TotalSupply.IsNegative() || token.Price.IsNegative() {
		return errors.New("supply and price cannot be negative")
	}

	existing, err := s.tokens.GetByTokenID(token.TokenID)
	if err != nil {
		return fmt.Errorf("failed to check token existence: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("token %s already exists", token.TokenID)
	}

	token.Symbol = strings.ToUpper(token.Symbol)
	if err := s.tokens.Create(token); err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"tokenID": token.TokenID,
		"symbol":  token.Symbol,
		"creator": token.Creator,
	}).Info("Token registered")
	return nil
}

// GetToken retrieves a token by its ledger identifier. Returns nil when the
// token is not registered.
func (s *service) GetToken(tokenID string) (*models.Token, error) {
	if tokenID == "" {
		return nil, errors.New("tokenID cannot be empty")
	}
	return s.tokens.GetByTokenID(tokenID)
}

// ListTokens retrieves active tokens with pagination
func (s *service) ListTokens(limit, offset int) ([]*models.Token, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.tokens.List(limit, offset)
}

// BalanceOf returns the user's balance for a token, zero when no balance
// row exists yet.
func (s *service) BalanceOf(userAddress, tokenID string) (decimal.Decimal, error) {
	if userAddress == "" || tokenID == "" {
		return decimal.Zero, errors.New("userAddress and tokenID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, err := s.balances.Get(userAddress, tokenID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance == nil {
		return decimal.Zero, nil
	}
	return balance.Amount, nil
}

// BalancesFor returns every balance row the user holds
func (s *service) BalancesFor(userAddress string) ([]*models.Balance, error) {
	if userAddress == "" {
		return nil, errors.New("userAddress cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances.ListByUser(userAddress)
}

// Credit adds amount to the user's balance, creating the row when absent
func (s *service) Credit(userAddress, tokenID string, amount decimal.Decimal) error {
	if userAddress == "" || tokenID == "" {
		return errors.New("userAddress and tokenID cannot be empty")
	}
	if !amount.IsPositive() {
		return errors.New("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.tokens.GetByTokenID(tokenID)
	if err != nil {
		return fmt.Errorf("failed to look up token: %w", err)
	}
	if token == nil {
		return fmt.Errorf("token %s not found", tokenID)
	}

	balance, err := s.balances.Get(userAddress, tokenID)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	if balance == nil {
		balance = &models.Balance{
			UserAddress: userAddress,
			TokenID:     tokenID,
			Amount:      amount,
		}
	} else {
		balance.Amount = balance.Amount.Add(amount)
	}

	if err := s.balances.Save(balance); err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// Debit subtracts amount from the user's balance. Fails with
// *InsufficientBalanceError when the balance does not cover the amount.
func (s *service) Debit(userAddress, tokenID string, amount decimal.Decimal) error {
	if userAddress == "" || tokenID == "" {
		return errors.New("userAddress and tokenID cannot be empty")
	}
	if !amount.IsPositive() {
		return errors.New("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.balances.Get(userAddress, tokenID)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	available := decimal.Zero
	if balance != nil {
		available = balance.Amount
	}
	if available.LessThan(amount) {
		return &InsufficientBalanceError{
			UserAddress: userAddress,
			TokenID:     tokenID,
			Requested:   amount,
			Available:   available,
		}
	}

	balance.Amount = balance.Amount.Sub(amount)
	if err := s.balances.Save(balance); err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// devTokens are the tokens registered by SeedDev for local development
var devTokens = []models.Token{
	{
		TokenID:     "token-wdoge",
		Symbol:      "WDOGE",
		Name:        "Wrapped Dogecoin",
		Decimals:    18,
		Creator:     "0x0000000000000000000000000000000000000001",
		TotalSupply: decimal.NewFromInt(100_000_000),
		Price:       decimal.NewFromFloat(0.12),
		Tags:        pq.StringArray{"wrapped", "native"},
		IsActive:    true,
	},
	{
		TokenID:     "token-pump",
		Symbol:      "PUMP",
		Name:        "Dogepump",
		Decimals:    18,
		Creator:     "0x0000000000000000000000000000000000000001",
		TotalSupply: decimal.NewFromInt(1_000_000_000),
		Price:       decimal.NewFromFloat(0.004),
		Tags:        pq.StringArray{"launchpad"},
		IsActive:    true,
	},
}

// SeedDev registers the demo tokens and funds the given accounts with a
// starting balance of each. Intended for local development only; skips
// anything that already exists.
func (s *service) SeedDev(accounts []string) error {
	for i := range devTokens {
		token := devTokens[i]
		existing, err := s.tokens.GetByTokenID(token.TokenID)
		if err != nil {
			return fmt.Errorf("failed to check seed token: %w", err)
		}
		if existing != nil {
			continue
		}
		if err := s.tokens.Create(&token); err != nil {
			return fmt.Errorf("failed to seed token %s: %w", token.TokenID, err)
		}
		s.log.WithField("tokenID", token.TokenID).Info("Seeded dev token")
	}

	grant := decimal.NewFromInt(1_000_000)
	for _, account := range accounts {
		for _, token := range devTokens {
			existing, err := s.balances.Get(account, token.TokenID)
			if err != nil {
				return fmt.Errorf("failed to check seed balance: %w", err)
			}
			if existing != nil {
				continue
			}
			if err := s.balances.Save(&models.Balance{
				UserAddress: account,
				TokenID:     token.TokenID,
				Amount:      grant,
			}); err != nil {
				return fmt.Errorf("failed to seed balance: %w", err)
			}
		}
	}
	return nil
}
