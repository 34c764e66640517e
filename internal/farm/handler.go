package farm

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/audit"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/storage"
)

type Handler struct {
	service Service
	auditor audit.Service
	auth    gin.HandlerFunc
}

// NewHandler creates a new farm handler. requireAuth guards every mutating
// route; reads stay public.
func NewHandler(service Service, auditor audit.Service, requireAuth gin.HandlerFunc) *Handler {
	return &Handler{service: service, auditor: auditor, auth: requireAuth}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	farms := router.Group("/farms")
	{
		farms.POST("", h.auth, h.CreateFarm)
		farms.GET("", h.ListFarms)
		farms.GET("/leaderboard", h.Leaderboard)
		farms.GET("/:farmId", h.GetFarm)
		farms.PATCH("/:farmId/config", h.auth, h.UpdateConfig)
		farms.POST("/:farmId/pause", h.auth, h.PauseFarm)
		farms.POST("/:farmId/resume", h.auth, h.ResumeFarm)
		farms.POST("/:farmId/deposit", h.auth, h.DepositRewards)
		farms.POST("/:farmId/close", h.auth, h.CloseFarm)
		farms.POST("/:farmId/stake", h.auth, h.Stake)
		farms.POST("/:farmId/unstake", h.auth, h.Unstake)
		farms.POST("/:farmId/harvest", h.auth, h.Harvest)
		farms.GET("/:farmId/positions", h.FarmPositions)
		farms.GET("/:farmId/positions/:address", h.GetPosition)
		farms.GET("/:farmId/rewards/:address", h.PendingRewards)
		farms.GET("/:farmId/audit", h.AuditTrail)
	}

	router.GET("/positions/:address", h.UserPositions)
}

type createFarmRequest struct {
	OwnerTokenID   string          `json:"owner_token_id" binding:"required"`
	StakingTokenID string          `json:"staking_token_id" binding:"required"`
	RewardTokenID  string          `json:"reward_token_id" binding:"required"`
	RewardRate     decimal.Decimal `json:"reward_rate"`
	Duration       int64           `json:"duration"`
	LockPeriod     int64           `json:"lock_period"`
	MinStake       decimal.Decimal `json:"min_stake"`
	MaxStake       decimal.Decimal `json:"max_stake"`
	InitialDeposit decimal.Decimal `json:"initial_deposit"`
	Description    string          `json:"description"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) CreateFarm(c *gin.Context) {
	var req createFarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	farm, err := h.service.CreateFarm(CreateFarmRequest{
		Creator:        actorFrom(c),
		OwnerTokenID:   req.OwnerTokenID,
		StakingTokenID: req.StakingTokenID,
		RewardTokenID:  req.RewardTokenID,
		Config: Config{
			RewardRate: req.RewardRate,
			Duration:   req.Duration,
			LockPeriod: req.LockPeriod,
			MinStake:   req.MinStake,
			MaxStake:   req.MaxStake,
		},
		InitialDeposit: req.InitialDeposit,
		Description:    req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, farm)
}

func (h *Handler) GetFarm(c *gin.Context) {
	farm, err := h.service.GetFarm(c.Param("farmId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if farm == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "farm not found"})
		return
	}

	c.JSON(http.StatusOK, farm)
}

func (h *Handler) ListFarms(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if creator := c.Query("creator"); creator != "" {
		farms, err := h.service.FarmsByCreator(creator)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, farms)
		return
	}

	farms, err := h.service.ListFarms(models.FarmStatus(c.Query("status")), limit, offset)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, farms)
}

func (h *Handler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	farms, err := h.service.Leaderboard(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, farms)
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var patch ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	farm, err := h.service.UpdateFarmConfig(c.Param("farmId"), actorFrom(c), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, farm)
}

func (h *Handler) PauseFarm(c *gin.Context) {
	farm, err := h.service.PauseFarm(c.Param("farmId"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, farm)
}

func (h *Handler) ResumeFarm(c *gin.Context) {
	farm, err := h.service.ResumeFarm(c.Param("farmId"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, farm)
}

func (h *Handler) DepositRewards(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	farm, err := h.service.DepositRewards(c.Param("farmId"), actorFrom(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, farm)
}

func (h *Handler) CloseFarm(c *gin.Context) {
	refund, err := h.service.CloseFarm(c.Param("farmId"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunded": refund})
}

func (h *Handler) Stake(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	position, err := h.service.Stake(c.Param("farmId"), actorFrom(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, position)
}

func (h *Handler) Unstake(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	result, err := h.service.Unstake(c.Param("farmId"), actorFrom(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Harvest(c *gin.Context) {
	rewards, err := h.service.Harvest(c.Param("farmId"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

func (h *Handler) FarmPositions(c *gin.Context) {
	positions, err := h.service.FarmPositions(c.Param("farmId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, positions)
}

func (h *Handler) GetPosition(c *gin.Context) {
	position, err := h.service.GetPosition(c.Param("farmId"), c.Param("address"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if position == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "position not found"})
		return
	}

	c.JSON(http.StatusOK, position)
}

func (h *Handler) PendingRewards(c *gin.Context) {
	pending, err := h.service.PendingRewards(c.Param("farmId"), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pending_rewards": pending})
}

func (h *Handler) UserPositions(c *gin.Context) {
	positions, err := h.service.UserPositions(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, positions)
}

func (h *Handler) AuditTrail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.auditor.EntriesForFarm(c.Param("farmId"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}

func actorFrom(c *gin.Context) string {
	if v, exists := c.Get("user_address"); exists {
		if address, ok := v.(string); ok {
			return address
		}
	}
	return ""
}

// respondError maps the farm error taxonomy onto HTTP statuses:
// validation 400, access 403, missing resources 404, other state
// conflicts 409 and storage failures 500.
func respondError(c *gin.Context, err error) {
	var validationErr *ValidationError
	var accessErr *AccessError
	var stateErr *StateError
	var storageErr *storage.StorageError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "invalid farm config",
			"violations": validationErr.Violations,
		})
	case errors.As(err, &accessErr):
		c.JSON(http.StatusForbidden, gin.H{"error": accessErr.Error()})
	case errors.As(err, &stateErr):
		status := http.StatusConflict
		if stateErr.NotFound() {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": stateErr.Message, "code": stateErr.Code})
	case errors.As(err, &storageErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persistence failure, operation aborted"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
