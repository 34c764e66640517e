package ledger

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

type Handler struct {
	service Service
	auth    gin.HandlerFunc
}

// NewHandler creates a new ledger handler. requireAuth guards the mutating
// routes.
func NewHandler(service Service, requireAuth gin.HandlerFunc) *Handler {
	return &Handler{service: service, auth: requireAuth}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	tokens := router.Group("/tokens")
	{
		tokens.POST("", h.auth, h.CreateToken)
		tokens.GET("", h.ListTokens)
		tokens.GET("/:tokenId", h.GetToken)
	}

	balances := router.Group("/balances")
	{
		balances.GET("/:address", h.ListBalances)
		balances.GET("/:address/:tokenId", h.GetBalance)
	}
}

func (h *Handler) CreateToken(c *gin.Context) {
	var token models.Token
	if err := c.ShouldBindJSON(&token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Creator always comes from the authenticated wallet, never the body
	if address, exists := c.Get("user_address"); exists {
		token.Creator = address.(string)
	}

	if err := h.service.CreateToken(&token); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, token)
}

func (h *Handler) GetToken(c *gin.Context) {
	tokenID := c.Param("tokenId")

	token, err := h.service.GetToken(tokenID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if token == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		return
	}

	c.JSON(http.StatusOK, token)
}

func (h *Handler) ListTokens(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "10")
	offsetStr := c.DefaultQuery("offset", "0")

	limit, _ := strconv.Atoi(limitStr)
	offset, _ := strconv.Atoi(offsetStr)

	tokens, err := h.service.ListTokens(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tokens)
}

func (h *Handler) ListBalances(c *gin.Context) {
	address := c.Param("address")

	balances, err := h.service.BalancesFor(address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, balances)
}

func (h *Handler) GetBalance(c *gin.Context) {
	address := c.Param("address")
	tokenID := c.Param("tokenId")

	amount, err := h.service.BalanceOf(address, tokenID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_address": address,
		"token_id":     tokenID,
		"amount":       amount,
	})
}
