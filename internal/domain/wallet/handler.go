package wallet

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	wallets := rg.Group("/wallets/me")
	{
		wallets.GET("", h.GetMyWallet)
		wallets.POST("/add", h.AddToMyWallet)
		wallets.POST("/spend", h.SpendFromMyWallet)
		wallets.GET("/transactions", h.ListMyTransactions)
	}
}

type amountRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

type walletOp func(ctx context.Context, userID string, amount int64) (*Wallet, *Transaction, error)

func (h *Handler) GetMyWallet(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized")
		return
	}

	wallet, err := h.service.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "failed to get wallet")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"balance": wallet.Balance})
}

func (h *Handler) AddToMyWallet(c *gin.Context) {
	h.mutate(c, h.service.Add, "failed to add tokens")
}

func (h *Handler) SpendFromMyWallet(c *gin.Context) {
	h.mutate(c, h.service.Spend, "failed to spend tokens")
}

func (h *Handler) mutate(c *gin.Context, op walletOp, failMsg string) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized")
		return
	}

	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "invalid request body")
		return
	}

	wallet, txn, err := op(c.Request.Context(), userID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
		case errors.Is(err, ErrInsufficientFunds):
			response.Error(c, http.StatusPaymentRequired, response.CodeInsufficient, "Insufficient token balance")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternal, failMsg)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"wallet": wallet, "transaction": txn})
}

func (h *Handler) ListMyTransactions(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized")
		return
	}

	txns, err := h.service.ListTransactions(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "failed to list transactions")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"transactions": txns})
}
