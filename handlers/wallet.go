package handlers

import (
	"net/http"
	"strconv"

	"mentra/models"
	"mentra/services/ledger"
	"mentra/utils"

	"github.com/gin-gonic/gin"
)

// WalletHandler serves the caller's token wallet.
type WalletHandler struct {
	Ledger ledger.LedgerService
}

// GetWalletHandler handles GET /wallet.
func (h *WalletHandler) GetWalletHandler(c *gin.Context) {
	summary, err := h.Ledger.Balance(c.GetString("userID"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListTransactionsHandler handles GET /wallet/transactions.
func (h *WalletHandler) ListTransactionsHandler(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	history, err := h.Ledger.History(c.GetString("userID"), page, pageSize)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// CheckSufficientHandler handles GET /wallet/sufficient?amount=12.50.
func (h *WalletHandler) CheckSufficientHandler(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid amount", "expected a decimal number")
		return
	}
	ok, err := h.Ledger.HasSufficientBalance(c.GetString("userID"), amount)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sufficient": ok, "amount": amount})
}

// CreateTopUpHandler handles POST /wallet/topup. The returned intent's
// client secret drives the processor's payment sheet; crediting happens
// when the success webhook lands.
func (h *WalletHandler) CreateTopUpHandler(c *gin.Context) {
	var req models.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid top-up payload", err.Error())
		return
	}
	intent, err := h.Ledger.CreateTopUpIntent(c.Request.Context(), c.GetString("userID"), req.Amount)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

// ConfirmTopUpHandler handles POST /wallet/topup/confirm. Clients call it
// after the payment sheet resolves; the credit is reference-idempotent, so
// racing the webhook is harmless.
func (h *WalletHandler) ConfirmTopUpHandler(c *gin.Context) {
	var req models.TopUpConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid confirm payload", err.Error())
		return
	}
	credited, err := h.Ledger.ConfirmTopUp(c.Request.Context(), c.GetString("userID"), req.IntentID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credited": credited})
}
