package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/mockpay/internal/common"
	pb "github.com/dmitrijs2005/mockpay/internal/proto"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/dmitrijs2005/mockpay/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": h.now().UTC()})
}

func (h *handlers) register(c *gin.Context) {
	var req pb.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", common.ErrMalformedRequest, err))
		return
	}

	if err := h.sessions.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, pb.MessageResponse{Message: "User registered successfully"})
}

func (h *handlers) login(c *gin.Context) {
	var req pb.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", common.ErrMalformedRequest, err))
		return
	}

	pair, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, pb.TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *handlers) refresh(c *gin.Context) {
	var req pb.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", common.ErrMalformedRequest, err))
		return
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, pb.TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *handlers) charge(c *gin.Context) {
	var req pb.ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", common.ErrMalformedRequest, err))
		return
	}

	tx, err := h.payments.Charge(c.Request.Context(), services.ChargeRequest{
		Amount:         *req.Amount,
		CardNumber:     req.CardNumber,
		ExpirationDate: req.ExpirationDate,
		CVV:            req.CVV,
		CardholderName: req.CardholderName,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(outcomeStatus(tx.Status), pb.TransactionResponse{
		TransactionID: tx.ID,
		Status:        string(tx.Status),
		Amount:        tx.Amount,
		Message:       tx.Message,
	})
}

func (h *handlers) refund(c *gin.Context) {
	var req pb.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", common.ErrMalformedRequest, err))
		return
	}

	r, err := h.payments.Refund(c.Request.Context(), services.RefundRequest{
		TransactionID: req.TransactionID,
		Amount:        *req.Amount,
		Reason:        req.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(outcomeStatus(r.Status), pb.RefundResponse{
		RefundID:              r.ID,
		OriginalTransactionID: r.OriginalTransactionID,
		Status:                string(r.Status),
		Amount:                r.Amount,
		Message:               r.Message,
	})
}

func (h *handlers) paymentStats(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusNotFound, pb.MessageResponse{Message: "statistics are not enabled"})
		return
	}

	stats, err := h.stats.PaymentStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	if claims := claimsFrom(c); claims != nil {
		h.logger.Debug(c.Request.Context(), "payment stats requested", "user_id", claims.Subject)
	}

	c.JSON(http.StatusOK, stats)
}

func outcomeStatus(s models.TransactionStatus) int {
	if s == models.TransactionSuccess {
		return http.StatusOK
	}
	return http.StatusBadRequest
}

// fail writes the error response for err. Unknown errors are logged and
// reported as a generic 500.
func (h *handlers) fail(c *gin.Context, err error) {
	ctx := c.Request.Context()

	switch {
	case errors.Is(err, common.ErrMalformedRequest):
		c.JSON(http.StatusBadRequest, pb.MessageResponse{Message: err.Error()})
	case errors.Is(err, common.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, pb.MessageResponse{Message: "User already exists"})
	case errors.Is(err, common.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, pb.MessageResponse{Message: "Invalid credentials"})
	case errors.Is(err, common.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, pb.MessageResponse{Message: "Invalid refresh token"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, pb.MessageResponse{Message: "request cancelled"})
	default:
		h.logger.Error(ctx, "request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, pb.MessageResponse{Message: "internal error"})
	}
}
