package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/infra/logger"
	"github.com/arklim/menu-accounts/internal/transport/http/middleware"
	"github.com/arklim/menu-accounts/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

func errorCase(sentinel *domain.Error, status int) ErrorCase {
	return ErrorCase{Err: sentinel, Status: status, Message: string(sentinel.Code)}
}

// domainErrorCases covers every caller-visible code.
var domainErrorCases = []ErrorCase{
	errorCase(domain.ErrMissingFields, http.StatusBadRequest),
	errorCase(domain.ErrInvalidEmail, http.StatusBadRequest),
	errorCase(domain.ErrInvalidVenue, http.StatusBadRequest),
	errorCase(domain.ErrWeakCredential, http.StatusBadRequest),
	errorCase(domain.ErrInvalidToken, http.StatusBadRequest),
	errorCase(domain.ErrIncorrectCode, http.StatusBadRequest),
	errorCase(domain.ErrInvalidPlan, http.StatusBadRequest),
	errorCase(domain.ErrEmailNotVerified, http.StatusBadRequest),
	errorCase(domain.ErrMissingSignature, http.StatusBadRequest),
	errorCase(domain.ErrInvalidSignature, http.StatusBadRequest),
	errorCase(domain.ErrEmailExists, http.StatusConflict),
	errorCase(domain.ErrInvalidCredentials, http.StatusUnauthorized),
	errorCase(domain.ErrUnauthorized, http.StatusUnauthorized),
	errorCase(domain.ErrForbidden, http.StatusForbidden),
	errorCase(domain.ErrAccountNotActive, http.StatusForbidden),
	errorCase(domain.ErrNotFound, http.StatusNotFound),
	errorCase(domain.ErrRateLimited, http.StatusTooManyRequests),
	errorCase(domain.ErrCheckoutCreateFailed, http.StatusInternalServerError),
	errorCase(domain.ErrEmailSendFailed, http.StatusInternalServerError),
}

// respondError writes the coded error response. Uncoded errors become 500
// INTERNAL_ERROR and are logged; their detail never reaches the caller.
func respondError(c *gin.Context, err error) {
	var exceeded *usecase.RateLimitExceeded
	if errors.As(err, &exceeded) {
		middleware.ApplyRateLimitHeaders(c, exceeded.Decision)
	}

	if domain.CodeOf(err) == domain.CodeInternal {
		logger.WithContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
	}

	RespondWithMappedError(c, err, domainErrorCases, http.StatusInternalServerError, string(domain.CodeInternal))
}
