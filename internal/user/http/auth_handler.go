package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/httputil"
	"github.com/allisson/identity/internal/user/domain"
	"github.com/allisson/identity/internal/user/http/dto"
	userUseCase "github.com/allisson/identity/internal/user/usecase"
	customValidation "github.com/allisson/identity/internal/validation"
)

// AuthHandler handles account registration, login and token introspection.
type AuthHandler struct {
	userUseCase userUseCase.UseCase
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userUseCase userUseCase.UseCase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userUseCase: userUseCase,
		logger:      logger,
	}
}

// RegisterHandler creates an account and returns its first access token.
// POST /v1/auth/register - Returns 201 Created.
func (h *AuthHandler) RegisterHandler(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.userUseCase.Register(c.Request.Context(), dto.ToRegisterInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTokenResponse(output))
}

// LoginHandler exchanges credentials for an access token.
// POST /v1/auth/login - Returns 200 OK.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.userUseCase.Login(c.Request.Context(), dto.ToLoginInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToTokenResponse(output))
}

// MeHandler returns the claims of the caller's access token.
// GET /v1/auth/me - Requires AuthenticationMiddleware. The account must still exist and be active.
func (h *AuthHandler) MeHandler(c *gin.Context) {
	claims, ok := GetClaims(c.Request.Context())
	if !ok || claims == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrUnauthorized, "invalid subject"), h.logger)
		return
	}

	user, err := h.userUseCase.GetByID(c.Request.Context(), userID)
	if err != nil {
		if apperrors.Is(err, domain.ErrUserNotFound) {
			err = apperrors.Wrap(apperrors.ErrUnauthorized, "account no longer exists")
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if !user.IsActive {
		httputil.HandleErrorGin(c, domain.ErrUserInactive, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToMeResponse(claims))
}
