package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/logger"
	"github.com/MitsuharuNakamura/passkey-demo/internal/transport/http/middleware"
	"github.com/MitsuharuNakamura/passkey-demo/internal/usecase"
)

// PasskeyHandler exposes the registration and login ceremony endpoints.
type PasskeyHandler struct {
	registration *usecase.RegistrationService
	auth         *usecase.AuthService
	logger       *zap.Logger
}

// NewPasskeyHandler builds the ceremony handler.
func NewPasskeyHandler(registration *usecase.RegistrationService, auth *usecase.AuthService, log *zap.Logger) *PasskeyHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasskeyHandler{
		registration: registration,
		auth:         auth,
		logger:       log,
	}
}

// RegisterStart handles POST /api/register/start.
func (h *PasskeyHandler) RegisterStart(c *gin.Context) {
	var req RegisterStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	session := middleware.GetSession(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "session unavailable"})
		return
	}

	factor, err := h.registration.Start(c.Request.Context(), session, req.Username, req.DisplayName)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("registration start failed", zap.Error(err))
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "username and display name are required"},
			{Err: usecase.ErrUserExists, Status: http.StatusBadRequest, Message: "username already registered"},
		}, http.StatusInternalServerError, "failed to start registration")
		return
	}

	c.JSON(http.StatusOK, RegisterStartResponse{
		Success:   true,
		Options:   factor.Options,
		FactorSID: factor.SID,
	})
}

// RegisterComplete handles POST /api/register/complete.
func (h *PasskeyHandler) RegisterComplete(c *gin.Context) {
	var req RegisterCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	session := middleware.GetSession(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "session unavailable"})
		return
	}

	username, err := h.registration.Complete(c.Request.Context(), session, req.FactorSID, req.Credential)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("registration complete failed", zap.Error(err))
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNoPendingRegistration, Status: http.StatusBadRequest, Message: "no registration in progress"},
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "credential is required"},
			{Err: usecase.ErrPendingMismatch, Status: http.StatusBadRequest, Message: "registration was superseded, start again"},
			{Err: usecase.ErrPendingExpired, Status: http.StatusBadRequest, Message: "registration expired, start again"},
		}, http.StatusInternalServerError, "failed to complete registration")
		return
	}

	c.JSON(http.StatusOK, RegisterCompleteResponse{
		Success:  true,
		Message:  "passkey registered",
		Username: username,
	})
}

// LoginStart handles POST /api/login/start.
func (h *PasskeyHandler) LoginStart(c *gin.Context) {
	var req LoginStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	session := middleware.GetSession(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "session unavailable"})
		return
	}

	challenge, err := h.auth.Start(c.Request.Context(), session, req.Username)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("login start failed", zap.Error(err))
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "username is required"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to start login")
		return
	}

	c.JSON(http.StatusOK, LoginStartResponse{
		Success:      true,
		Options:      challenge.Options,
		ChallengeSID: challenge.SID,
	})
}

// LoginComplete handles POST /api/login/complete.
func (h *PasskeyHandler) LoginComplete(c *gin.Context) {
	var req LoginCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	session := middleware.GetSession(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "session unavailable"})
		return
	}

	user, err := h.auth.Complete(c.Request.Context(), session, req.ChallengeSID, req.Credential)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("login complete failed", zap.Error(err))
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNoPendingLogin, Status: http.StatusBadRequest, Message: "no login in progress"},
			{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "credential is required"},
			{Err: usecase.ErrPendingMismatch, Status: http.StatusBadRequest, Message: "login was superseded, start again"},
			{Err: usecase.ErrPendingExpired, Status: http.StatusBadRequest, Message: "login expired, start again"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: usecase.ErrChallengeNotApproved, Status: http.StatusUnauthorized, Message: "authentication failed"},
		}, http.StatusInternalServerError, "failed to complete login")
		return
	}

	c.JSON(http.StatusOK, LoginCompleteResponse{
		Success: true,
		Message: "authenticated",
		User: UserSummary{
			Username:    user.Username,
			DisplayName: user.DisplayName,
		},
	})
}
