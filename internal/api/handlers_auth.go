package api

import (
	"errors"
	"net/http"
	"time"

	"geocrypt/internal/auth"
	"geocrypt/internal/models"
	"geocrypt/internal/store"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type otpVerifyRequest struct {
	Username string `json:"username" validate:"required"`
	OTP      string `json:"otp" validate:"required,len=6"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
	Username    string `json:"username"`
}

// handleLogin checks credentials and mails a one-time code. The session
// token is only issued after the code is verified.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.store.GetUser(req.Username)
	if errors.Is(err, store.ErrNotFound) {
		a.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("login lookup")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		a.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsActive {
		a.writeError(w, http.StatusForbidden, "account is disabled")
		return
	}

	otp, err := auth.GenerateOTP()
	if err != nil {
		a.log.Error().Err(err).Msg("generate otp")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	user.OTP = otp
	user.OTPExpiry = time.Now().Add(auth.OTPTTL)
	if err := a.store.UpdateUser(user); err != nil {
		a.log.Error().Err(err).Msg("store otp")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := a.mailer.SendOTP(r.Context(), user.Email, user.Username, otp); err != nil {
		a.log.Error().Err(err).Str("username", user.Username).Msg("send otp")
		a.writeError(w, http.StatusInternalServerError, "failed to send OTP")
		return
	}

	a.log.Info().Str("username", user.Username).Msg("otp issued")
	a.writeJSON(w, http.StatusOK, loginResponse{
		Message:  "OTP sent to your email",
		Username: user.Username,
		Role:     user.Role,
	})
}

// handleVerifyOTP exchanges a valid one-time code for a bearer token.
func (a *API) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.store.GetUser(req.Username)
	if errors.Is(err, store.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("otp lookup")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := auth.VerifyOTP(user.OTP, req.OTP, user.OTPExpiry); err != nil {
		a.writeError(w, http.StatusUnauthorized, "invalid or expired OTP")
		return
	}

	// The code is single use.
	user.OTP = ""
	user.OTPExpiry = time.Time{}
	if err := a.store.UpdateUser(user); err != nil {
		a.log.Error().Err(err).Msg("clear otp")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := a.tokens.Generate(user.Username, user.Role)
	if err != nil {
		a.log.Error().Err(err).Msg("generate token")
		a.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        user.Role,
		Username:    user.Username,
	})
}

// currentUser loads the full user record behind the request's verified
// claims.
func (a *API) currentUser(r *http.Request) (models.User, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return models.User{}, auth.ErrInvalidToken
	}
	return a.store.GetUser(claims.Username)
}
