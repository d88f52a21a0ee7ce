package handlers

import (
	"net/http"
	"strings"
	"time"

	"placementcell/internal/app"
	"placementcell/internal/common"
	"placementcell/internal/domain/user"
	"placementcell/internal/http/middleware"
	"placementcell/internal/http/response"
)

type AuthHandler struct {
	auth     *app.AuthService
	limiter  middleware.Limiter
	clientIP middleware.ClientIPFunc
}

// NewAuthHandler keys login limits by clientIP, or by the peer address when nil.
func NewAuthHandler(auth *app.AuthService, limiter middleware.Limiter, clientIP middleware.ClientIPFunc) *AuthHandler {
	if clientIP == nil {
		clientIP = middleware.ClientIP
	}
	return &AuthHandler{auth: auth, limiter: limiter, clientIP: clientIP}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type sessionResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    string     `json:"expires_at"`
	User         *user.User `json:"user"`
}

func newSessionResponse(session *app.Session) sessionResponse {
	return sessionResponse{
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
		ExpiresAt:    session.Tokens.ExpiresAt.Format(time.RFC3339),
		User:         session.User,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	fields := map[string]string{}
	if strings.TrimSpace(req.Email) == "" {
		fields["email"] = "email is required"
	}
	if req.Password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		response.Error(w, common.NewValidationError("invalid request", fields))
		return
	}
	if h.limiter != nil {
		if !h.limiter.Allow("login:ip:"+h.clientIP(r), 10, time.Minute) {
			middleware.RejectRateLimited(w)
			return
		}
		if !h.limiter.Allow("login:email:"+strings.ToLower(strings.TrimSpace(req.Email)), 5, time.Minute) {
			middleware.RejectRateLimited(w)
			return
		}
	}
	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, newSessionResponse(session))
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	session, err := h.auth.Register(r.Context(), app.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		RollNumber: req.RollNumber,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, newSessionResponse(session))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"refresh_token": "refresh_token is required"}))
		return
	}
	session, err := h.auth.Refresh(r.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, newSessionResponse(session))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := h.auth.Logout(r.Context(), strings.TrimSpace(req.RefreshToken)); err != nil {
		response.Error(w, err)
		return
	}
	response.Message(w, http.StatusOK, "logged out")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	account, err := h.auth.Me(r.Context(), actor.UserID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, account)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := h.auth.ChangePassword(r.Context(), actor.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(w, err)
		return
	}
	response.Message(w, http.StatusOK, "password changed")
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := h.auth.GoogleLoginURL()
	if err != nil {
		response.Error(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errValue := query.Get("error"); errValue != "" {
		response.Error(w, common.NewError(common.CodeUnauthorized, "google sign-in was cancelled", nil))
		return
	}
	code := strings.TrimSpace(query.Get("code"))
	state := strings.TrimSpace(query.Get("state"))
	if code == "" || state == "" {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"code": "code and state are required"}))
		return
	}
	session, err := h.auth.GoogleCallback(r.Context(), state, code)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, newSessionResponse(session))
}
