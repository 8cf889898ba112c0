package handlers

import (
	"time"

	"puceats-api/accounts"
	"puceats-api/models"
	"puceats-api/resp"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (h *Handler) newSession(c *gin.Context, user *models.User) (*session, bool) {
	token, expires, err := h.Auth.GenerateToken(user)
	if err != nil {
		h.Log.Error("sign session token failed", "error", err, "user_id", user.ID)
		resp.Error(c, err)
		return nil, false
	}
	return &session{Token: token, ExpiresAt: expires, User: user}, true
}

// Register creates an owner account and its first establishment, consuming
// the invitation token in the body.
func (h *Handler) Register(c *gin.Context) {
	var req accounts.RegisterInput
	if !bind(c, &req) {
		return
	}
	user, est, err := h.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		resp.Error(c, err)
		return
	}
	s, ok := h.newSession(c, user)
	if !ok {
		return
	}
	resp.Created(c, gin.H{"session": s, "establishment": est})
}

// Login authenticates a user and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.Accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		resp.Error(c, err)
		return
	}
	s, ok := h.newSession(c, user)
	if !ok {
		return
	}
	resp.OK(c, s)
}

// GetProfile returns the authenticated user and the establishments they own
func (h *Handler) GetProfile(c *gin.Context) {
	p := principal(c)
	user, err := h.Accounts.Get(c.Request.Context(), p.UserID)
	if err != nil {
		resp.Error(c, err)
		return
	}
	owned, err := h.Registry.ListOwned(c.Request.Context(), p)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"user": user, "establishments": owned})
}
