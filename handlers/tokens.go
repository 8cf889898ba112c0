package handlers

import (
	"puceats-api/ledger"
	"puceats-api/models"
	"puceats-api/resp"

	"github.com/gin-gonic/gin"
)

type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// tokenView adds the derived status to a stored token.
type tokenView struct {
	models.Token
	Status models.TokenStatus `json:"status"`
}

func (h *Handler) view(t *models.Token) tokenView {
	return tokenView{Token: *t, Status: t.StatusAt(h.Ledger.Now())}
}

// ValidateToken tells a prospective owner whether their code can be used,
// without consuming it.
func (h *Handler) ValidateToken(c *gin.Context) {
	var req ValidateTokenRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Ledger.Validate(c.Request.Context(), req.Token); err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"valid": true})
}

type IssueTokensRequest struct {
	Quantity     int `json:"quantity"`
	ValidityDays int `json:"validity_days"`
}

// IssueTokens creates a batch of invitation tokens (admin only)
func (h *Handler) IssueTokens(c *gin.Context) {
	var req IssueTokensRequest
	if !bind(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.ValidityDays <= 0 {
		req.ValidityDays = h.TokenValidity
	}
	tokens, err := h.Ledger.IssueBatch(c.Request.Context(), req.Quantity, req.ValidityDays)
	if err != nil {
		resp.Error(c, err)
		return
	}
	views := make([]tokenView, len(tokens))
	for i := range tokens {
		views[i] = h.view(&tokens[i])
	}
	h.Log.Info("tokens issued", "count", len(tokens), "validity_days", req.ValidityDays, "admin_id", principal(c).UserID)
	resp.Created(c, gin.H{"count": len(views), "tokens": views})
}

// ListTokens returns tokens newest first, optionally by ?status=
func (h *Handler) ListTokens(c *gin.Context) {
	var q struct {
		Status models.TokenStatus `form:"status"`
		Limit  int                `form:"limit"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		resp.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	tokens, err := h.Ledger.List(c.Request.Context(), ledger.ListFilter{Status: q.Status, Limit: q.Limit})
	if err != nil {
		resp.Error(c, err)
		return
	}
	views := make([]tokenView, len(tokens))
	for i := range tokens {
		views[i] = h.view(&tokens[i])
	}
	resp.OK(c, gin.H{"count": len(views), "tokens": views})
}

func (h *Handler) GetToken(c *gin.Context) {
	tok, err := h.Ledger.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, h.view(tok))
}
