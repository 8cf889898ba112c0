package handlers

import (
	"strconv"

	"puceats-api/accounts"
	"puceats-api/catalog"
	"puceats-api/directory"
	"puceats-api/ledger"
	"puceats-api/middleware"
	"puceats-api/models"
	"puceats-api/resp"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
)

// Handler holds the services the HTTP endpoints call into.
type Handler struct {
	Ledger    *ledger.Ledger
	Registry  *catalog.Registry
	Catalog   *catalog.Catalog
	Directory *directory.Directory
	Accounts  *accounts.Accounts
	Auth      *middleware.Authenticator
	Log       hclog.Logger

	// TokenValidity is the lifetime, in days, of tokens issued without an
	// explicit validity.
	TokenValidity int
}

// bind decodes the JSON body into dst, answering 400 on malformed input.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		resp.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		resp.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// principal is only called behind AuthRequired.
func principal(c *gin.Context) models.Principal {
	p, _ := middleware.CurrentPrincipal(c)
	return p
}

func boolQuery(c *gin.Context, name string) *bool {
	v, ok := c.GetQuery(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
