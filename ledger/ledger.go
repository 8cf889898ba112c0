// Package ledger issues, validates and redeems single-use invitation tokens.
package ledger

import (
	"context"
	"errors"
	"time"

	"puceats-api/apperr"
	"puceats-api/metrics"
	"puceats-api/models"
	"puceats-api/statemachine"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
)

const (
	DefaultValidityDays = 30
	MaxBatch            = 100
	maxIssueAttempts    = 5
)

type Ledger struct {
	db      *gorm.DB
	log     hclog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newCode func() (string, error)
}

type Option func(*Ledger)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithCodeGenerator overrides GenerateCode.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(l *Ledger) { l.newCode = gen }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func New(db *gorm.DB, log hclog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		db:      db,
		log:     log.Named("ledger"),
		now:     time.Now,
		newCode: GenerateCode,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithTx returns a copy of the ledger bound to an open transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	c := *l
	c.db = tx
	return &c
}

func (l *Ledger) clock() time.Time { return l.now().UTC() }

// Now is the ledger's notion of the current time, in UTC.
func (l *Ledger) Now() time.Time { return l.clock() }

// Issue creates a token valid for validityDays (DefaultValidityDays if <= 0).
// A code collision is retried with a fresh code.
func (l *Ledger) Issue(ctx context.Context, validityDays int) (*models.Token, error) {
	if validityDays <= 0 {
		validityDays = DefaultValidityDays
	}
	now := l.clock()

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		code, err := l.newCode()
		if err != nil {
			return nil, apperr.Storage("generate token code", err)
		}
		tok := &models.Token{
			Code:      Normalize(code),
			CreatedAt: now,
			ExpiresAt: now.AddDate(0, 0, validityDays),
		}
		err = l.db.WithContext(ctx).Create(tok).Error
		if err == nil {
			l.metrics.TokenIssued()
			l.log.Info("token issued", "token_id", tok.ID, "expires_at", tok.ExpiresAt)
			return tok, nil
		}
		if !apperr.IsDuplicate(err) {
			l.log.Error("issue token failed", "error", err)
			return nil, apperr.Storage("issue token", err)
		}
		l.log.Warn("token code collision, regenerating", "attempt", attempt)
	}
	return nil, apperr.Storage("issue token", errors.New("exhausted code generation attempts"))
}

// IssueBatch issues n tokens with the same validity.
func (l *Ledger) IssueBatch(ctx context.Context, n, validityDays int) ([]models.Token, error) {
	if n < 1 || n > MaxBatch {
		return nil, apperr.Validation("quantity must be between 1 and %d", MaxBatch)
	}
	tokens := make([]models.Token, 0, n)
	for i := 0; i < n; i++ {
		tok, err := l.Issue(ctx, validityDays)
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, *tok)
	}
	return tokens, nil
}

// Get returns the token with the given code, including who used it.
func (l *Ledger) Get(ctx context.Context, code string) (*models.Token, error) {
	norm := Normalize(code)
	if norm == "" {
		return nil, apperr.Validation("token code is required")
	}
	var tok models.Token
	err := l.db.WithContext(ctx).Preload("UsedBy").Where("code = ?", norm).First(&tok).Error
	if err != nil {
		return nil, apperr.FromDB(err, "token", "")
	}
	return &tok, nil
}

// Validate reports whether code could be redeemed right now. It never
// mutates the token.
func (l *Ledger) Validate(ctx context.Context, code string) error {
	tok, err := l.Get(ctx, code)
	if err != nil {
		return err
	}
	return statemachine.CheckRedeemable(tok.StatusAt(l.clock()))
}

// Redeem marks the token used by principal. The update is conditional on the
// token still being unused and unexpired, so of several concurrent
// redemptions exactly one succeeds.
func (l *Ledger) Redeem(ctx context.Context, code string, principal models.Principal) error {
	norm := Normalize(code)
	if norm == "" {
		return apperr.Validation("token code is required")
	}
	if principal.UserID == 0 {
		return apperr.Validation("a principal is required to redeem a token")
	}

	now := l.clock()
	res := l.db.WithContext(ctx).Model(&models.Token{}).
		Where("code = ? AND is_used = ? AND expires_at > ?", norm, false, now).
		Updates(map[string]any{
			"is_used":    true,
			"used_by_id": principal.UserID,
			"used_at":    now,
		})
	if res.Error != nil {
		l.metrics.TokenRedemption(metrics.OutcomeError)
		l.log.Error("redeem token failed", "error", res.Error)
		return apperr.Storage("redeem token", res.Error)
	}
	if res.RowsAffected == 1 {
		l.metrics.TokenRedemption(metrics.OutcomeRedeemed)
		l.log.Info("token redeemed", "user_id", principal.UserID)
		return nil
	}

	// Nothing matched: explain why without touching the row
	err := l.Validate(ctx, norm)
	if err == nil {
		// Redeemable again by the time we looked: another writer raced us
		err = apperr.AlreadyUsed("token has already been used")
	}
	l.metrics.TokenRedemption(outcomeOf(err))
	return err
}

func outcomeOf(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return metrics.OutcomeNotFound
	case apperr.KindAlreadyUsed:
		return metrics.OutcomeAlreadyUsed
	case apperr.KindExpired:
		return metrics.OutcomeExpired
	default:
		return metrics.OutcomeError
	}
}

// ListFilter narrows List. Zero values mean "all" and DefaultListLimit.
type ListFilter struct {
	Status models.TokenStatus
	Limit  int
}

const DefaultListLimit = 50

// List returns tokens newest first.
func (l *Ledger) List(ctx context.Context, f ListFilter) ([]models.Token, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	now := l.clock()

	q := l.db.WithContext(ctx).Preload("UsedBy").Order("created_at desc").Order("id desc").Limit(limit)
	switch f.Status {
	case "":
	case models.TokenAvailable:
		q = q.Where("is_used = ? AND expires_at > ?", false, now)
	case models.TokenUsed:
		q = q.Where("is_used = ?", true)
	case models.TokenExpired:
		q = q.Where("is_used = ? AND expires_at <= ?", false, now)
	default:
		return nil, apperr.Validation("unknown token status %q", f.Status)
	}

	var tokens []models.Token
	if err := q.Find(&tokens).Error; err != nil {
		return nil, apperr.Storage("list tokens", err)
	}
	return tokens, nil
}
