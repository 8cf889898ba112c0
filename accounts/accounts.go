// Package accounts registers establishment owners and authenticates users.
package accounts

import (
	"context"
	"errors"
	"strings"

	"puceats-api/apperr"
	"puceats-api/catalog"
	"puceats-api/ledger"
	"puceats-api/models"
	"puceats-api/validate"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput is the sign-up form: an account, an invitation token and the
// first establishment the new owner will run.
type RegisterInput struct {
	Username      string                     `json:"username" validate:"required,min=3,max=150"`
	Email         string                     `json:"email" validate:"required,email,max=254"`
	Password      string                     `json:"password" validate:"required,min=8,max=72"`
	TokenCode     string                     `json:"token" validate:"required,max=64"`
	Establishment catalog.EstablishmentInput `json:"establishment" validate:"-"`
}

type Accounts struct {
	db       *gorm.DB
	ledger   *ledger.Ledger
	registry *catalog.Registry
	log      hclog.Logger
	cost     int
}

type Option func(*Accounts)

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(a *Accounts) { a.cost = cost }
}

func New(db *gorm.DB, l *ledger.Ledger, r *catalog.Registry, log hclog.Logger, opts ...Option) *Accounts {
	a := &Accounts{
		db:       db,
		ledger:   l,
		registry: r,
		log:      log.Named("accounts"),
		cost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register creates an owner account and its first establishment, consuming
// the invitation token. Either everything is stored or nothing is.
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*models.User, *models.Establishment, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(&in); err != nil {
		return nil, nil, err
	}
	// Fail fast on a bad token before hashing the password
	if err := a.ledger.Validate(ctx, in.TokenCode); err != nil {
		return nil, nil, a.fault("register", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.cost)
	if err != nil {
		return nil, nil, a.fault("register", apperr.Storage("hash password", err))
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         models.RoleOwner,
	}
	var est *models.Establishment
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkAvailable(tx, user.Username, user.Email); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			return apperr.FromDB(err, "user", "username or email already registered")
		}
		var err error
		est, err = a.registry.WithTx(tx).CreateEstablishment(ctx, models.PrincipalOf(user), in.TokenCode, in.Establishment)
		return err
	})
	if err != nil {
		return nil, nil, a.fault("register", err)
	}

	a.log.Info("owner registered", "user_id", user.ID, "establishment_id", est.ID)
	return user, est, nil
}

func checkAvailable(tx *gorm.DB, username, email string) error {
	var existing models.User
	err := tx.Where("username = ? OR email = ?", username, email).First(&existing).Error
	switch {
	case err == nil:
		if existing.Username == username {
			return apperr.Conflict("username %q is already taken", username)
		}
		return apperr.Conflict("email %q is already registered", email)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return apperr.Storage("check user", err)
	}
}

// Authenticate checks a username (or email) and password pair.
func (a *Accounts) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	var user models.User
	err := a.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid username or password")
		}
		return nil, a.fault("authenticate", apperr.Storage("load user", err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid username or password")
	}
	return &user, nil
}

func (a *Accounts) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := a.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, a.fault("get user", apperr.FromDB(err, "user", ""))
	}
	return &user, nil
}

// List returns users ordered by username, optionally only those with role.
func (a *Accounts) List(ctx context.Context, role models.UserRole) ([]models.User, error) {
	q := a.db.WithContext(ctx).Order("username asc")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, a.fault("list users", apperr.Storage("list users", err))
	}
	return users, nil
}

// EnsureAdmin creates the admin account if no user has that username, or
// promotes the existing user. The password of an existing user is kept.
func (a *Accounts) EnsureAdmin(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("admin username and password are required")
	}

	var user models.User
	db := a.db.WithContext(ctx)
	err := db.Where("username = ?", username).First(&user).Error
	switch {
	case err == nil:
		if user.Role != models.RoleAdmin {
			if err := db.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
				return nil, a.fault("ensure admin", apperr.Storage("promote admin", err))
			}
			a.log.Warn("promoted existing user to admin", "user_id", user.ID)
		}
		return &user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, a.fault("ensure admin", apperr.Storage("load admin", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, a.fault("ensure admin", apperr.Storage("hash password", err))
	}
	user = models.User{
		Username:     username,
		Email:        username + "@admin.local",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, a.fault("ensure admin", apperr.FromDB(err, "user", "admin email already registered"))
	}
	a.log.Info("admin account created", "user_id", user.ID, "username", username)
	return &user, nil
}

func (a *Accounts) fault(op string, err error) error {
	if apperr.KindOf(err) == apperr.KindStorage {
		a.log.Error(op+" failed", "error", err)
		var e *apperr.Error
		if !errors.As(err, &e) {
			return apperr.Storage(op, err)
		}
	}
	return err
}
