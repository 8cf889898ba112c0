package accounts

import (
	"context"
	"errors"
	"testing"

	"puceats-api/apperr"
	"puceats-api/catalog"
	"puceats-api/ledger"
	"puceats-api/logging"
	"puceats-api/models"
	"puceats-api/testdb"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	ledger   *ledger.Ledger
	accounts *Accounts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)
	l := ledger.New(db, logging.Discard())
	reg := catalog.NewRegistry(db, l, logging.Discard(), nil)
	return &fixture{
		db:       db,
		ledger:   l,
		accounts: New(db, l, reg, logging.Discard(), WithHashCost(bcrypt.MinCost)),
	}
}

func (f *fixture) input(t *testing.T, username, establishment string) RegisterInput {
	t.Helper()
	tok, err := f.ledger.Issue(context.Background(), 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return RegisterInput{
		Username:      username,
		Email:         username + "@campus.edu",
		Password:      "correct horse",
		TokenCode:     tok.Code,
		Establishment: catalog.EstablishmentInput{Name: establishment},
	}
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.input(t, "maria", "Cantina da Maria")

	user, est, err := f.accounts.Register(ctx, in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != models.RoleOwner {
		t.Errorf("role = %q, want owner", user.Role)
	}
	if user.PasswordHash == in.Password {
		t.Error("password stored in clear")
	}
	if !models.PrincipalOf(user).IsOwnerOf(est) {
		t.Errorf("establishment must belong to the new user")
	}
	if est.Slug != "cantina-da-maria" {
		t.Errorf("slug = %q", est.Slug)
	}

	tok, err := f.ledger.Get(ctx, in.TokenCode)
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if !tok.IsUsed || tok.UsedByID == nil || *tok.UsedByID != user.ID {
		t.Fatalf("token must be consumed by the new user: %+v", tok)
	}
}

func TestRegisterRejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	used := f.input(t, "first", "First Place")
	if _, _, err := f.accounts.Register(ctx, used); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name string
		code string
		want error
	}{
		{"unknown", "NOPE", apperr.ErrNotFound},
		{"already used", used.TokenCode, apperr.ErrAlreadyUsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input(t, "second", "Second Place")
			in.TokenCode = tt.code
			_, _, err := f.accounts.Register(ctx, in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	if n := count(t, f.db, &models.User{}); n != 1 {
		t.Fatalf("failed registrations must not create users, have %d", n)
	}
}

func TestRegisterRollsBackOnEstablishmentConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, _, err := f.accounts.Register(ctx, f.input(t, "first", "Same Name")); err != nil {
		t.Fatalf("register: %v", err)
	}

	in := f.input(t, "second", "Same Name")
	_, _, err := f.accounts.Register(ctx, in)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if n := count(t, f.db, &models.User{}); n != 1 {
		t.Fatalf("user must be rolled back, have %d users", n)
	}
	if err := f.ledger.Validate(ctx, in.TokenCode); err != nil {
		t.Fatalf("token must stay redeemable: %v", err)
	}
}

func TestRegisterDuplicateAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, _, err := f.accounts.Register(ctx, f.input(t, "joao", "Joao Lanches")); err != nil {
		t.Fatalf("register: %v", err)
	}

	sameName := f.input(t, "joao", "Other Place")
	sameName.Email = "different@campus.edu"
	if _, _, err := f.accounts.Register(ctx, sameName); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate username: expected Conflict, got %v", err)
	}

	sameEmail := f.input(t, "joao2", "Third Place")
	sameEmail.Email = "JOAO@campus.edu"
	if _, _, err := f.accounts.Register(ctx, sameEmail); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate email: expected Conflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mutations := map[string]func(*RegisterInput){
		"short password": func(in *RegisterInput) { in.Password = "short" },
		"bad email":      func(in *RegisterInput) { in.Email = "not-an-email" },
		"no username":    func(in *RegisterInput) { in.Username = "  " },
		"no token":       func(in *RegisterInput) { in.TokenCode = "" },
		"no name":        func(in *RegisterInput) { in.Establishment.Name = "" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			in := f.input(t, "valid", "Valid Place")
			mutate(&in)
			if _, _, err := f.accounts.Register(ctx, in); !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.input(t, "ana", "Ana Cafe")
	user, _, err := f.accounts.Register(ctx, in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, login := range []string{"ana", "ana@campus.edu", "ANA@campus.edu"} {
		got, err := f.accounts.Authenticate(ctx, login, in.Password)
		if err != nil {
			t.Fatalf("login %q: %v", login, err)
		}
		if got.ID != user.ID {
			t.Fatalf("login %q returned user %d", login, got.ID)
		}
	}

	if _, err := f.accounts.Authenticate(ctx, "ana", "wrong password"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("wrong password: expected Unauthorized, got %v", err)
	}
	if _, err := f.accounts.Authenticate(ctx, "ghost", in.Password); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("unknown user: expected Unauthorized, got %v", err)
	}
	if _, err := f.accounts.Authenticate(ctx, "", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty credentials: expected validation error, got %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.accounts.EnsureAdmin(ctx, "root", "s3cret-pass")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Fatalf("role = %q", admin.Role)
	}
	again, err := f.accounts.EnsureAdmin(ctx, "root", "other-pass")
	if err != nil || again.ID != admin.ID {
		t.Fatalf("second call must reuse the account: %v", err)
	}
	if _, err := f.accounts.Authenticate(ctx, "root", "s3cret-pass"); err != nil {
		t.Fatalf("original password must still work: %v", err)
	}

	owner := testdb.CreateUser(t, f.db, "promoted", models.RoleOwner)
	if _, err := f.accounts.EnsureAdmin(ctx, "promoted", "whatever"); err != nil {
		t.Fatalf("promote: %v", err)
	}
	got, err := f.accounts.Get(ctx, owner.UserID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Role != models.RoleAdmin {
		t.Fatalf("existing user must be promoted, role = %q", got.Role)
	}

	if _, err := f.accounts.Get(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing user: expected NotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testdb.CreateUser(t, f.db, "zed", models.RoleOwner)
	testdb.CreateUser(t, f.db, "amy", models.RoleOwner)
	testdb.CreateUser(t, f.db, "boss", models.RoleAdmin)

	all, err := f.accounts.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Username != "amy" || all[2].Username != "zed" {
		t.Fatalf("unexpected order: %+v", all)
	}
	admins, err := f.accounts.List(ctx, models.RoleAdmin)
	if err != nil || len(admins) != 1 || admins[0].Username != "boss" {
		t.Fatalf("admins: %v %+v", err, admins)
	}
}
