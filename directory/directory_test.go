package directory

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

	"gorm.io/gorm"
)

type seeded struct {
	dir      *Directory
	db       *gorm.DB
	category *models.Category
}

// seed builds two restaurants and a stall, with dishes in one shared category.
func seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	db := testdb.New(t)
	l := ledger.New(db, logging.Discard())
	reg := catalog.NewRegistry(db, l, logging.Discard(), nil)
	cat := catalog.New(db, reg, logging.Discard(), nil)
	owner := testdb.CreateUser(t, db, "owner", models.RoleOwner)

	sweets, err := cat.CreateCategory(ctx, catalog.CategoryInput{Name: "Doces"})
	if err != nil {
		t.Fatalf("category: %v", err)
	}

	create := func(name string, typ models.EstablishmentType, cuisine models.CuisineType, desc string) *models.Establishment {
		tok, err := l.Issue(ctx, 0)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		est, err := reg.CreateEstablishment(ctx, owner, tok.Code, catalog.EstablishmentInput{
			Name:              name,
			EstablishmentType: typ,
			CuisineType:       cuisine,
			Description:       desc,
		})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		return est
	}
	add := func(est *models.Establishment, name string, available bool, category *uint) {
		_, err := cat.AddDish(ctx, owner, est.ID, catalog.DishInput{
			Name:       name,
			Price:      models.MustMoney("10"),
			Available:  &available,
			CategoryID: category,
		})
		if err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	sakura := create("Sakura", models.TypeRestaurant, models.CuisineJapanese, "sushi and ramen")
	bistro := create("Bistrô da Praça", models.TypeRestaurant, models.CuisineBrazilian, "prato feito")
	kiosk := create("Kiosk 7", models.TypeStall, models.CuisineSnacks, "")

	add(sakura, "Temaki", true, nil)
	add(sakura, "Mochi", true, &sweets.ID)
	add(bistro, "Brigadeiro", true, &sweets.ID)
	add(bistro, "Pudim", false, &sweets.ID)
	add(kiosk, "Pastel", true, nil)

	return seeded{dir: New(db, logging.Discard()), db: db, category: sweets}
}

func names(list []models.Establishment) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListByType(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	list, err := s.dir.ListByType(ctx, models.TypeRestaurant)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := names(list); !equal(got, []string{"Bistrô da Praça", "Sakura"}) {
		t.Fatalf("restaurants = %v", got)
	}
	sakura := list[1]
	if len(sakura.Dishes) != 2 || sakura.Dishes[0].Name != "Mochi" || sakura.Dishes[1].Name != "Temaki" {
		t.Fatalf("dishes must be attached in name order: %+v", sakura.Dishes)
	}
	if sakura.Dishes[0].Category == nil || sakura.Dishes[0].Category.Name != "Doces" {
		t.Fatalf("dish category must be attached: %+v", sakura.Dishes[0])
	}

	none, err := s.dir.ListByType(ctx, models.TypeSnackBar)
	if err != nil || len(none) != 0 {
		t.Fatalf("snack bars: %v, %d", err, len(none))
	}
	if _, err := s.dir.ListByType(ctx, "food_truck"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown type: expected validation error, got %v", err)
	}
}

func TestList(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"everything", Filter{}, []string{"Bistrô da Praça", "Kiosk 7", "Sakura"}},
		{"by type", Filter{Type: models.TypeStall}, []string{"Kiosk 7"}},
		{"by cuisine", Filter{Cuisine: models.CuisineJapanese}, []string{"Sakura"}},
		{"search name", Filter{Search: "kiosk"}, []string{"Kiosk 7"}},
		{"search description", Filter{Search: "RAMEN"}, []string{"Sakura"}},
		{"combined", Filter{Type: models.TypeRestaurant, Search: "prato"}, []string{"Bistrô da Praça"}},
		{"no match", Filter{Search: "pizza"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.dir.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if got := names(list); !equal(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := s.dir.List(ctx, Filter{Cuisine: "martian"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown cuisine: expected validation error, got %v", err)
	}
}

func TestGetBySlug(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	est, err := s.dir.GetBySlug(ctx, "bistro-da-praca")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if est.Name != "Bistrô da Praça" || len(est.Dishes) != 2 {
		t.Fatalf("unexpected establishment: %s with %d dishes", est.Name, len(est.Dishes))
	}

	for _, slug := range []string{"nope", ""} {
		if _, err := s.dir.GetBySlug(ctx, slug); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("slug %q: expected NotFound, got %v", slug, err)
		}
	}
}

func TestDishesByCategory(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	dishes, err := s.dir.DishesByCategory(ctx, s.category.ID)
	if err != nil {
		t.Fatalf("dishes: %v", err)
	}
	if len(dishes) != 2 || dishes[0].Name != "Brigadeiro" || dishes[1].Name != "Mochi" {
		t.Fatalf("expected available dishes in name order, got %+v", dishes)
	}
	if dishes[0].Establishment == nil || dishes[0].Establishment.Name != "Bistrô da Praça" {
		t.Fatalf("establishment must be attached: %+v", dishes[0])
	}

	if _, err := s.dir.DishesByCategory(ctx, s.category.ID+50); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown category: expected NotFound, got %v", err)
	}
}

func TestReadsDoNotMutate(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	count := func() (n int64) {
		s.db.Model(&models.Dish{}).Count(&n)
		return n
	}
	before := count()
	s.dir.ListByType(ctx, models.TypeRestaurant)
	s.dir.GetBySlug(ctx, "sakura")
	s.dir.DishesByCategory(ctx, s.category.ID)
	if after := count(); after != before {
		t.Fatalf("dish count changed from %d to %d", before, after)
	}
}
