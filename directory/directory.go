// Package directory is the read-only browsing surface over the catalog.
// Nothing here checks ownership or writes to the store.
package directory

import (
	"context"
	"strings"

	"puceats-api/apperr"
	"puceats-api/models"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
)

// Filter narrows List. Empty fields do not filter.
type Filter struct {
	Type    models.EstablishmentType
	Cuisine models.CuisineType
	Search  string
}

type Directory struct {
	db  *gorm.DB
	log hclog.Logger
}

func New(db *gorm.DB, log hclog.Logger) *Directory {
	return &Directory{db: db, log: log.Named("directory")}
}

func orderedDishes(db *gorm.DB) *gorm.DB {
	return db.Order("name asc").Order("id asc")
}

// ListByType returns the establishments of type t, each with its dishes.
func (d *Directory) ListByType(ctx context.Context, t models.EstablishmentType) ([]models.Establishment, error) {
	if !t.Valid() {
		return nil, apperr.Validation("unknown establishment_type %q", t)
	}
	var list []models.Establishment
	err := d.db.WithContext(ctx).
		Preload("Dishes", orderedDishes).
		Preload("Dishes.Category").
		Where("establishment_type = ?", t).
		Order("name asc").
		Find(&list).Error
	if err != nil {
		return nil, d.fault("list by type", err)
	}
	return list, nil
}

// List returns establishments matching f, without dishes.
func (d *Directory) List(ctx context.Context, f Filter) ([]models.Establishment, error) {
	q := d.db.WithContext(ctx).Model(&models.Establishment{})
	if f.Type != "" {
		if !f.Type.Valid() {
			return nil, apperr.Validation("unknown establishment_type %q", f.Type)
		}
		q = q.Where("establishment_type = ?", f.Type)
	}
	if f.Cuisine != "" {
		if !f.Cuisine.Valid() {
			return nil, apperr.Validation("unknown cuisine_type %q", f.Cuisine)
		}
		q = q.Where("cuisine_type = ?", f.Cuisine)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	var list []models.Establishment
	if err := q.Order("name asc").Find(&list).Error; err != nil {
		return nil, d.fault("list establishments", err)
	}
	return list, nil
}

// GetBySlug returns one establishment with its dishes and their categories.
func (d *Directory) GetBySlug(ctx context.Context, slug string) (*models.Establishment, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, apperr.NotFound("establishment")
	}
	var est models.Establishment
	err := d.db.WithContext(ctx).
		Preload("Dishes", orderedDishes).
		Preload("Dishes.Category").
		Where("slug = ?", slug).
		First(&est).Error
	if err != nil {
		if err := apperr.FromDB(err, "establishment", ""); apperr.KindOf(err) == apperr.KindNotFound {
			return nil, err
		}
		return nil, d.fault("get by slug", err)
	}
	return &est, nil
}

// DishesByCategory returns the available dishes of a category across all
// establishments, with the establishment attached.
func (d *Directory) DishesByCategory(ctx context.Context, categoryID uint) ([]models.Dish, error) {
	db := d.db.WithContext(ctx)

	var cat models.Category
	if err := db.First(&cat, categoryID).Error; err != nil {
		if err := apperr.FromDB(err, "category", ""); apperr.KindOf(err) == apperr.KindNotFound {
			return nil, err
		}
		return nil, d.fault("dishes by category", err)
	}

	var dishes []models.Dish
	err := db.Preload("Establishment").Preload("Category").
		Where("category_id = ? AND available = ?", categoryID, true).
		Order("name asc").Order("id asc").
		Find(&dishes).Error
	if err != nil {
		return nil, d.fault("dishes by category", err)
	}
	return dishes, nil
}

func (d *Directory) fault(op string, err error) error {
	d.log.Error(op+" failed", "error", err)
	return apperr.Storage(op, err)
}
