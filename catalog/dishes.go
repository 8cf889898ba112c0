package catalog

import (
	"context"
	"strings"

	"puceats-api/apperr"
	"puceats-api/metrics"
	"puceats-api/models"
	"puceats-api/validate"

	"github.com/hashicorp/go-hclog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxPrice is the largest value a decimal(8,2) column holds.
var maxPrice = decimal.RequireFromString("999999.99")

type DishInput struct {
	Name         string       `json:"name" validate:"required,max=120"`
	Slug         string       `json:"slug" validate:"max=140"`
	Description  string       `json:"description"`
	Price        models.Money `json:"price"`
	CategoryID   *uint        `json:"category_id"`
	IsVegan      bool         `json:"is_vegan"`
	IsVegetarian bool         `json:"is_vegetarian"`
	IsGlutenFree bool         `json:"is_gluten_free"`
	Available    *bool        `json:"available"`
	Image        string       `json:"image" validate:"max=255"`
}

// DishUpdate carries a partial update; nil fields are left alone. A
// CategoryID pointing at 0 clears the category. The slug never changes.
type DishUpdate struct {
	EstablishmentID *uint         `json:"establishment_id"`
	CategoryID      *uint         `json:"category_id"`
	Name            *string       `json:"name" validate:"omitempty,max=120"`
	Description     *string       `json:"description"`
	Price           *models.Money `json:"price"`
	IsVegan         *bool         `json:"is_vegan"`
	IsVegetarian    *bool         `json:"is_vegetarian"`
	IsGlutenFree    *bool         `json:"is_gluten_free"`
	Available       *bool         `json:"available"`
	Image           *string       `json:"image" validate:"omitempty,max=255"`
}

// DishFilter narrows ListDishes. Nil fields do not filter.
type DishFilter struct {
	CategoryID    *uint
	Vegan         *bool
	Vegetarian    *bool
	GlutenFree    *bool
	AvailableOnly bool
}

func checkPrice(p models.Money) error {
	if !p.IsPositive() {
		return apperr.Validation("price must be greater than zero")
	}
	if p.GreaterThan(maxPrice) {
		return apperr.Validation("price must be at most %s", maxPrice.StringFixed(models.MoneyPlaces))
	}
	return nil
}

type Catalog struct {
	db       *gorm.DB
	registry *Registry
	log      hclog.Logger
	metrics  *metrics.Metrics
}

func New(db *gorm.DB, registry *Registry, log hclog.Logger, m *metrics.Metrics) *Catalog {
	return &Catalog{db: db, registry: registry, log: log.Named("catalog"), metrics: m}
}

// AddDish creates a dish under an establishment owned by principal.
func (c *Catalog) AddDish(ctx context.Context, principal models.Principal, establishmentID uint, in DishInput) (*models.Dish, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	if err := checkPrice(in.Price); err != nil {
		return nil, err
	}

	var dish *models.Dish
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		est, err := c.registry.WithTx(tx).AuthorizeMutation(ctx, principal, establishmentID)
		if err != nil {
			return err
		}
		categoryID, err := resolveCategory(tx, in.CategoryID)
		if err != nil {
			return err
		}

		base := baseSlug(in.Name)
		if in.Slug != "" {
			if base, err = customSlug(in.Slug); err != nil {
				return err
			}
		}
		s, err := uniqueSlug(ctx, tx, &models.Dish{}, base)
		if err != nil {
			return apperr.Storage("derive dish slug", err)
		}

		available := true
		if in.Available != nil {
			available = *in.Available
		}
		dish = &models.Dish{
			EstablishmentID: est.ID,
			CategoryID:      categoryID,
			Name:            in.Name,
			Slug:            s,
			Description:     in.Description,
			Price:           in.Price,
			IsVegan:         in.IsVegan,
			IsVegetarian:    in.IsVegetarian,
			IsGlutenFree:    in.IsGlutenFree,
			Available:       available,
			Image:           in.Image,
		}
		if err := tx.Create(dish).Error; err != nil {
			return apperr.FromDB(err, "dish", "dish already exists")
		}
		return tx.Preload("Category").First(dish, dish.ID).Error
	})
	if err != nil {
		return nil, c.fault("add dish", err)
	}

	c.metrics.CatalogWrite("dish", "create")
	c.log.Debug("dish added", "dish_id", dish.ID, "establishment_id", establishmentID)
	return dish, nil
}

// resolveCategory returns nil for "no category" and fails if the id is unknown.
func resolveCategory(tx *gorm.DB, id *uint) (*uint, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return nil, apperr.Storage("check category", err)
	}
	if count == 0 {
		return nil, apperr.NotFound("category")
	}
	v := *id
	return &v, nil
}

// EditDish applies u to a dish whose establishment principal owns.
func (c *Catalog) EditDish(ctx context.Context, principal models.Principal, dishID uint, u DishUpdate) (*models.Dish, error) {
	if err := validate.Struct(&u); err != nil {
		return nil, err
	}
	set := map[string]any{}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		set["name"] = name
	}
	if u.Price != nil {
		if err := checkPrice(*u.Price); err != nil {
			return nil, err
		}
		set["price"] = *u.Price
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.IsVegan != nil {
		set["is_vegan"] = *u.IsVegan
	}
	if u.IsVegetarian != nil {
		set["is_vegetarian"] = *u.IsVegetarian
	}
	if u.IsGlutenFree != nil {
		set["is_gluten_free"] = *u.IsGlutenFree
	}
	if u.Available != nil {
		set["available"] = *u.Available
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}

	var dish models.Dish
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&dish, dishID).Error; err != nil {
			return apperr.FromDB(err, "dish", "")
		}
		registry := c.registry.WithTx(tx)
		if _, err := registry.AuthorizeMutation(ctx, principal, dish.EstablishmentID); err != nil {
			return dishNotFound(err)
		}
		if u.EstablishmentID != nil && *u.EstablishmentID != dish.EstablishmentID {
			target, err := registry.AuthorizeMutation(ctx, principal, *u.EstablishmentID)
			if err != nil {
				return err
			}
			set["establishment_id"] = target.ID
		}
		if u.CategoryID != nil {
			categoryID, err := resolveCategory(tx, u.CategoryID)
			if err != nil {
				return err
			}
			set["category_id"] = categoryID
		}
		if len(set) > 0 {
			if err := tx.Model(&dish).Updates(set).Error; err != nil {
				return apperr.FromDB(err, "dish", "dish already exists")
			}
		}
		var fresh models.Dish
		if err := tx.Preload("Category").First(&fresh, dish.ID).Error; err != nil {
			return err
		}
		dish = fresh
		return nil
	})
	if err != nil {
		return nil, c.fault("edit dish", err)
	}
	c.metrics.CatalogWrite("dish", "update")
	return &dish, nil
}

// DeleteDish hard-deletes a dish whose establishment principal owns.
func (c *Catalog) DeleteDish(ctx context.Context, principal models.Principal, dishID uint) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dish models.Dish
		if err := tx.First(&dish, dishID).Error; err != nil {
			return apperr.FromDB(err, "dish", "")
		}
		if _, err := c.registry.WithTx(tx).AuthorizeMutation(ctx, principal, dish.EstablishmentID); err != nil {
			return dishNotFound(err)
		}
		if err := tx.Delete(&dish).Error; err != nil {
			return apperr.Storage("delete dish", err)
		}
		return nil
	})
	if err != nil {
		return c.fault("delete dish", err)
	}
	c.metrics.CatalogWrite("dish", "delete")
	return nil
}

// dishNotFound hides whose establishment a dish belongs to. Storage faults
// pass through so they are logged.
func dishNotFound(err error) error {
	if apperr.KindOf(err) == apperr.KindNotFound {
		return apperr.NotFound("dish")
	}
	return err
}

// ListDishes returns an establishment's dishes ordered by name.
func (c *Catalog) ListDishes(ctx context.Context, establishmentID uint, f DishFilter) ([]models.Dish, error) {
	db := c.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Establishment{}).Where("id = ?", establishmentID).Count(&count).Error; err != nil {
		return nil, c.fault("list dishes", apperr.Storage("check establishment", err))
	}
	if count == 0 {
		return nil, apperr.NotFound("establishment")
	}

	q := db.Preload("Category").Where("establishment_id = ?", establishmentID)
	q = applyDishFilter(q, f)

	var dishes []models.Dish
	if err := q.Order("name asc").Order("id asc").Find(&dishes).Error; err != nil {
		return nil, c.fault("list dishes", apperr.Storage("list dishes", err))
	}
	return dishes, nil
}

func applyDishFilter(q *gorm.DB, f DishFilter) *gorm.DB {
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Vegan != nil {
		q = q.Where("is_vegan = ?", *f.Vegan)
	}
	if f.Vegetarian != nil {
		q = q.Where("is_vegetarian = ?", *f.Vegetarian)
	}
	if f.GlutenFree != nil {
		q = q.Where("is_gluten_free = ?", *f.GlutenFree)
	}
	if f.AvailableOnly {
		q = q.Where("available = ?", true)
	}
	return q
}

func (c *Catalog) fault(op string, err error) error {
	return logFault(c.log, op, err)
}
