package catalog

import (
	"context"
	"strings"

	"puceats-api/apperr"
	"puceats-api/models"
	"puceats-api/validate"

	"gorm.io/gorm"
)

type CategoryInput struct {
	Name string `json:"name" validate:"required,max=60"`
	Icon string `json:"icon" validate:"max=80"`
}

type CategoryUpdate struct {
	Name *string `json:"name" validate:"omitempty,max=60"`
	Icon *string `json:"icon" validate:"omitempty,max=80"`
}

func (c *Catalog) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	cat := &models.Category{Name: in.Name, Icon: in.Icon}
	if err := c.db.WithContext(ctx).Create(cat).Error; err != nil {
		return nil, c.fault("create category", apperr.FromDB(err, "category", "a category named \""+in.Name+"\" already exists"))
	}
	c.metrics.CatalogWrite("category", "create")
	return cat, nil
}

func (c *Catalog) UpdateCategory(ctx context.Context, id uint, u CategoryUpdate) (*models.Category, error) {
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
	if u.Icon != nil {
		set["icon"] = *u.Icon
	}

	var cat models.Category
	db := c.db.WithContext(ctx)
	if err := db.First(&cat, id).Error; err != nil {
		return nil, c.fault("update category", apperr.FromDB(err, "category", ""))
	}
	if len(set) > 0 {
		if err := db.Model(&cat).Updates(set).Error; err != nil {
			return nil, c.fault("update category", apperr.FromDB(err, "category", "category name already exists"))
		}
		if err := db.First(&cat, id).Error; err != nil {
			return nil, c.fault("update category", apperr.FromDB(err, "category", ""))
		}
	}
	c.metrics.CatalogWrite("category", "update")
	return &cat, nil
}

// ListCategories returns all categories ordered by name.
func (c *Catalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := c.db.WithContext(ctx).Order("name asc").Find(&cats).Error; err != nil {
		return nil, c.fault("list categories", apperr.Storage("list categories", err))
	}
	return cats, nil
}

// DeleteCategory removes a category. Dishes that used it are kept with no
// category.
func (c *Catalog) DeleteCategory(ctx context.Context, id uint) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Dish{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return apperr.Storage("detach dishes", err)
		}
		res := tx.Delete(&models.Category{}, id)
		if res.Error != nil {
			return apperr.Storage("delete category", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("category")
		}
		return nil
	})
	if err != nil {
		return c.fault("delete category", err)
	}
	c.metrics.CatalogWrite("category", "delete")
	return nil
}
