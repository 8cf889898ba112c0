// Package catalog owns establishments, dishes and categories.
//
// Registry ties establishments to their owning principal and guards every
// mutation with an ownership check. Catalog manages the dish tree beneath an
// establishment and the shared category list.
package catalog

import (
	"context"
	"errors"
	"strings"

	"puceats-api/apperr"
	"puceats-api/ledger"
	"puceats-api/metrics"
	"puceats-api/models"
	"puceats-api/validate"

	"github.com/hashicorp/go-hclog"
	"github.com/oapi-codegen/nullable"
	"gorm.io/gorm"
)

type EstablishmentInput struct {
	Name              string                   `json:"name" validate:"required,max=120"`
	Slug              string                   `json:"slug" validate:"max=140"`
	EstablishmentType models.EstablishmentType `json:"establishment_type"`
	CuisineType       models.CuisineType       `json:"cuisine_type"`
	Description       string                   `json:"description"`
	Logo              string                   `json:"logo" validate:"max=255"`
	Building          string                   `json:"building" validate:"max=80"`
	Latitude          *float64                 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude         *float64                 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	OpeningHours      string                   `json:"opening_hours" validate:"max=120"`
	Phone             string                   `json:"phone" validate:"max=20"`
	Instagram         string                   `json:"instagram" validate:"omitempty,url"`
	Website           string                   `json:"website" validate:"omitempty,url"`
	PriceLevel        int                      `json:"price_level" validate:"omitempty,min=1,max=5"`
}

func (in *EstablishmentInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.EstablishmentType == "" {
		in.EstablishmentType = models.TypeRestaurant
	}
	if in.CuisineType == "" {
		in.CuisineType = models.CuisineOther
	}
	if in.PriceLevel == 0 {
		in.PriceLevel = models.MinPriceLevel
	}
}

func (in *EstablishmentInput) validate() error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if !in.EstablishmentType.Valid() {
		return apperr.Validation("unknown establishment_type %q", in.EstablishmentType)
	}
	if !in.CuisineType.Valid() {
		return apperr.Validation("unknown cuisine_type %q", in.CuisineType)
	}
	if in.Slug != "" {
		if _, err := customSlug(in.Slug); err != nil {
			return err
		}
	}
	return nil
}

// EstablishmentUpdate carries a partial update; nil fields are left alone.
// Coordinates are nullable: an explicit null clears them.
// The slug is fixed at creation and cannot be changed.
type EstablishmentUpdate struct {
	Name              *string                    `json:"name" validate:"omitempty,max=120"`
	EstablishmentType *models.EstablishmentType  `json:"establishment_type"`
	CuisineType       *models.CuisineType        `json:"cuisine_type"`
	Description       *string                    `json:"description"`
	Logo              *string                    `json:"logo" validate:"omitempty,max=255"`
	Building          *string                    `json:"building" validate:"omitempty,max=80"`
	Latitude          nullable.Nullable[float64] `json:"latitude"`
	Longitude         nullable.Nullable[float64] `json:"longitude"`
	OpeningHours      *string                    `json:"opening_hours" validate:"omitempty,max=120"`
	Phone             *string                    `json:"phone" validate:"omitempty,max=20"`
	Instagram         *string                    `json:"instagram" validate:"omitempty,url"`
	Website           *string                    `json:"website" validate:"omitempty,url"`
	PriceLevel        *int                       `json:"price_level" validate:"omitempty,min=1,max=5"`
}

// changes validates u and returns the column assignments it implies.
func (u *EstablishmentUpdate) changes() (map[string]any, error) {
	if err := validate.Struct(u); err != nil {
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
	if u.EstablishmentType != nil {
		if !u.EstablishmentType.Valid() {
			return nil, apperr.Validation("unknown establishment_type %q", *u.EstablishmentType)
		}
		set["establishment_type"] = *u.EstablishmentType
	}
	if u.CuisineType != nil {
		if !u.CuisineType.Valid() {
			return nil, apperr.Validation("unknown cuisine_type %q", *u.CuisineType)
		}
		set["cuisine_type"] = *u.CuisineType
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Logo != nil {
		set["logo"] = *u.Logo
	}
	if u.Building != nil {
		set["building"] = *u.Building
	}
	if u.Latitude.IsSpecified() {
		v, err := coordinate("latitude", u.Latitude, 90)
		if err != nil {
			return nil, err
		}
		set["latitude"] = v
	}
	if u.Longitude.IsSpecified() {
		v, err := coordinate("longitude", u.Longitude, 180)
		if err != nil {
			return nil, err
		}
		set["longitude"] = v
	}
	if u.OpeningHours != nil {
		set["opening_hours"] = *u.OpeningHours
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	if u.Instagram != nil {
		set["instagram"] = *u.Instagram
	}
	if u.Website != nil {
		set["website"] = *u.Website
	}
	if u.PriceLevel != nil {
		set["price_level"] = *u.PriceLevel
	}
	return set, nil
}

// coordinate returns the column value for a specified coordinate: nil clears
// it, otherwise the value must lie within [-limit, limit].
func coordinate(field string, n nullable.Nullable[float64], limit float64) (any, error) {
	if n.IsNull() {
		return nil, nil
	}
	v, err := n.Get()
	if err != nil {
		return nil, apperr.Validation("invalid %s", field)
	}
	if v < -limit || v > limit {
		return nil, apperr.Validation("%s must be between %g and %g", field, -limit, limit)
	}
	return v, nil
}

type Registry struct {
	db      *gorm.DB
	ledger  *ledger.Ledger
	log     hclog.Logger
	metrics *metrics.Metrics
}

func NewRegistry(db *gorm.DB, l *ledger.Ledger, log hclog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{db: db, ledger: l, log: log.Named("registry"), metrics: m}
}

// WithTx returns a copy of the registry, and its ledger, bound to tx.
func (r *Registry) WithTx(tx *gorm.DB) *Registry {
	c := *r
	c.db = tx
	c.ledger = r.ledger.WithTx(tx)
	return &c
}

// CreateEstablishment consumes tokenCode and creates an establishment owned
// by principal. Both happen in one transaction: if the establishment cannot
// be created the token stays unused.
func (r *Registry) CreateEstablishment(ctx context.Context, principal models.Principal, tokenCode string, in EstablishmentInput) (*models.Establishment, error) {
	if principal.UserID == 0 {
		return nil, apperr.Unauthorized("authentication required")
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	var est *models.Establishment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped := r.WithTx(tx)
		if err := scoped.ledger.Redeem(ctx, tokenCode, principal); err != nil {
			return err
		}
		var err error
		est, err = scoped.insert(ctx, principal, in)
		return err
	})
	if err != nil {
		return nil, r.fault("create establishment", err)
	}

	r.metrics.CatalogWrite("establishment", "create")
	r.log.Info("establishment created", "establishment_id", est.ID, "slug", est.Slug, "owner_id", principal.UserID)
	return est, nil
}

func (r *Registry) insert(ctx context.Context, principal models.Principal, in EstablishmentInput) (*models.Establishment, error) {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Establishment{}).Where("name = ?", in.Name).Count(&count).Error; err != nil {
		return nil, apperr.Storage("check establishment name", err)
	}
	if count > 0 {
		return nil, apperr.Conflict("an establishment named %q already exists", in.Name)
	}

	var s string
	if in.Slug != "" {
		var err error
		if s, err = customSlug(in.Slug); err != nil {
			return nil, err
		}
		if err := db.Model(&models.Establishment{}).Where("slug = ?", s).Count(&count).Error; err != nil {
			return nil, apperr.Storage("check establishment slug", err)
		}
		if count > 0 {
			return nil, apperr.Conflict("slug %q is already taken", s)
		}
	} else {
		var err error
		s, err = uniqueSlug(ctx, r.db, &models.Establishment{}, baseSlug(in.Name))
		if err != nil {
			return nil, apperr.Storage("derive establishment slug", err)
		}
	}

	owner := principal.UserID
	est := &models.Establishment{
		Name:              in.Name,
		Slug:              s,
		OwnerID:           &owner,
		EstablishmentType: in.EstablishmentType,
		CuisineType:       in.CuisineType,
		Description:       in.Description,
		Logo:              in.Logo,
		Building:          in.Building,
		Latitude:          in.Latitude,
		Longitude:         in.Longitude,
		OpeningHours:      in.OpeningHours,
		Phone:             in.Phone,
		Instagram:         in.Instagram,
		Website:           in.Website,
		PriceLevel:        in.PriceLevel,
	}
	if err := db.Create(est).Error; err != nil {
		return nil, apperr.FromDB(err, "establishment", "establishment name or slug already exists")
	}
	return est, nil
}

// AuthorizeMutation returns the establishment iff principal owns it. A
// missing establishment and someone else's establishment look the same.
func (r *Registry) AuthorizeMutation(ctx context.Context, principal models.Principal, establishmentID uint) (*models.Establishment, error) {
	if principal.UserID == 0 || establishmentID == 0 {
		return nil, apperr.NotFound("establishment")
	}
	var est models.Establishment
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", establishmentID, principal.UserID).
		First(&est).Error
	if err != nil {
		return nil, r.fault("authorize establishment", apperr.FromDB(err, "establishment", ""))
	}
	if !principal.IsOwnerOf(&est) {
		return nil, apperr.NotFound("establishment")
	}
	return &est, nil
}

// EditEstablishment applies u to an establishment owned by principal.
func (r *Registry) EditEstablishment(ctx context.Context, principal models.Principal, id uint, u EstablishmentUpdate) (*models.Establishment, error) {
	set, err := u.changes()
	if err != nil {
		return nil, err
	}

	var est *models.Establishment
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped := r.WithTx(tx)
		e, err := scoped.AuthorizeMutation(ctx, principal, id)
		if err != nil {
			return err
		}
		if name, ok := set["name"].(string); ok && name != e.Name {
			var count int64
			if err := tx.Model(&models.Establishment{}).Where("name = ? AND id <> ?", name, e.ID).Count(&count).Error; err != nil {
				return apperr.Storage("check establishment name", err)
			}
			if count > 0 {
				return apperr.Conflict("an establishment named %q already exists", name)
			}
		}
		if len(set) > 0 {
			if err := tx.Model(e).Updates(set).Error; err != nil {
				return apperr.FromDB(err, "establishment", "establishment name already exists")
			}
		}
		if err := tx.First(e, e.ID).Error; err != nil {
			return apperr.FromDB(err, "establishment", "")
		}
		est = e
		return nil
	})
	if err != nil {
		return nil, r.fault("edit establishment", err)
	}
	r.metrics.CatalogWrite("establishment", "update")
	return est, nil
}

// DeleteEstablishment removes an owned establishment together with its dishes.
func (r *Registry) DeleteEstablishment(ctx context.Context, principal models.Principal, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := r.WithTx(tx).AuthorizeMutation(ctx, principal, id)
		if err != nil {
			return err
		}
		if err := tx.Where("establishment_id = ?", e.ID).Delete(&models.Dish{}).Error; err != nil {
			return apperr.Storage("delete dishes", err)
		}
		if err := tx.Delete(e).Error; err != nil {
			return apperr.Storage("delete establishment", err)
		}
		return nil
	})
	if err != nil {
		return r.fault("delete establishment", err)
	}
	r.metrics.CatalogWrite("establishment", "delete")
	r.log.Info("establishment deleted", "establishment_id", id, "owner_id", principal.UserID)
	return nil
}

// ListOwned returns principal's establishments ordered by name.
func (r *Registry) ListOwned(ctx context.Context, principal models.Principal) ([]models.Establishment, error) {
	var list []models.Establishment
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", principal.UserID).
		Order("name asc").
		Find(&list).Error
	if err != nil {
		return nil, r.fault("list owned establishments", apperr.Storage("list establishments", err))
	}
	return list, nil
}

// AdoptOrphans assigns every ownerless legacy establishment to adminID.
func (r *Registry) AdoptOrphans(ctx context.Context, adminID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Establishment{}).
		Where("owner_id IS NULL").
		Update("owner_id", adminID)
	if res.Error != nil {
		return 0, r.fault("adopt orphans", apperr.Storage("adopt orphans", res.Error))
	}
	if res.RowsAffected > 0 {
		r.log.Info("assigned ownerless establishments", "count", res.RowsAffected, "owner_id", adminID)
	}
	return res.RowsAffected, nil
}

// fault logs storage failures; expected outcomes pass through quietly.
func (r *Registry) fault(op string, err error) error {
	return logFault(r.log, op, err)
}

func logFault(log hclog.Logger, op string, err error) error {
	if apperr.KindOf(err) == apperr.KindStorage {
		log.Error(op+" failed", "error", err)
		var e *apperr.Error
		if !errors.As(err, &e) {
			return apperr.Storage(op, err)
		}
	}
	return err
}
