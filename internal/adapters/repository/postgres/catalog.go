package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/pkg/logger"
)

// InsertTechnology implements repository.CatalogStore.
func (s *Store) InsertTechnology(ctx context.Context, t model.Technology) (model.Technology, error) {
	const op = "postgres.insert_technology"
	defer observe("insert_technology", time.Now())
	row := technologyModelFromEntity(t)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if kind := techConflict(err); kind != nil {
			return model.Technology{}, model.WrapKind(op, kind, err)
		}
		return model.Technology{}, s.logError("technology_insert_failed", err, logger.String("technology_id", t.ID))
	}
	return row.toEntity(), nil
}

// Technology implements repository.CatalogStore.
func (s *Store) Technology(ctx context.Context, id string) (model.Technology, error) {
	defer observe("technology", time.Now())
	var row technologyModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Technology{}, model.NewKind("postgres.technology", model.ErrTechnologyNotPresent)
		}
		return model.Technology{}, s.logError("technology_get_failed", err, logger.String("technology_id", id))
	}
	return row.toEntity(), nil
}

// Technologies implements repository.CatalogStore.
func (s *Store) Technologies(ctx context.Context, q repository.TechnologyQuery) ([]model.Technology, error) {
	defer observe("technologies", time.Now())
	tx := s.db.WithContext(ctx).Model(&technologyModel{})
	if !q.IncludeCancelled {
		tx = tx.Where("cancelled = ?", false)
	}
	var rows []technologyModel
	if err := tx.Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, s.logError("technologies_list_failed", err)
	}
	out := make([]model.Technology, len(rows))
	for i, row := range rows {
		out[i] = row.toEntity()
	}
	return out, nil
}

// MutateTechnology implements repository.CatalogStore. The row is locked
// for the duration of fn.
func (s *Store) MutateTechnology(ctx context.Context, id string, fn func(t *model.Technology) error) (model.Technology, error) {
	const op = "postgres.mutate_technology"
	defer observe("mutate_technology", time.Now())
	var out model.Technology
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row technologyModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.NewKind(op, model.ErrTechnologyNotPresent)
		}
		if err != nil {
			return err
		}
		t := row.toEntity()
		if err := fn(&t); err != nil {
			return err
		}
		t.ID = row.ID
		next := technologyModelFromEntity(t)
		if err := tx.Model(&technologyModel{}).Where("seq = ?", row.Seq).Updates(map[string]any{
			"name":        next.Name,
			"quadrant":    next.Quadrant,
			"description": next.Description,
			"is_new":      next.IsNew,
			"cancelled":   next.Cancelled,
			"updated_at":  next.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		if model.Kind(err) != nil {
			return model.Technology{}, err
		}
		if kind := techConflict(err); kind != nil {
			return model.Technology{}, model.WrapKind(op, kind, err)
		}
		return model.Technology{}, s.logError("technology_mutate_failed", err, logger.String("technology_id", id))
	}
	return out, nil
}

// DeleteTechnology implements repository.CatalogStore.
func (s *Store) DeleteTechnology(ctx context.Context, id string) error {
	defer observe("delete_technology", time.Now())
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&technologyModel{})
	if res.Error != nil {
		return s.logError("technology_delete_failed", res.Error, logger.String("technology_id", id))
	}
	if res.RowsAffected == 0 {
		return model.NewKind("postgres.delete_technology", model.ErrTechnologyNotPresent)
	}
	return nil
}

// ReplaceTechnologies implements repository.CatalogStore in one transaction.
func (s *Store) ReplaceTechnologies(ctx context.Context, techs []model.Technology) (int, error) {
	const op = "postgres.replace_technologies"
	defer observe("replace_technologies", time.Now())
	rows := make([]technologyModel, len(techs))
	for i, t := range techs {
		rows[i] = technologyModelFromEntity(t)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&technologyModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		if kind := techConflict(err); kind != nil {
			return 0, model.WrapKind(op, kind, err)
		}
		return 0, s.logError("technologies_replace_failed", err, logger.Int("count", len(techs)))
	}
	return len(rows), nil
}

// techConflict maps a catalog unique violation to its error kind.
func techConflict(err error) error {
	c, ok := uniqueConstraint(err)
	switch {
	case !ok:
		return nil
	case c == liveTechIndex:
		return model.ErrTechnologyAlreadyPresent
	default:
		return model.ErrInvalidInput
	}
}
