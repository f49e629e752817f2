package service

import (
	"context"
	"strings"

	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/pkg/logger"
)

// defaultTechnologies is the catalog LoadTechnologies installs when given none.
var defaultTechnologies = []model.Technology{ //nolint:gochecknoglobals // fixed seed data
	{ID: "go", Name: "Go", Quadrant: "languages-and-frameworks"},
	{ID: "kotlin", Name: "Kotlin", Quadrant: "languages-and-frameworks"},
	{ID: "kubernetes", Name: "Kubernetes", Quadrant: "platforms"},
	{ID: "postgresql", Name: "PostgreSQL", Quadrant: "platforms"},
	{ID: "terraform", Name: "Terraform", Quadrant: "tools"},
	{ID: "trunk-based-development", Name: "Trunk-based development", Quadrant: "techniques"},
}

// DefaultTechnologies returns a copy of the built-in catalog.
func DefaultTechnologies() []model.Technology {
	out := make([]model.Technology, len(defaultTechnologies))
	for i, t := range defaultTechnologies {
		out[i] = t.Clone()
	}
	return out
}

// GetTechnologies lists the catalog in insertion order. Cancelled entries
// are listed only when includeCancelled is set.
func (s *Service) GetTechnologies(ctx context.Context, includeCancelled bool) ([]model.Technology, error) {
	return call(ctx, s, "get_technologies", func(ctx context.Context) ([]model.Technology, error) {
		return s.store.Technologies(ctx, repository.TechnologyQuery{IncludeCancelled: includeCancelled})
	})
}

// GetTechnology returns one catalog entry, cancelled or not.
func (s *Service) GetTechnology(ctx context.Context, id string) (model.Technology, error) {
	return call(ctx, s, "get_technology", func(ctx context.Context) (model.Technology, error) {
		return s.store.Technology(ctx, id)
	})
}

// AddTechnology adds an entry to the catalog. Names are unique among live
// entries; an empty id is generated.
func (s *Service) AddTechnology(ctx context.Context, t model.Technology) (model.Technology, error) {
	const op = "add_catalog_technology"
	return call(ctx, s, op, func(ctx context.Context) (model.Technology, error) {
		entry, err := catalogEntry(op, t)
		if err != nil {
			return model.Technology{}, err
		}
		if entry.ID == "" {
			entry.ID = s.newID()
		}
		entry.Cancelled = false
		saved, err := s.store.InsertTechnology(ctx, entry)
		if err != nil {
			return model.Technology{}, err
		}
		s.logger.Info(ctx, "technology added to catalog",
			logger.String("technologyID", saved.ID), logger.String("name", saved.Name))
		return saved, nil
	})
}

// UpdateTechnology replaces the descriptive fields of an entry. The id and
// the cancelled marker are kept.
func (s *Service) UpdateTechnology(ctx context.Context, id string, t model.Technology) (model.Technology, error) {
	const op = "update_technology"
	return call(ctx, s, op, func(ctx context.Context) (model.Technology, error) {
		entry, err := catalogEntry(op, t)
		if err != nil {
			return model.Technology{}, err
		}
		return s.store.MutateTechnology(ctx, id, func(cur *model.Technology) error {
			cur.Name, cur.Quadrant, cur.Description, cur.IsNew = entry.Name, entry.Quadrant, entry.Description, entry.IsNew
			return nil
		})
	})
}

// CancelTechnology hides an entry from listings and future snapshots.
// Events that already snapshotted it keep it.
func (s *Service) CancelTechnology(ctx context.Context, id string) (model.Technology, error) {
	return call(ctx, s, "cancel_technology", func(ctx context.Context) (model.Technology, error) {
		return s.setTechnologyCancelled(ctx, id, true)
	})
}

// RestoreTechnology reverses CancelTechnology. It fails with
// ErrTechnologyAlreadyPresent when a live entry took the name meanwhile.
func (s *Service) RestoreTechnology(ctx context.Context, id string) (model.Technology, error) {
	return call(ctx, s, "restore_technology", func(ctx context.Context) (model.Technology, error) {
		return s.setTechnologyCancelled(ctx, id, false)
	})
}

func (s *Service) setTechnologyCancelled(ctx context.Context, id string, cancelled bool) (model.Technology, error) {
	return s.store.MutateTechnology(ctx, id, func(t *model.Technology) error {
		t.Cancelled = cancelled
		return nil
	})
}

// DeleteTechnology removes an entry for good.
func (s *Service) DeleteTechnology(ctx context.Context, id string) error {
	return s.run(ctx, "delete_technology", func(ctx context.Context) error {
		if err := s.store.DeleteTechnology(ctx, id); err != nil {
			return err
		}
		s.logger.Info(ctx, "technology deleted from catalog", logger.String("technologyID", id))
		return nil
	})
}

// LoadTechnologies replaces the whole catalog. A nil list installs the
// built-in catalog; an empty one clears it.
func (s *Service) LoadTechnologies(ctx context.Context, techs []model.Technology) (int, error) {
	const op = "load_technologies"
	return call(ctx, s, op, func(ctx context.Context) (int, error) {
		if techs == nil {
			techs = DefaultTechnologies()
		}
		entries := make([]model.Technology, len(techs))
		for i, t := range techs {
			entry, err := catalogEntry(op, t)
			if err != nil {
				return 0, err
			}
			if entry.ID == "" {
				entry.ID = s.newID()
			}
			entries[i] = entry
		}
		n, err := s.store.ReplaceTechnologies(ctx, entries)
		if err != nil {
			return 0, err
		}
		s.logger.Info(ctx, "technology catalog loaded", logger.Int("count", n))
		return n, nil
	})
}

// SeedTechnologies installs the built-in catalog when the catalog holds
// nothing, cancelled entries included. It reports whether it did.
func (s *Service) SeedTechnologies(ctx context.Context) (bool, error) {
	return call(ctx, s, "seed_technologies", func(ctx context.Context) (bool, error) {
		cur, err := s.store.Technologies(ctx, repository.TechnologyQuery{IncludeCancelled: true})
		if err != nil || len(cur) > 0 {
			return false, err
		}
		if _, err := s.store.ReplaceTechnologies(ctx, DefaultTechnologies()); err != nil {
			return false, err
		}
		return true, nil
	})
}

// catalogEntry keeps the catalog fields of t. Per-event state such as
// comments, results and recommendations never enters the catalog.
func catalogEntry(op string, t model.Technology) (model.Technology, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return model.Technology{}, model.WrapKind(op, model.ErrInvalidInput, errEmptyTechName)
	}
	return model.Technology{
		ID:          strings.TrimSpace(t.ID),
		Name:        name,
		Quadrant:    strings.TrimSpace(t.Quadrant),
		Description: t.Description,
		IsNew:       t.IsNew,
		Cancelled:   t.Cancelled,
	}, nil
}
