package service

import (
	"context"

	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/domain/model"
)

// Catalog supplies the technologies an event snapshots when first opened.
type Catalog interface {
	Technologies(ctx context.Context, initiative string) ([]model.Technology, error)
}

// StaticCatalog serves the same list to every initiative.
type StaticCatalog []model.Technology

// Technologies implements Catalog.
func (c StaticCatalog) Technologies(_ context.Context, _ string) ([]model.Technology, error) {
	out := make([]model.Technology, len(c))
	for i, t := range c {
		out[i] = t.Clone()
	}
	return out, nil
}

// StoreCatalog serves the live entries of a catalog store. It is the
// default once the service has a store.
type StoreCatalog struct {
	Store repository.CatalogStore
}

// Technologies implements Catalog. Every initiative shares the catalog.
func (c StoreCatalog) Technologies(ctx context.Context, _ string) ([]model.Technology, error) {
	return c.Store.Technologies(ctx, repository.TechnologyQuery{})
}
