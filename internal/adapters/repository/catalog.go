package repository

import (
	"context"
	"time"

	"github.com/okian/techradar/internal/domain/dedupe"
	"github.com/okian/techradar/internal/domain/model"
)

// InsertTechnology implements CatalogStore.
func (s *MemoryStore) InsertTechnology(ctx context.Context, t model.Technology) (model.Technology, error) {
	const op = "repository.insert_technology"
	defer observe("insert_technology", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Technology{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.techs[t.ID]; exists {
		return model.Technology{}, model.WrapKind(op, model.ErrInvalidInput, errDuplicateKey(t.ID))
	}
	if !t.Cancelled && s.techNames.SeenAndRecord(ctx, t.Name) {
		return model.Technology{}, model.WrapKind(op, model.ErrTechnologyAlreadyPresent, errDuplicateKey(t.Name))
	}
	t = t.Clone()
	s.techs[t.ID] = t
	s.techOrder = append(s.techOrder, t.ID)
	return t.Clone(), nil
}

// Technology implements CatalogStore.
func (s *MemoryStore) Technology(ctx context.Context, id string) (model.Technology, error) {
	defer observe("technology", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Technology{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.techs[id]
	if !ok {
		return model.Technology{}, model.NewKind("repository.technology", model.ErrTechnologyNotPresent)
	}
	return t.Clone(), nil
}

// Technologies implements CatalogStore.
func (s *MemoryStore) Technologies(ctx context.Context, q TechnologyQuery) ([]model.Technology, error) {
	defer observe("technologies", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Technology, 0, len(s.techOrder))
	for _, id := range s.techOrder {
		t := s.techs[id]
		if t.Cancelled && !q.IncludeCancelled {
			continue
		}
		out = append(out, t.Clone())
	}
	return out, nil
}

// MutateTechnology implements CatalogStore.
func (s *MemoryStore) MutateTechnology(ctx context.Context, id string, fn func(t *model.Technology) error) (model.Technology, error) {
	const op = "repository.mutate_technology"
	defer observe("mutate_technology", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Technology{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.techs[id]
	if !ok {
		return model.Technology{}, model.NewKind(op, model.ErrTechnologyNotPresent)
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return model.Technology{}, err
	}
	next.ID = cur.ID
	if err := moveClaim(ctx, s.techNames, cur.Name, !cur.Cancelled, next.Name, !next.Cancelled); err != nil {
		return model.Technology{}, model.WrapKind(op, model.ErrTechnologyAlreadyPresent, err)
	}
	s.techs[id] = next
	return next.Clone(), nil
}

// DeleteTechnology implements CatalogStore.
func (s *MemoryStore) DeleteTechnology(ctx context.Context, id string) error {
	defer observe("delete_technology", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.techs[id]
	if !ok {
		return model.NewKind("repository.delete_technology", model.ErrTechnologyNotPresent)
	}
	if !t.Cancelled {
		s.techNames.Unrecord(ctx, t.Name)
	}
	delete(s.techs, id)
	for i, tid := range s.techOrder {
		if tid == id {
			s.techOrder = append(s.techOrder[:i], s.techOrder[i+1:]...)
			break
		}
	}
	return nil
}

// ReplaceTechnologies implements CatalogStore.
func (s *MemoryStore) ReplaceTechnologies(ctx context.Context, techs []model.Technology) (int, error) {
	const op = "repository.replace_technologies"
	defer observe("replace_technologies", time.Now())
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	names := dedupe.NewInMemoryDeduper(dedupe.WithCaseFolding())
	byID := make(map[string]model.Technology, len(techs))
	order := make([]string, 0, len(techs))
	for _, t := range techs {
		if _, exists := byID[t.ID]; exists {
			return 0, model.WrapKind(op, model.ErrInvalidInput, errDuplicateKey(t.ID))
		}
		if !t.Cancelled && names.SeenAndRecord(ctx, t.Name) {
			return 0, model.WrapKind(op, model.ErrTechnologyAlreadyPresent, errDuplicateKey(t.Name))
		}
		byID[t.ID] = t.Clone()
		order = append(order, t.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.techs, s.techOrder, s.techNames = byID, order, names
	return len(order), nil
}
