package reference

import (
	"context"
	"log/slog"

	"cm-admin/internal/domain"
)

// Service provides CRUD over the registered reference tables.
type Service struct {
	repo   domain.ReferenceRepository
	tables map[string]domain.ReferenceTable
	order  []string
	logger *slog.Logger
}

// NewService creates a Service over tables, keyed by ReferenceTable.Key.
func NewService(repo domain.ReferenceRepository, tables []domain.ReferenceTable, logger *slog.Logger) *Service {
	s := &Service{
		repo:   repo,
		tables: make(map[string]domain.ReferenceTable, len(tables)),
		logger: logger.With("component", "reference"),
	}
	for _, t := range tables {
		s.tables[t.Key] = t
		s.order = append(s.order, t.Key)
	}
	return s
}

// Tables lists the registered tables in registry order.
func (s *Service) Tables() []domain.ReferenceTable {
	out := make([]domain.ReferenceTable, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.tables[k])
	}
	return out
}

// Table returns the registered table with key.
func (s *Service) Table(key string) (domain.ReferenceTable, error) {
	t, ok := s.tables[key]
	if !ok {
		return domain.ReferenceTable{}, domain.ErrNotFound("table %q not found", key)
	}
	return t, nil
}

// List returns the rows of a registered table.
func (s *Service) List(ctx context.Context, key string, page domain.PageRequest) (*domain.ResultSet, error) {
	t, err := s.Table(key)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, t, page)
}

// Insert adds a row to an editable table.
func (s *Service) Insert(ctx context.Context, principal, key string, values map[string]any) (*domain.ResultSet, error) {
	t, err := s.editable(key)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, domain.ErrValidation("no values given")
	}
	res, err := s.repo.Insert(ctx, t, values)
	if err != nil {
		return nil, err
	}
	s.logger.Info("row inserted", "table", key, "principal", principal)
	return res, nil
}

// Update overwrites columns of row id in an editable table.
func (s *Service) Update(ctx context.Context, principal, key string, id int64, values map[string]any) (*domain.ResultSet, error) {
	t, err := s.editable(key)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, domain.ErrValidation("no values given")
	}
	res, err := s.repo.Update(ctx, t, id, values)
	if err != nil {
		return nil, err
	}
	s.logger.Info("row updated", "table", key, "id", id, "principal", principal)
	return res, nil
}

// Delete removes row id from an editable table.
func (s *Service) Delete(ctx context.Context, principal, key string, id int64) (*domain.ResultSet, error) {
	t, err := s.editable(key)
	if err != nil {
		return nil, err
	}
	res, err := s.repo.Delete(ctx, t, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("row deleted", "table", key, "id", id, "principal", principal)
	return res, nil
}

func (s *Service) editable(key string) (domain.ReferenceTable, error) {
	t, err := s.Table(key)
	if err != nil {
		return t, err
	}
	if !t.Editable {
		return t, domain.ErrValidation("table %q is read-only", key)
	}
	return t, nil
}
