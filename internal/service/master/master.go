// Package master saves and reads frozen master-list versions.
package master

import (
	"context"
	"log/slog"
	"strings"

	"cm-admin/internal/domain"
)

// Service manages saved master versions.
type Service struct {
	repo   domain.MasterRepository
	tx     domain.TxRunner
	logger *slog.Logger
}

// NewService creates a master Service.
func NewService(repo domain.MasterRepository, tx domain.TxRunner, logger *slog.Logger) *Service {
	return &Service{repo: repo, tx: tx, logger: logger.With("component", "master")}
}

// SavedVersions lists saved versions as {id, version_name}.
func (s *Service) SavedVersions(ctx context.Context) (*domain.ResultSet, error) {
	return s.repo.List(ctx)
}

// SavedVersion returns a saved version's source selection and its frozen
// rows. A version with no rows is logged but not an error.
func (s *Service) SavedVersion(ctx context.Context, id int64) (*domain.SavedMasterVersion, *domain.ResultSet, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.repo.Rows(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if rows.Len() == 0 {
		s.logger.Warn("saved master version has no rows", "master_config_id", id)
	}
	return m, rows, nil
}

// Save freezes the master list computed from v under a new version named
// name. A selection that is already saved fails with a
// DuplicateMasterVersionError. The version and its rows commit together.
func (s *Service) Save(ctx context.Context, principal, name string, v domain.SourceVersions) (*domain.SavedMasterVersion, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrValidation("versionName is required")
	}

	var saved *domain.SavedMasterVersion
	var rows int64
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		existing, found, err := s.repo.FindBySources(ctx, v)
		if err != nil {
			return err
		}
		if found {
			return &domain.DuplicateMasterVersionError{
				ConflictError: domain.ConflictError{
					Message: "This version already exists in the system. Please use different versions.",
				},
				ExistingID: existing,
			}
		}
		if saved, err = s.repo.Create(ctx, name, v); err != nil {
			return err
		}
		rows, err = s.repo.Materialize(ctx, saved.ID, v)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("master version saved",
		"master_config_id", saved.ID, "name", name, "rows", rows, "principal", principal)
	return saved, nil
}
