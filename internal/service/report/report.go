// Package report serves the read-only reports: NB-IoT, CAT-M, master list,
// BAP, price zone lists and screen configuration.
package report

import (
	"context"
	"log/slog"

	"cm-admin/internal/domain"
)

// Service validates report parameters and runs the report queries.
type Service struct {
	repo   domain.ReportRepository
	logger *slog.Logger
}

// NewService creates a report Service.
func NewService(repo domain.ReportRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With("component", "report")}
}

// NbIot returns the NB-IoT coverage report for the selected versions.
func (s *Service) NbIot(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error) {
	return s.repo.NbIot(ctx, v)
}

// CatM returns the CAT-M coverage report for the selected versions.
func (s *Service) CatM(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error) {
	return s.repo.CatM(ctx, v)
}

// MasterList computes the live master list. An incomplete selection is
// passed through with NULLs; the database functions decide what that means.
func (s *Service) MasterList(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error) {
	if !v.Complete() {
		s.logger.Debug("master list requested with missing source versions")
	}
	return s.repo.MasterList(ctx, v)
}

// Bap returns the BAP carrier list of a TCP profile.
func (s *Service) Bap(ctx context.Context, tcp int) (*domain.ResultSet, error) {
	if err := checkTCP(tcp); err != nil {
		return nil, err
	}
	return s.repo.Bap(ctx, tcp)
}

// PriceZoneList returns the price zone view of a TCP profile.
func (s *Service) PriceZoneList(ctx context.Context, tcp int) (*domain.ResultSet, error) {
	if err := checkTCP(tcp); err != nil {
		return nil, err
	}
	return s.repo.PriceZoneList(ctx, tcp)
}

// Eprofile returns the price zone view of an eProfile.
func (s *Service) Eprofile(ctx context.Context, profile int) (*domain.ResultSet, error) {
	if !domain.ValidTCP(profile) {
		return nil, domain.ErrValidation("Invalid profile number")
	}
	return s.repo.Eprofile(ctx, profile)
}

// TCPList returns the configured TCP profiles.
func (s *Service) TCPList(ctx context.Context) (*domain.ResultSet, error) {
	return s.repo.TCPList(ctx)
}

// PzCutOffPoints returns the price zone cut-off points of a TCP profile.
func (s *Service) PzCutOffPoints(ctx context.Context, tcp int) (*domain.ResultSet, error) {
	if err := checkTCP(tcp); err != nil {
		return nil, err
	}
	return s.repo.PzCutOffPoints(ctx, tcp)
}

// ScreenConfig returns the UI screen configuration.
func (s *Service) ScreenConfig(ctx context.Context) (*domain.ResultSet, error) {
	return s.repo.ScreenConfig(ctx)
}

func checkTCP(n int) error {
	if !domain.ValidTCP(n) {
		return domain.ErrValidation("Invalid TCP number")
	}
	return nil
}
