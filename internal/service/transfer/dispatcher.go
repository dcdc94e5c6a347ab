package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cm-admin/internal/domain"
)

// Dispatcher resolves a dataset's transfer routine from a registry fixed at
// construction and invokes it.
type Dispatcher struct {
	routines map[string]*Routine
	datasets domain.DatasetRepository
	repo     domain.TransferRepository
	logger   *slog.Logger
}

// NewDispatcher builds the routine registry from descs.
func NewDispatcher(
	descs []Descriptor,
	datasets domain.DatasetRepository,
	versions domain.VersionRepository,
	repo domain.TransferRepository,
	tx domain.TxRunner,
	logger *slog.Logger,
) *Dispatcher {
	routines := make(map[string]*Routine, len(descs))
	for _, d := range descs {
		routines[d.Name] = NewRoutine(d, versions, repo, tx)
	}
	return &Dispatcher{
		routines: routines,
		datasets: datasets,
		repo:     repo,
		logger:   logger.With("component", "transfer"),
	}
}

// Routine returns the registered routine called name.
func (d *Dispatcher) Routine(name string) (*Routine, bool) {
	r, ok := d.routines[name]
	return r, ok
}

// Dispatch appends the staged rows of a dataset under the version labelled
// label. Unknown datasets and routines fail with a ConfigurationError before
// anything is written.
func (d *Dispatcher) Dispatch(ctx context.Context, datasetID int64, staging domain.TableRef, label string) (*domain.TransferResult, error) {
	ds, err := d.datasets.Get(ctx, datasetID)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrConfiguration("unknown dataset %d", datasetID)
		}
		return nil, err
	}
	if ds.TransferRoutine == "" {
		return nil, domain.ErrConfiguration("dataset %s has no transfer routine", ds.Name)
	}
	r, ok := d.routines[ds.TransferRoutine]
	if !ok {
		return nil, domain.ErrConfiguration("unknown transfer routine %q for dataset %s", ds.TransferRoutine, ds.Name)
	}

	res, err := r.run(ctx, staging, label, datasetID)
	if err != nil {
		return nil, err
	}
	d.logger.Info("transfer complete",
		"dataset", ds.Name, "routine", r.Name(), "version_id", res.VersionID, "rows", res.Rows)
	return res, nil
}

// Problems compares the dataset configuration with the registry. Fatal
// problems are unregistered routines and destination mismatches; warnings
// are descriptor columns missing from the catalog.
func (d *Dispatcher) Problems(ctx context.Context) (fatal, warnings []string, err error) {
	datasets, err := d.datasets.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list datasets: %w", err)
	}

	for _, ds := range datasets {
		r, ok := d.routines[ds.TransferRoutine]
		if !ok {
			fatal = append(fatal, fmt.Sprintf("dataset %s: routine %q is not registered", ds.Name, ds.TransferRoutine))
			continue
		}
		if r.Destination() != ds.PermanentTable {
			fatal = append(fatal, fmt.Sprintf("dataset %s: routine %s writes %s, dataset expects %s",
				ds.Name, r.Name(), r.Destination(), ds.PermanentTable))
			continue
		}
		for _, table := range []domain.TableRef{ds.StagingTable, ds.PermanentTable} {
			missing, err := d.missingColumns(ctx, table, r.desc.Columns)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("dataset %s: %v", ds.Name, err))
				continue
			}
			for _, c := range missing {
				warnings = append(warnings, fmt.Sprintf("dataset %s: column %s missing from %s", ds.Name, c, table))
			}
		}
	}
	return fatal, warnings, nil
}

// CheckConsistency logs warnings and fails with a ConfigurationError when
// any dataset cannot be dispatched.
func (d *Dispatcher) CheckConsistency(ctx context.Context) error {
	fatal, warnings, err := d.Problems(ctx)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		d.logger.Warn("transfer routine drift", "detail", w)
	}
	if len(fatal) > 0 {
		return domain.ErrConfiguration("transfer configuration drift: %s", strings.Join(fatal, "; "))
	}
	return nil
}

func (d *Dispatcher) missingColumns(ctx context.Context, table domain.TableRef, cols []domain.AppendColumn) ([]string, error) {
	existing, err := d.repo.TableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c] = true
	}
	var missing []string
	for _, c := range cols {
		if !have[c.Name] {
			missing = append(missing, c.Name)
		}
	}
	return missing, nil
}
