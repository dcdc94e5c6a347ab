package transfer

import (
	"context"
	"errors"

	"cm-admin/internal/domain"
)

// Routine is the generic append routine parameterized by one descriptor.
type Routine struct {
	desc     Descriptor
	versions domain.VersionRepository
	repo     domain.TransferRepository
	tx       domain.TxRunner
}

// NewRoutine creates a Routine. desc must come from ParseDescriptors.
func NewRoutine(desc Descriptor, versions domain.VersionRepository, repo domain.TransferRepository, tx domain.TxRunner) *Routine {
	return &Routine{desc: desc, versions: versions, repo: repo, tx: tx}
}

// Name returns the routine name as stored in the dataset configuration.
func (r *Routine) Name() string { return r.desc.Name }

// Destination returns the permanent table the routine appends to.
func (r *Routine) Destination() domain.TableRef { return r.desc.destination }

// Append copies every row of staging into the destination tagged with the
// newest version labelled label. It returns the number of rows appended.
// Nothing is written unless every row is.
func (r *Routine) Append(ctx context.Context, staging domain.TableRef, label string, datasetID int64) (int64, error) {
	res, err := r.run(ctx, staging, label, datasetID)
	if err != nil {
		return 0, err
	}
	return res.Rows, nil
}

func (r *Routine) run(ctx context.Context, staging domain.TableRef, label string, datasetID int64) (*domain.TransferResult, error) {
	res := &domain.TransferResult{Routine: r.desc.Name}
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		id, err := r.versions.ResolveID(ctx, label, datasetID)
		if err != nil {
			return err
		}
		res.VersionID = id

		plan := domain.AppendPlan{
			Staging:     staging,
			Destination: r.desc.destination,
			Columns:     r.desc.Columns,
			VersionID:   id,
		}
		if r.desc.Strategy == domain.StrategyRow {
			res.Rows, err = r.repo.AppendRowByRow(ctx, plan)
		} else {
			res.Rows, err = r.repo.AppendSelect(ctx, plan)
		}
		return err
	})
	if err != nil {
		var vnf *domain.VersionNotFoundError
		if errors.As(err, &vnf) {
			return nil, err
		}
		return nil, domain.ErrPersistence(r.desc.Name, err)
	}
	return res, nil
}
