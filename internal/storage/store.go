package storage

import (
	"context"

	"metaelm/internal/model"
)

// Store persists trained networks, run metadata and loss traces.
type Store interface {
	Init(ctx context.Context) error
	SaveNetwork(ctx context.Context, network model.NetworkRecord) error
	GetNetwork(ctx context.Context, id string) (model.NetworkRecord, bool, error)
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveLossHistory(ctx context.Context, runID string, history []float64) error
	GetLossHistory(ctx context.Context, runID string) ([]float64, bool, error)
}
