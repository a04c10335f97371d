package metaelm

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"metaelm/internal/dataset"
	"metaelm/internal/model"
	"metaelm/internal/optim"
	"metaelm/internal/stats"
	"metaelm/internal/storage"
	"metaelm/internal/train"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "metaelm.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
}

// Client is the embedding surface over training, persistence and
// artifact export.
type Client struct {
	store storage.Store

	artifactsDir string
	exportsDir   string

	initialized bool
}

type TrainRequest struct {
	// Either DatasetPath (CSV, targets in the trailing columns) or X/Y.
	DatasetPath   string
	TargetColumns int
	X             *mat.Dense
	Y             *mat.Dense

	Task       string
	Objective  string
	LayerSizes []int
	Activation string

	Optimizer string
	Epochs    int
	PopSize   int
	Mode      string
	Workers   int
	Seed      int64

	LowerBounds []float64
	UpperBounds []float64
	LogProgress bool
}

type TrainSummary struct {
	RunID        string
	ArtifactsDir string
	LossHistory  []float64
	BestFitness  float64
	Metrics      map[string]float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Task         string
	Objective    string
	Optimizer    string
	Epochs       int
	PopSize      int
	Seed         int64
	BestFitness  float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type LossHistoryRequest struct {
	RunID  string
	Latest bool
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Train runs one metaheuristic training pass end to end: load data,
// search, score, persist, and lay out the artifacts directory.
func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	if err := c.Init(ctx); err != nil {
		return TrainSummary{}, err
	}

	if req.Task == "" {
		req.Task = string(train.TaskRegression)
	}
	if len(req.LayerSizes) == 0 {
		req.LayerSizes = []int{10}
	}
	if req.Activation == "" {
		req.Activation = "sigmoid"
	}
	if req.Objective == "" {
		if req.Task == string(train.TaskClassification) {
			req.Objective = "AS"
		} else {
			req.Objective = "MSE"
		}
	}
	if req.Optimizer == "" {
		req.Optimizer = "BaseGA"
	}
	if req.Epochs <= 0 {
		req.Epochs = 100
	}
	if req.PopSize <= 1 {
		req.PopSize = 50
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}

	X, y, err := resolveData(req)
	if err != nil {
		return TrainSummary{}, err
	}

	trainer, err := train.NewTrainer(train.TrainerConfig{
		LayerSizes: req.LayerSizes,
		Activation: req.Activation,
		Task:       train.Task(req.Task),
		Objective:  req.Objective,
		Optimizer: train.OptimizerSpec{
			Name: req.Optimizer,
			Params: optim.Params{
				"epoch":    float64(req.Epochs),
				"pop_size": float64(req.PopSize),
			},
		},
		Mode:        optim.Mode(req.Mode),
		Workers:     req.Workers,
		Seed:        req.Seed,
		LowerBounds: req.LowerBounds,
		UpperBounds: req.UpperBounds,
		LogProgress: req.LogProgress,
	})
	if err != nil {
		return TrainSummary{}, err
	}

	if err := trainer.Fit(ctx, X, y); err != nil {
		return TrainSummary{}, err
	}

	metricNames := []string{"MSE", "RMSE", "MAE", "R2"}
	if req.Task == string(train.TaskClassification) {
		metricNames = []string{"AS", "PS", "RS", "F1S"}
	}
	scores, err := trainer.Scores(X, y, metricNames...)
	if err != nil {
		return TrainSummary{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%s-%d-%d", req.Task, req.Optimizer, req.Seed, now.Unix())

	networkRecord, err := trainer.Network().Record(runID + "-net")
	if err != nil {
		return TrainSummary{}, err
	}
	networkRecord.VersionedRecord = storage.Stamp()

	runRecord := model.RunRecord{
		VersionedRecord: storage.Stamp(),
		ID:              runID,
		CreatedAtUTC:    now.Format(time.RFC3339Nano),
		Task:            req.Task,
		Objective:       req.Objective,
		Optimizer:       req.Optimizer,
		Mode:            req.Mode,
		Workers:         req.Workers,
		Epochs:          req.Epochs,
		PopSize:         req.PopSize,
		Seed:            req.Seed,
		BestFitness:     trainer.BestFitness(),
		NetworkID:       networkRecord.ID,
	}

	if err := c.store.SaveNetwork(ctx, networkRecord); err != nil {
		return TrainSummary{}, err
	}
	if err := c.store.SaveRun(ctx, runRecord); err != nil {
		return TrainSummary{}, err
	}
	if err := c.store.SaveLossHistory(ctx, runID, trainer.LossHistory()); err != nil {
		return TrainSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:       runID,
			Task:        req.Task,
			Objective:   req.Objective,
			Optimizer:   req.Optimizer,
			Mode:        req.Mode,
			Workers:     req.Workers,
			LayerSizes:  req.LayerSizes,
			Activation:  req.Activation,
			Epochs:      req.Epochs,
			PopSize:     req.PopSize,
			LowerBounds: req.LowerBounds,
			UpperBounds: req.UpperBounds,
			Seed:        req.Seed,
			DatasetPath: req.DatasetPath,
		},
		LossHistory:      trainer.LossHistory(),
		FinalBestFitness: trainer.BestFitness(),
		Metrics:          scores,
		Network:          networkRecord,
	})
	if err != nil {
		return TrainSummary{}, err
	}

	pred, err := trainer.Predict(X)
	if err != nil {
		return TrainSummary{}, err
	}
	if err := stats.WritePredictionsCSV(runDir, flattenMatrix(y), flattenMatrix(pred)); err != nil {
		return TrainSummary{}, err
	}

	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:            runID,
		Task:             req.Task,
		Objective:        req.Objective,
		Optimizer:        req.Optimizer,
		Epochs:           req.Epochs,
		PopSize:          req.PopSize,
		Seed:             req.Seed,
		FinalBestFitness: trainer.BestFitness(),
		CreatedAtUTC:     runRecord.CreatedAtUTC,
	}); err != nil {
		return TrainSummary{}, err
	}

	return TrainSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		LossHistory:  trainer.LossHistory(),
		BestFitness:  trainer.BestFitness(),
		Metrics:      scores,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Task:         e.Task,
			Objective:    e.Objective,
			Optimizer:    e.Optimizer,
			Epochs:       e.Epochs,
			PopSize:      e.PopSize,
			Seed:         e.Seed,
			BestFitness:  e.FinalBestFitness,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) LossHistory(ctx context.Context, req LossHistoryRequest) ([]float64, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, errors.New("no runs available")
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return nil, errors.New("loss history requires run id or latest")
	}

	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetLossHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("loss history not found for run id: %s", runID)
	}
	return history, nil
}

func resolveData(req TrainRequest) (*mat.Dense, *mat.Dense, error) {
	if req.DatasetPath != "" {
		if req.X != nil || req.Y != nil {
			return nil, nil, errors.New("use either dataset path or in-memory matrices")
		}
		targetCols := req.TargetColumns
		if targetCols <= 0 {
			targetCols = 1
		}
		ds, err := dataset.LoadCSV(req.DatasetPath, targetCols)
		if err != nil {
			return nil, nil, err
		}
		return ds.X, ds.Y, nil
	}
	if req.X == nil || req.Y == nil {
		return nil, nil, errors.New("training data is required: dataset path or X and Y")
	}
	return req.X, req.Y, nil
}

func flattenMatrix(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, m.At(r, c))
		}
	}
	return out
}
