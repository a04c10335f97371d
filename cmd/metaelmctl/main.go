package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"metaelm/pkg/metaelm"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "loss":
		return runLoss(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: metaelmctl <train|runs|loss|export> [flags]", msg)
}

func newClient(storeKind, dbPath, artifactsDir, exportsDir string) (*metaelm.Client, error) {
	return metaelm.New(metaelm.Options{
		StoreKind:    storeKind,
		DBPath:       dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
	})
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional train config JSON path")
	data := fs.String("data", "", "training dataset CSV path (targets in trailing columns)")
	targetCols := fs.Int("target-cols", 1, "number of trailing target columns")
	task := fs.String("task", "regression", "task: regression|classification")
	objective := fs.String("objective", "", "objective metric name (default MSE / AS by task)")
	layers := fs.String("layers", "10", "hidden layer sizes, comma separated")
	activation := fs.String("activation", "sigmoid", "hidden activation name")
	optimizer := fs.String("optimizer", "BaseGA", "optimizer name")
	epochs := fs.Int("epochs", 100, "search epochs")
	popSize := fs.Int("pop", 50, "population size")
	mode := fs.String("mode", "single", "execution mode: single|swarm|thread|process")
	workers := fs.Int("workers", 4, "worker count for parallel modes")
	seed := fs.Int64("seed", 1, "rng seed")
	lb := fs.Float64("lb", -1, "lower search bound (broadcast)")
	ub := fs.Float64("ub", 1, "upper search bound (broadcast)")
	verbose := fs.Bool("verbose", false, "log per-epoch progress")
	storeKind := fs.String("store", "memory", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "metaelm.db", "sqlite database path")
	artifactsDir := fs.String("artifacts-dir", "artifacts", "artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req := metaelm.TrainRequest{
		DatasetPath:   *data,
		TargetColumns: *targetCols,
		Task:          *task,
		Objective:     *objective,
		Activation:    *activation,
		Optimizer:     *optimizer,
		Epochs:        *epochs,
		PopSize:       *popSize,
		Mode:          *mode,
		Workers:       *workers,
		Seed:          *seed,
		LowerBounds:   []float64{*lb},
		UpperBounds:   []float64{*ub},
		LogProgress:   *verbose,
	}
	layerSizes, err := parseLayerSizes(*layers)
	if err != nil {
		return err
	}
	req.LayerSizes = layerSizes

	if *configPath != "" {
		fromConfig, err := loadTrainRequestFromConfig(*configPath)
		if err != nil {
			return fmt.Errorf("load train config: %w", err)
		}
		req = mergeTrainRequest(fromConfig, req, setFlags)
	}

	client, err := newClient(*storeKind, *dbPath, *artifactsDir, "")
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	summary, err := client.Train(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run_id=%s best_fitness=%g epochs=%d\n", summary.RunID, summary.BestFitness, len(summary.LossHistory))
	fmt.Printf("artifacts=%s\n", summary.ArtifactsDir)
	for name, value := range summary.Metrics {
		fmt.Printf("metric %s=%g\n", name, value)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "maximum runs to list")
	artifactsDir := fs.String("artifacts-dir", "artifacts", "artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient("memory", "", *artifactsDir, "")
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	runs, err := client.Runs(ctx, metaelm.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, item := range runs {
		fmt.Printf("%s created=%s task=%s objective=%s optimizer=%s epochs=%d pop=%d seed=%d best=%g\n",
			item.RunID, item.CreatedAtUTC, item.Task, item.Objective, item.Optimizer,
			item.Epochs, item.PopSize, item.Seed, item.BestFitness)
	}
	return nil
}

func runLoss(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("loss", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	storeKind := fs.String("store", "memory", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "metaelm.db", "sqlite database path")
	artifactsDir := fs.String("artifacts-dir", "artifacts", "artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, *artifactsDir, "")
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	history, err := client.LossHistory(ctx, metaelm.LossHistoryRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	for i, loss := range history {
		fmt.Printf("epoch=%d loss=%g\n", i+1, loss)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "", "output directory (default exports)")
	artifactsDir := fs.String("artifacts-dir", "artifacts", "artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient("memory", "", *artifactsDir, "")
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	summary, err := client.Export(ctx, metaelm.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func parseLayerSizes(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	sizes := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		size, err := strconv.Atoi(part)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("invalid layer size %q: want positive integers, comma separated", part)
		}
		sizes = append(sizes, size)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("at least one hidden layer size is required")
	}
	return sizes, nil
}
