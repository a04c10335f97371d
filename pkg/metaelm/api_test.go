package metaelm

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(t.TempDir(), "artifacts"),
		ExportsDir:   filepath.Join(t.TempDir(), "exports"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func regressionMatrices(rows int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(rows, 3, nil)
	y := mat.NewDense(rows, 1, nil)
	for r := 0; r < rows; r++ {
		total := 0.0
		for c := 0; c < 3; c++ {
			v := rng.Float64()
			X.Set(r, c, v)
			total += v
		}
		y.Set(r, 0, total)
	}
	return X, y
}

func TestClientTrainAndRuns(t *testing.T) {
	client := newTestClient(t)
	X, y := regressionMatrices(40, 3)

	summary, err := client.Train(context.Background(), TrainRequest{
		X:          X,
		Y:          y,
		LayerSizes: []int{5},
		Epochs:     8,
		PopSize:    10,
		Seed:       5,
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("empty run id")
	}
	if len(summary.LossHistory) != 8 {
		t.Fatalf("loss history length: got %d, want 8", len(summary.LossHistory))
	}
	if _, ok := summary.Metrics["MSE"]; !ok {
		t.Fatalf("missing MSE metric: %v", summary.Metrics)
	}
	for _, file := range []string{"config.json", "loss_history.json", "network.json", "loss.csv", "predictions.csv"} {
		if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, file)); err != nil {
			t.Fatalf("missing artifact %s: %v", file, err)
		}
	}

	runs, err := client.Runs(context.Background(), RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID {
		t.Fatalf("runs listing: %+v", runs)
	}

	history, err := client.LossHistory(context.Background(), LossHistoryRequest{Latest: true})
	if err != nil {
		t.Fatalf("loss history: %v", err)
	}
	if len(history) != 8 {
		t.Fatalf("stored loss history length: got %d, want 8", len(history))
	}
}

func TestClientTrainFromCSV(t *testing.T) {
	client := newTestClient(t)

	path := filepath.Join(t.TempDir(), "data.csv")
	csv := "x1,x2,target\n"
	for i := 0; i < 30; i++ {
		a := float64(i) / 30
		b := 1 - a
		csv += formatRow(a, b, a+2*b)
	}
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	summary, err := client.Train(context.Background(), TrainRequest{
		DatasetPath: path,
		LayerSizes:  []int{4},
		Epochs:      5,
		PopSize:     8,
		Seed:        2,
	})
	if err != nil {
		t.Fatalf("train from csv: %v", err)
	}
	if summary.BestFitness < 0 {
		t.Fatalf("MSE fitness negative: %g", summary.BestFitness)
	}
}

func TestClientTrainClassificationDefaults(t *testing.T) {
	client := newTestClient(t)

	X := mat.NewDense(20, 2, nil)
	y := mat.NewDense(20, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, 0.1*float64(i))
		X.Set(i, 1, 0.1*float64(i))
		y.Set(i, 0, 0)
		X.Set(10+i, 0, 3+0.1*float64(i))
		X.Set(10+i, 1, 3+0.1*float64(i))
		y.Set(10+i, 0, 1)
	}

	summary, err := client.Train(context.Background(), TrainRequest{
		X:          X,
		Y:          y,
		Task:       "classification",
		Optimizer:  "OriginalPSO",
		LayerSizes: []int{6},
		Epochs:     10,
		PopSize:    10,
		Seed:       3,
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if _, ok := summary.Metrics["AS"]; !ok {
		t.Fatalf("classification defaults should score accuracy: %v", summary.Metrics)
	}
	if summary.BestFitness < 0 || summary.BestFitness > 1 {
		t.Fatalf("accuracy fitness out of range: %g", summary.BestFitness)
	}
}

func TestClientExport(t *testing.T) {
	client := newTestClient(t)
	X, y := regressionMatrices(30, 9)

	summary, err := client.Train(context.Background(), TrainRequest{
		X: X, Y: y, LayerSizes: []int{4}, Epochs: 4, PopSize: 6, Seed: 1,
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	export, err := client.Export(context.Background(), ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if export.RunID != summary.RunID {
		t.Fatalf("exported wrong run: got %s, want %s", export.RunID, summary.RunID)
	}
	if _, err := os.Stat(filepath.Join(export.Directory, "network.json")); err != nil {
		t.Fatalf("exported network missing: %v", err)
	}

	if _, err := client.Export(context.Background(), ExportRequest{}); err == nil {
		t.Fatal("expected error without run id or latest")
	}
	if _, err := client.Export(context.Background(), ExportRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected error for run id with latest")
	}
}

func TestClientTrainDataValidation(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.Train(context.Background(), TrainRequest{}); err == nil {
		t.Fatal("expected error without training data")
	}

	X, y := regressionMatrices(10, 1)
	if _, err := client.Train(context.Background(), TrainRequest{
		DatasetPath: "some.csv", X: X, Y: y,
	}); err == nil {
		t.Fatal("expected error for both dataset path and matrices")
	}
}

func formatRow(values ...float64) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out + "\n"
}
