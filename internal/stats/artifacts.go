package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"metaelm/internal/model"
)

const runIndexFile = "run_index.json"

// RunConfig is the serialized form of one training invocation.
type RunConfig struct {
	RunID       string    `json:"run_id"`
	Task        string    `json:"task"`
	Objective   string    `json:"objective,omitempty"`
	Optimizer   string    `json:"optimizer,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	Workers     int       `json:"workers,omitempty"`
	LayerSizes  []int     `json:"layer_sizes"`
	Activation  string    `json:"activation"`
	Epochs      int       `json:"epochs,omitempty"`
	PopSize     int       `json:"pop_size,omitempty"`
	LowerBounds []float64 `json:"lower_bounds,omitempty"`
	UpperBounds []float64 `json:"upper_bounds,omitempty"`
	Seed        int64     `json:"seed"`
	DatasetPath string    `json:"dataset_path,omitempty"`
}

// RunArtifacts is everything worth writing to disk after a run.
type RunArtifacts struct {
	Config           RunConfig           `json:"config"`
	LossHistory      []float64           `json:"loss_history"`
	FinalBestFitness float64             `json:"final_best_fitness"`
	Metrics          map[string]float64  `json:"metrics,omitempty"`
	Network          model.NetworkRecord `json:"network"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Task             string  `json:"task"`
	Objective        string  `json:"objective,omitempty"`
	Optimizer        string  `json:"optimizer,omitempty"`
	Epochs           int     `json:"epochs,omitempty"`
	PopSize          int     `json:"pop_size,omitempty"`
	Seed             int64   `json:"seed"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

// WriteRunArtifacts lays out one run directory under baseDir:
// config.json, loss_history.json, network.json, metrics.json and loss.csv.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "loss_history.json"), map[string]any{
		"loss_history":       artifacts.LossHistory,
		"final_best_fitness": artifacts.FinalBestFitness,
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "network.json"), artifacts.Network); err != nil {
		return "", err
	}
	if len(artifacts.Metrics) > 0 {
		if err := writeJSON(filepath.Join(runDir, "metrics.json"), artifacts.Metrics); err != nil {
			return "", err
		}
	}
	if err := WriteLossCSV(runDir, artifacts.LossHistory); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

// ExportRunArtifacts copies one run directory under outDir.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	required := []string{"config.json", "loss_history.json", "network.json", "loss.csv"}
	for _, file := range required {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	for _, file := range []string{"metrics.json", "predictions.csv"} {
		path := filepath.Join(src, file)
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, filepath.Join(dst, file)); err != nil {
				return "", err
			}
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

// WriteLossCSV writes the per-epoch global-best trace as loss.csv.
func WriteLossCSV(runDir string, history []float64) error {
	file, err := os.Create(filepath.Join(runDir, "loss.csv"))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"epoch", "loss"}); err != nil {
		return err
	}
	for i, loss := range history {
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(loss, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadLossCSV(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, "loss.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("loss csv header must have at least 2 columns")
	}

	history := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("loss csv row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		history = append(history, value)
	}
	return history, true, nil
}

// WriteMetricsCSV writes one metric per row, sorted by name.
func WriteMetricsCSV(runDir string, metrics map[string]float64) error {
	file, err := os.Create(filepath.Join(runDir, "metrics.csv"))
	if err != nil {
		return err
	}
	defer file.Close()

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"metric", "value"}); err != nil {
		return err
	}
	for _, name := range names {
		if err := writer.Write([]string{
			name,
			strconv.FormatFloat(metrics[name], 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WritePredictionsCSV pairs each true target row with its prediction.
func WritePredictionsCSV(runDir string, yTrue, yPred []float64) error {
	if len(yTrue) != len(yPred) {
		return fmt.Errorf("prediction length mismatch: %d true, %d predicted", len(yTrue), len(yPred))
	}

	file, err := os.Create(filepath.Join(runDir, "predictions.csv"))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"y_true", "y_pred"}); err != nil {
		return err
	}
	for i := range yTrue {
		if err := writer.Write([]string{
			strconv.FormatFloat(yTrue[i], 'f', -1, 64),
			strconv.FormatFloat(yPred[i], 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
