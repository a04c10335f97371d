package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// NetworkRecord is the persisted form of a trained multi-layer ELM.
// Weight matrices are stored row-major, one flat slice per hidden layer;
// Beta is the row-major output-layer matrix (last hidden size x outputs).
type NetworkRecord struct {
	VersionedRecord
	ID         string      `json:"id"`
	LayerSizes []int       `json:"layer_sizes"`
	Activation string      `json:"activation"`
	InputSize  int         `json:"input_size"`
	OutputSize int         `json:"output_size"`
	Weights    [][]float64 `json:"weights"`
	Biases     [][]float64 `json:"biases"`
	Beta       []float64   `json:"beta"`
}

type RunRecord struct {
	VersionedRecord
	ID           string  `json:"id"`
	CreatedAtUTC string  `json:"created_at_utc"`
	Task         string  `json:"task"`
	Objective    string  `json:"objective,omitempty"`
	Optimizer    string  `json:"optimizer,omitempty"`
	Mode         string  `json:"mode,omitempty"`
	Workers      int     `json:"workers,omitempty"`
	Epochs       int     `json:"epochs,omitempty"`
	PopSize      int     `json:"pop_size,omitempty"`
	Seed         int64   `json:"seed"`
	BestFitness  float64 `json:"best_fitness"`
	NetworkID    string  `json:"network_id"`
}
