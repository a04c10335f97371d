package main

import (
	"encoding/json"
	"math"
	"os"

	"metaelm/pkg/metaelm"
)

// loadTrainRequestFromConfig reads a loosely-typed JSON config into a
// train request. Unknown keys are ignored; explicit CLI flags win over
// config values in mergeTrainRequest.
func loadTrainRequestFromConfig(path string) (metaelm.TrainRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return metaelm.TrainRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return metaelm.TrainRequest{}, err
	}

	var req metaelm.TrainRequest
	if v, ok := asString(raw["data"]); ok {
		req.DatasetPath = v
	}
	if v, ok := asInt(raw["target_cols"]); ok {
		req.TargetColumns = v
	}
	if v, ok := asString(raw["task"]); ok {
		req.Task = v
	}
	if v, ok := asString(raw["objective"]); ok {
		req.Objective = v
	}
	if v, ok := asIntSlice(raw["layers"]); ok {
		req.LayerSizes = v
	}
	if v, ok := asString(raw["activation"]); ok {
		req.Activation = v
	}
	if v, ok := asString(raw["optimizer"]); ok {
		req.Optimizer = v
	}
	if v, ok := asInt(raw["epochs"]); ok {
		req.Epochs = v
	}
	if v, ok := asInt(raw["pop"]); ok {
		req.PopSize = v
	}
	if v, ok := asString(raw["mode"]); ok {
		req.Mode = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asFloatSlice(raw["lb"]); ok {
		req.LowerBounds = v
	}
	if v, ok := asFloatSlice(raw["ub"]); ok {
		req.UpperBounds = v
	}
	if v, ok := asBool(raw["verbose"]); ok {
		req.LogProgress = v
	}
	return req, nil
}

// mergeTrainRequest overlays flag values onto config values. A flag the
// user set explicitly always wins; otherwise a non-zero config value
// replaces the flag default.
func mergeTrainRequest(fromConfig, fromFlags metaelm.TrainRequest, setFlags map[string]bool) metaelm.TrainRequest {
	out := fromFlags

	if !setFlags["data"] && fromConfig.DatasetPath != "" {
		out.DatasetPath = fromConfig.DatasetPath
	}
	if !setFlags["target-cols"] && fromConfig.TargetColumns > 0 {
		out.TargetColumns = fromConfig.TargetColumns
	}
	if !setFlags["task"] && fromConfig.Task != "" {
		out.Task = fromConfig.Task
	}
	if !setFlags["objective"] && fromConfig.Objective != "" {
		out.Objective = fromConfig.Objective
	}
	if !setFlags["layers"] && len(fromConfig.LayerSizes) > 0 {
		out.LayerSizes = fromConfig.LayerSizes
	}
	if !setFlags["activation"] && fromConfig.Activation != "" {
		out.Activation = fromConfig.Activation
	}
	if !setFlags["optimizer"] && fromConfig.Optimizer != "" {
		out.Optimizer = fromConfig.Optimizer
	}
	if !setFlags["epochs"] && fromConfig.Epochs > 0 {
		out.Epochs = fromConfig.Epochs
	}
	if !setFlags["pop"] && fromConfig.PopSize > 0 {
		out.PopSize = fromConfig.PopSize
	}
	if !setFlags["mode"] && fromConfig.Mode != "" {
		out.Mode = fromConfig.Mode
	}
	if !setFlags["workers"] && fromConfig.Workers > 0 {
		out.Workers = fromConfig.Workers
	}
	if !setFlags["seed"] && fromConfig.Seed != 0 {
		out.Seed = fromConfig.Seed
	}
	if !setFlags["lb"] && len(fromConfig.LowerBounds) > 0 {
		out.LowerBounds = fromConfig.LowerBounds
	}
	if !setFlags["ub"] && len(fromConfig.UpperBounds) > 0 {
		out.UpperBounds = fromConfig.UpperBounds
	}
	if !setFlags["verbose"] && fromConfig.LogProgress {
		out.LogProgress = true
	}
	return out
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func asIntSlice(v any) ([]int, bool) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, ok := asInt(item)
		if !ok {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func asFloatSlice(v any) ([]float64, bool) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		f, ok := asFloat64(item)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}
