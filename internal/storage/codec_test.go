package storage

import (
	"errors"
	"testing"
)

func TestNetworkCodecRoundTrip(t *testing.T) {
	want := sampleNetwork("net-codec")
	payload, err := EncodeNetwork(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeNetwork(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != want.ID || len(got.Weights) != len(want.Weights) || got.Beta[2] != 3 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestRunCodecRejectsVersionMismatch(t *testing.T) {
	run := sampleRun("run-codec", "2026-08-23T00:00:00Z")
	run.SchemaVersion = 99

	payload, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
}

func TestLossHistoryCodec(t *testing.T) {
	payload, err := EncodeLossHistory([]float64{1.5, 0.5})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeLossHistory(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[1] != 0.5 {
		t.Fatalf("round trip mismatch: %v", got)
	}
}
