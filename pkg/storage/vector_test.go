package storage

import "testing"

func TestSerializeVectorDimMismatch(t *testing.T) {
	_, err := SerializeVector([]float32{0.1, 0.2}, 384)
	if err == nil {
		t.Error("expected an error for a vector shorter than the configured dimension")
	}
}

func TestSerializeVectorAccepted(t *testing.T) {
	vector := make([]float32, 384)
	for i := range vector {
		vector[i] = 0.01
	}

	blob, err := SerializeVector(vector, 384)
	if err != nil {
		t.Fatalf("SerializeVector() error = %v", err)
	}
	if len(blob) == 0 {
		t.Error("expected a non-empty serialized vector")
	}
}
