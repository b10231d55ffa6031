package storage

import (
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/engramhq/engram/pkg/engerrors"
)

// SerializeVector encodes a float32 vector into the BLOB format the vec0
// virtual table expects. It fails with VectorDimMismatch if the vector's
// length does not match the store's configured dimension.
func SerializeVector(vector []float32, expectedDim int) ([]byte, error) {
	if len(vector) != expectedDim {
		return nil, engerrors.New(engerrors.VectorDimMismatch, "storage.serialize_vector")
	}
	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "storage.serialize_vector", err)
	}
	return blob, nil
}
