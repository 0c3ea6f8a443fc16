// Copyright 2025 scMulti ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package serialization provides reading and writing of .scml model files.
//
// This package wraps the internal serialization implementation and exports a
// clean public API for persisting model weights and training checkpoints in
// the SCML native format.
//
// Example usage:
//
//	import (
//	    "github.com/scmulti-ml/scmulti/serialization"
//	    "github.com/scmulti-ml/scmulti/backend/cpu"
//	)
//
//	// Write a state dict
//	writer, err := serialization.NewScmlWriter("model.scml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer writer.Close()
//	err = writer.WriteStateDict(model.StateDict(), "MultiVAE", nil)
//
//	// Read it back
//	reader, err := serialization.NewScmlReader("model.scml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//
//	backend := cpu.New()
//	stateDict, err := reader.ReadStateDict(backend)
package serialization

import (
	"io"

	"github.com/scmulti-ml/scmulti/internal/serialization"
	"github.com/scmulti-ml/scmulti/tensor"
)

// Header contains the metadata block of a .scml file.
type Header = serialization.Header

// TensorMeta describes a single tensor in a .scml file.
type TensorMeta = serialization.TensorMeta

// CheckpointMeta carries training state for checkpoint files.
type CheckpointMeta = serialization.CheckpointMeta

// ScmlWriter writes state dictionaries to .scml files.
type ScmlWriter = serialization.ScmlWriter

// NewScmlWriter creates a new .scml file writer.
//
// Example:
//
//	writer, err := serialization.NewScmlWriter("model.scml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer writer.Close()
//	err = writer.WriteStateDict(stateDict, "MultiVAE", map[string]string{
//	    "dataset": "pbmc10k",
//	})
func NewScmlWriter(path string) (*ScmlWriter, error) {
	return serialization.NewScmlWriter(path)
}

// ScmlReader reads state dictionaries from .scml files.
type ScmlReader = serialization.ScmlReader

// ReaderOptions controls validation behavior when opening a file.
type ReaderOptions = serialization.ReaderOptions

// ValidationLevel selects how strictly file contents are checked.
type ValidationLevel = serialization.ValidationLevel

// Validation strictness levels.
const (
	// ValidationStrict rejects any structural irregularity.
	ValidationStrict ValidationLevel = serialization.ValidationStrict
	// ValidationNormal checks offsets and names but tolerates unknown metadata.
	ValidationNormal ValidationLevel = serialization.ValidationNormal
	// ValidationNone skips structural validation entirely.
	ValidationNone ValidationLevel = serialization.ValidationNone
)

// NewScmlReader opens a .scml file with strict validation.
//
// Example:
//
//	reader, err := serialization.NewScmlReader("model.scml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//
//	fmt.Printf("Model type: %s\n", reader.Header().ModelType)
//	for _, name := range reader.TensorNames() {
//	    fmt.Println(name)
//	}
//
//	backend := cpu.New()
//	weight, err := reader.LoadTensor("encoder.0.weight", backend)
func NewScmlReader(path string) (*ScmlReader, error) {
	return serialization.NewScmlReader(path)
}

// NewScmlReaderWithOptions opens a .scml file with custom validation options.
func NewScmlReaderWithOptions(path string, opts ReaderOptions) (*ScmlReader, error) {
	return serialization.NewScmlReaderWithOptions(path, opts)
}

// WriteTo writes a state dictionary to an arbitrary io.Writer.
//
// Useful for writing to buffers or network streams instead of files.
func WriteTo(writer io.Writer, stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	return serialization.WriteTo(writer, stateDict, modelType, metadata)
}

// ReadFrom reads a state dictionary from an arbitrary io.Reader.
func ReadFrom(reader io.Reader, backend tensor.Backend) (map[string]*tensor.RawTensor, Header, error) {
	return serialization.ReadFrom(reader, backend)
}
