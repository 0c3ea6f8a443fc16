package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

const libraryVersion = "0.3.1" // Current scmulti version

// ScmlWriter writes state dicts in .scml format.
//
// New files are written in format v2, which prefixes the payload with a
// 64-byte fixed header carrying a SHA-256 checksum of the tensor data.
type ScmlWriter struct {
	file   *os.File
	closed bool
}

// NewScmlWriter creates a new .scml file writer.
func NewScmlWriter(path string) (*ScmlWriter, error) {
	//nolint:gosec // G304: File path comes from the caller, which is expected for checkpoint saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &ScmlWriter{
		file:   file,
		closed: false,
	}, nil
}

// buildTensorMetas fills header.Tensors with offsets computed in a stable
// iteration order and returns that order. Tensor data is written in the
// same order, so the declared offsets always match the payload.
func buildTensorMetas(header *Header, stateDict map[string]*tensor.RawTensor) []string {
	var currentOffset int64
	tensorOrder := make([]string, 0, len(stateDict))

	header.Tensors = make([]TensorMeta, 0, len(stateDict))
	for name, raw := range stateDict {
		tensorOrder = append(tensorOrder, name)
		size := int64(raw.NumElements() * raw.DType().Size())

		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtypeToString(raw.DType()),
			Shape:  []int(raw.Shape()),
			Offset: currentOffset,
			Size:   size,
		})

		currentOffset += size
	}

	return tensorOrder
}

// WriteStateDict writes a state dictionary to the .scml file in format v2.
//
// The state dictionary is a map from parameter names to tensors.
func (w *ScmlWriter) WriteStateDict(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	header := Header{
		ModelType: modelType,
		Metadata:  metadata,
	}
	return w.WriteStateDictWithHeader(stateDict, header)
}

// WriteStateDictWithHeader writes a state dictionary with a custom header
// to the .scml file in format v2.
//
// This allows setting CheckpointMeta and other custom header fields.
func (w *ScmlWriter) WriteStateDictWithHeader(stateDict map[string]*tensor.RawTensor, header Header) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	// Writer always produces the current format version.
	header.FormatVersion = FormatVersionV2
	header.LibraryVersion = libraryVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	tensorOrder := buildTensorMetas(&header, stateDict)

	// Collect tensor data up front: the checksum goes into the fixed
	// header, before the data itself.
	var tensorDataBuf []byte
	for _, name := range tensorOrder {
		tensorDataBuf = append(tensorDataBuf, stateDict[name].Data()...)
	}
	checksum := ComputeChecksum(tensorDataBuf)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	headerSize := uint64(len(headerJSON))
	dataSize := uint64(len(tensorDataBuf))

	// v2 fixed header (64 bytes):
	//   0x00-0x03 magic, 0x04-0x07 version, 0x08-0x0B flags,
	//   0x0C-0x0F reserved, 0x10-0x17 header size, 0x18-0x1F data size,
	//   0x20-0x3F SHA-256 checksum.
	fixedHeader := make([]byte, FixedHeaderSizeV2)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], uint32(FormatVersionV2))

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.CheckpointMeta != nil && header.CheckpointMeta.IsCheckpoint {
		flags |= FlagHasOptimizer
	}
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)

	binary.LittleEndian.PutUint64(fixedHeader[16:24], headerSize)
	binary.LittleEndian.PutUint64(fixedHeader[24:32], dataSize)
	copy(fixedHeader[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])

	if _, err := w.file.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}

	if _, err := w.file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	// Pad so tensor data starts on a 64-byte boundary.
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize, conversion is safe
	currentPos := int64(FixedHeaderSizeV2) + int64(headerSize)
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	if padding > 0 {
		if _, err := w.file.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.file.Write(tensorDataBuf); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}

	return nil
}

// Close closes the writer and the underlying file.
func (w *ScmlWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTo writes the state dictionary to an io.Writer using the v1 layout.
//
// Streaming writers cannot seek back to fill in a checksum, so this path
// keeps the checksum-free v1 layout. Useful for buffers and network
// connections; file checkpoints should prefer ScmlWriter.
func WriteTo(writer io.Writer, stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	header := Header{
		FormatVersion:  FormatVersion,
		LibraryVersion: libraryVersion,
		ModelType:      modelType,
		CreatedAt:      time.Now().UTC(),
		Metadata:       metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	tensorOrder := buildTensorMetas(&header, stateDict)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if _, err := writer.Write([]byte(MagicBytes)); err != nil {
		return fmt.Errorf("failed to write magic bytes: %w", err)
	}

	if err := binary.Write(writer, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if err := binary.Write(writer, binary.LittleEndian, flags); err != nil {
		return fmt.Errorf("failed to write flags: %w", err)
	}

	headerSize := uint64(len(headerJSON))
	if err := binary.Write(writer, binary.LittleEndian, headerSize); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}

	if _, err := writer.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Pad so tensor data starts on a 64-byte boundary.
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize, conversion is safe
	currentPos := int64(4+4+4+8) + int64(headerSize)
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	if padding > 0 {
		if _, err := writer.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	for _, name := range tensorOrder {
		if _, err := writer.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}

	return nil
}
