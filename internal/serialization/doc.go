// Package serialization provides the native .scml format for saving and
// loading model and optimizer state.
//
// The .scml format is a simple binary container for checkpoint state dicts:
//
//	v1 layout:
//	  [4 bytes: Magic "SCML"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON metadata]
//	  [Tensor data: raw bytes, 64-byte aligned]
//
//	v2 layout (default for new files):
//	  [64-byte fixed header: magic, version, flags, header size,
//	   data size, SHA-256 checksum of the tensor data]
//	  [Header: JSON metadata]
//	  [Tensor data: raw bytes, 64-byte aligned]
//
// The format supports:
//   - float32, float64 and int32 tensors
//   - Arbitrary tensor shapes
//   - Training metadata (epoch, step, loss, optimizer config)
//   - Corruption detection via the v2 checksum
//
// Example usage:
//
//	// Save a state dict
//	writer, _ := serialization.NewScmlWriter("model.scml")
//	if err := writer.WriteStateDict(model.StateDict(), "MILClassifier", nil); err != nil {
//	    log.Fatal(err)
//	}
//	writer.Close()
//
//	// Load it back
//	reader, _ := serialization.NewScmlReader("model.scml")
//	stateDict, err := reader.ReadStateDict(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model.LoadStateDict(stateDict)
//	reader.Close()
package serialization
