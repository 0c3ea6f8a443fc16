// Package main provides the scMulti ML Framework CLI.
package main

import (
	"fmt"
	"os"

	"github.com/scmulti-ml/scmulti/backend/cpu"
	"github.com/scmulti-ml/scmulti/serialization"
)

const version = "v0.3.1"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("scMulti ML Framework %s\n", version)
			return
		case "inspect":
			if len(os.Args) < 3 {
				fmt.Fprintln(os.Stderr, "usage: scmulti inspect <file.scml>")
				os.Exit(2)
			}
			if err := inspect(os.Args[2]); err != nil {
				fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("scMulti ML Framework - Multi-Modal Single-Cell Models for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version            Show version")
	fmt.Println("  inspect <file>     Show the contents of a .scml model file")
}

// inspect prints the header and tensor table of a .scml file.
func inspect(path string) error {
	reader, err := serialization.NewScmlReader(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = reader.Close()
	}()

	header := reader.Header()
	fmt.Printf("Format version: %d\n", header.FormatVersion)
	fmt.Printf("Library:        %s\n", header.LibraryVersion)
	fmt.Printf("Model type:     %s\n", header.ModelType)
	if !header.CreatedAt.IsZero() {
		fmt.Printf("Created:        %s\n", header.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	for key, value := range header.Metadata {
		fmt.Printf("Metadata:       %s=%s\n", key, value)
	}
	if meta := header.CheckpointMeta; meta != nil && meta.IsCheckpoint {
		fmt.Printf("Checkpoint:     epoch %d, step %d, loss %g, optimizer %s\n",
			meta.Epoch, meta.Step, meta.Loss, meta.OptimizerType)
	}

	backend := cpu.New()
	fmt.Printf("\nTensors (%d):\n", len(reader.TensorNames()))
	for _, name := range reader.TensorNames() {
		raw, err := reader.LoadTensor(name, backend)
		if err != nil {
			return err
		}
		fmt.Printf("  %-40s %-8s %v\n", name, raw.DType(), raw.Shape())
	}
	return nil
}
