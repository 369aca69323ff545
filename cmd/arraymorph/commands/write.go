package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	writeSel selection
	writeIn  string
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write a chunk selection",
	Long: `Write densely packed elements from --in or stdin into the selection of
one chunk. A partial selection patches the existing object; a missing
object is treated as zero-filled.

Examples:
  # Replace a whole 4x4 chunk of float64
  arraymorph write --file run.h5 --uri temp/0.0 --shape 4,4 --element-size 8 --in chunk.bin

  # Patch row 2
  arraymorph write --file run.h5 --uri temp/0.0 --shape 4,4 --ranges 2:2,0:3 \
    --element-size 8 < row.bin`,
	RunE: runWrite,
}

func init() {
	writeSel.addFlags(writeCmd)
	writeCmd.Flags().StringVarP(&writeIn, "in", "i", "", "Input file (default: stdin)")
}

func runWrite(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var (
		src []byte
		err error
	)
	if writeIn == "" {
		src, err = io.ReadAll(cmd.InOrStdin())
	} else {
		src, err = os.ReadFile(writeIn)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	f, cleanup, err := openFile(ctx, writeSel.file)
	if err != nil {
		return err
	}
	defer cleanup()

	desc, err := writeSel.descriptor(f)
	if err != nil {
		return err
	}

	if err := f.WriteChunk(ctx, desc, src); err != nil {
		return fmt.Errorf("write %s: %w", desc, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(src), desc)
	return nil
}
