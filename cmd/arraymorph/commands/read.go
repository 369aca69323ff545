package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	readSel selection
	readOut string
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a chunk selection",
	Long: `Read the selected elements of one chunk and write them, densely packed,
to --out or stdout.

Examples:
  # Rows 0-1 of a 4x4 chunk of float64
  arraymorph read --file run.h5 --uri temp/0.0 --shape 4,4 --ranges 0:1,0:3 \
    --element-size 8 --out rows.bin

  # Whole chunk to stdout
  arraymorph read --uri temp/0.0 --shape 4,4 --element-size 8 > chunk.bin`,
	RunE: runRead,
}

func init() {
	readSel.addFlags(readCmd)
	readCmd.Flags().StringVarP(&readOut, "out", "o", "", "Output file (default: stdout)")
}

func runRead(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, cleanup, err := openFile(ctx, readSel.file)
	if err != nil {
		return err
	}
	defer cleanup()

	desc, err := readSel.descriptor(f)
	if err != nil {
		return err
	}

	buf := make([]byte, desc.RequiredByteSize())
	if err := f.ReadChunk(ctx, desc, buf); err != nil {
		return fmt.Errorf("read %s: %w", desc, err)
	}

	if readOut == "" {
		_, err = cmd.OutOrStdout().Write(buf)
		return err
	}
	if err := os.WriteFile(readOut, buf, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Read %d bytes from %s into %s\n", len(buf), desc, readOut)
	return nil
}
