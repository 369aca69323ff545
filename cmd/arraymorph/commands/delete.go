package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guzman109/ArrayMorph/internal/cli/prompt"
)

var (
	deleteFile  string
	deleteURI   string
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a chunk object",
	Long: `Delete one chunk object. Deleting a chunk that does not exist succeeds.
Asks for confirmation unless --force is given.

Examples:
  arraymorph delete --file run.h5 --uri temp/0.0
  arraymorph delete --file run.h5 --uri temp/0.0 --force`,
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&deleteFile, "file", "", "File the chunk belongs to (object key prefix)")
	deleteCmd.Flags().StringVar(&deleteURI, "uri", "", "Chunk name within the file")
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation")
	_ = deleteCmd.MarkFlagRequired("uri")
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, cleanup, err := openFile(ctx, deleteFile)
	if err != nil {
		return err
	}
	defer cleanup()

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s?", f.Key(deleteURI)), deleteForce)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.ErrOrStderr(), "Aborted")
		return nil
	}

	if err := f.DeleteChunk(ctx, deleteURI); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Deleted %s\n", f.Key(deleteURI))
	return nil
}
