package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/goodtune/nx/internal/docpath"
	"github.com/goodtune/nx/internal/storage"
)

var errMissing = errors.New("document does not exist")

var statCmd = &cobra.Command{
	Use:   "stat PATH",
	Short: "Show whether a document exists",
	Long: `Look up the document at PATH and print a summary. The exit status is
non-zero when the document does not exist.`,
	Example: `  nx stat /default-domain/workspaces
  nx -c ./dev.nxrc stat /default-domain/workspaces/reports`,
	Args: cobra.ExactArgs(1),
	RunE: runStat,
}

func init() {
	rootCmd.AddCommand(statCmd)
}

func runStat(cmd *cobra.Command, args []string) error {
	p, err := docpath.Parse(args[0])
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	doc, err := a.store.Get(cmd.Context(), p.String())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		a.out.Stat(p.String(), nil)
		return errMissing
	case err != nil:
		return err
	}

	a.out.Stat(p.String(), doc)
	return nil
}
