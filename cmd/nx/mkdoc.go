package main

import (
	"github.com/spf13/cobra"

	"github.com/goodtune/nx/internal/docpath"
	"github.com/goodtune/nx/internal/ensure"
)

var (
	mkdocType    string
	mkdocForce   bool
	mkdocParents bool
)

var mkdocCmd = &cobra.Command{
	Use:   "mkdoc [flags] PATH",
	Short: "Make sure a document exists",
	Long: `Create a document of the given type at PATH unless one is already there.

With --parents every missing ancestor is created first, shallowest first,
using the same type. With --force existing documents are created again.`,
	Example: `  nx mkdoc /default-domain/workspaces/reports
  nx mkdoc -p -t Folder /default-domain/workspaces/site/2024/reports
  nx mkdoc -t Note -f /default-domain/workspaces/reports/readme`,
	Args: cobra.ExactArgs(1),
	RunE: runMkdoc,
}

func init() {
	mkdocCmd.Flags().StringVarP(&mkdocType, "type", "t", "Folder", "Document type to create")
	mkdocCmd.Flags().BoolVarP(&mkdocForce, "force", "f", false, "Create documents even if they exist")
	mkdocCmd.Flags().BoolVarP(&mkdocParents, "parents", "p", false, "Create missing parent documents")
	rootCmd.AddCommand(mkdocCmd)
}

func runMkdoc(cmd *cobra.Command, args []string) error {
	p, err := docpath.Parse(args[0])
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	e := ensure.New(a.store, a.logger)

	if mkdocParents {
		outcomes, err := e.Path(cmd.Context(), p, mkdocType, mkdocForce)
		a.out.Outcomes(outcomes)
		return err
	}

	o := e.Document(cmd.Context(), p, mkdocType, mkdocForce)
	a.out.Outcomes([]ensure.Outcome{o})
	if o.Result == ensure.Failed {
		return o.Err
	}
	return nil
}
