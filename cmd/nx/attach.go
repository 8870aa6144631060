package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/goodtune/nx/internal/docpath"
	"github.com/goodtune/nx/internal/upload"
)

var attachDoc string

var attachCmd = &cobra.Command{
	Use:     "attach [flags] SOURCE...",
	Short:   "Add local files to the attachments of a document",
	Long:    `Append local files to the files:files list of an existing document.`,
	Example: `  nx attach --doc /default-domain/workspaces/reports/annual.pdf appendix-a.pdf appendix-b.pdf`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runAttach,
}

func init() {
	attachCmd.Flags().StringVar(&attachDoc, "doc", "", "Document to attach to (required)")
	attachCmd.MarkFlagRequired("doc")
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	p, err := docpath.Parse(attachDoc)
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	u := upload.New(a.store, afero.NewOsFs(), a.logger)
	results, err := u.ExtraFiles(cmd.Context(), p, args)
	a.out.Uploads(results)
	return err
}
