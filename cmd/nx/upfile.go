package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/goodtune/nx/internal/docpath"
	"github.com/goodtune/nx/internal/upload"
)

var (
	upfileDir   string
	upfileDoc   string
	upfileForce bool
)

var upfileCmd = &cobra.Command{
	Use:   "upfile [flags] SOURCE...",
	Short: "Upload local files",
	Long: `Upload local files into a folder (--dir) or as a named document (--doc).

Files whose target already exists are skipped. With --force the existing
document is checked in as a new major version and its content replaced.
Directories are skipped.`,
	Example: `  nx upfile --dir /default-domain/workspaces/reports q1.pdf q2.pdf
  nx upfile --doc /default-domain/workspaces/reports/annual.pdf -f build/report.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpfile,
}

func init() {
	upfileCmd.Flags().StringVar(&upfileDir, "dir", "", "Folder to upload into")
	upfileCmd.Flags().StringVar(&upfileDoc, "doc", "", "Document path to upload as")
	upfileCmd.Flags().BoolVarP(&upfileForce, "force", "f", false, "Replace existing documents")
	upfileCmd.MarkFlagsMutuallyExclusive("dir", "doc")
	upfileCmd.MarkFlagsOneRequired("dir", "doc")
	rootCmd.AddCommand(upfileCmd)
}

func runUpfile(cmd *cobra.Command, args []string) error {
	if upfileDoc != "" && len(args) != 1 {
		return fmt.Errorf("--doc takes exactly one source file, got %d", len(args))
	}

	target := upfileDir
	if upfileDoc != "" {
		target = upfileDoc
	}
	p, err := docpath.Parse(target)
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	u := upload.New(a.store, afero.NewOsFs(), a.logger)

	if upfileDoc != "" {
		r, err := u.ToDocument(cmd.Context(), p, args[0], upfileForce)
		if r.Source != "" {
			a.out.Uploads([]upload.Result{r})
		}
		return err
	}

	results, err := u.ToFolder(cmd.Context(), p, args, upfileForce)
	a.out.Uploads(results)
	return err
}
