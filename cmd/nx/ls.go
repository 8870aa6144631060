package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/goodtune/nx/internal/docops"
	"github.com/goodtune/nx/internal/docpath"
)

var lsCmd = &cobra.Command{
	Use:   "ls [PATH]",
	Short: "List a document and its children",
	Long: `Print the document at PATH followed by its direct children, one per
line as uid, type and path separated by tabs. PATH defaults to the root.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

var qCmd = &cobra.Command{
	Use:     "q NXQL",
	Short:   "Run an NXQL query",
	Long:    `Run an NXQL query and print every matching document, following all result pages.`,
	Example: `  nx q "SELECT * FROM Document WHERE ecm:primaryType = 'Folder' AND ecm:isTrashed = 0"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runQuery,
}

var mvCmd = &cobra.Command{
	Use:     "mv SRC DSTFOLDER",
	Short:   "Move a document into a folder",
	Example: `  nx mv /default-domain/workspaces/reports/q1.pdf /default-domain/workspaces/archive`,
	Args:    cobra.ExactArgs(2),
	RunE:    runMove,
}

func init() {
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(qCmd)
	rootCmd.AddCommand(mvCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	p := docpath.Root
	if len(args) == 1 {
		var err error
		if p, err = docpath.Parse(args[0]); err != nil {
			return err
		}
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	listing, err := docops.New(a.store, a.logger).List(cmd.Context(), p)
	if err != nil {
		return err
	}
	a.out.Document(*listing.Document)
	a.out.Documents(listing.Children)
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	// Unquoted queries arrive split on spaces.
	nxql := strings.Join(args, " ")
	docs, err := docops.New(a.store, a.logger).Query(cmd.Context(), nxql)
	if err != nil {
		return err
	}
	a.out.Documents(docs)
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	src, err := docpath.Parse(args[0])
	if err != nil {
		return err
	}
	dst, err := docpath.Parse(args[1])
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	doc, err := docops.New(a.store, a.logger).Move(cmd.Context(), src, dst)
	if err != nil {
		return err
	}
	a.out.Document(*doc)
	return nil
}
