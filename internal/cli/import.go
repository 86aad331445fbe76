package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cardfile/cardfile/internal/contact"
	"github.com/cardfile/cardfile/internal/importer"
	"github.com/cardfile/cardfile/internal/service"
	"github.com/cardfile/cardfile/internal/vcard"
)

var (
	importExecute    bool
	importCreateNew  bool
	importUpdateDups bool
	importAliasFile  string
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Preview or apply a contact import from a tabular file",
	Long: `Import reads a CSV or tab-separated file, shows what an import would
do, and with --execute applies it in one transaction.

Without --execute nothing is written. With --execute, rows are
resolved from the flags: unmatched rows are created when --create-new
is set, rows matched to an existing contact are updated when
--update-duplicates is set, and everything else is skipped. If any
row fails, the whole import rolls back.

Example:
  cardfile import contacts.csv
  cardfile import contacts.csv --execute
  cardfile import contacts.csv --execute --update-duplicates`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importExecute, "execute", false, "apply the import (default is preview only)")
	importCmd.Flags().BoolVar(&importCreateNew, "create-new", true, "create contacts for rows without a duplicate match")
	importCmd.Flags().BoolVar(&importUpdateDups, "update-duplicates", false, "update the matched contact for duplicate rows")
	importCmd.Flags().StringVar(&importAliasFile, "aliases", "", "YAML header alias file (overrides IMPORT_ALIAS_FILE)")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := contact.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	aliasPath := cfg.Import.AliasFile
	if importAliasFile != "" {
		aliasPath = importAliasFile
	}
	aliases, err := importer.LoadFieldAliases(aliasPath)
	if err != nil {
		return fmt.Errorf("load field aliases: %w", err)
	}

	svc := service.NewImportService(store, aliases, vcard.Encode, slog.Default())

	result, err := svc.Preview(ctx, string(data))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printPreview(out, args[0], result)

	if !importExecute {
		fmt.Fprintln(out, "\nPreview only; rerun with --execute to apply.")
		return nil
	}

	decisions := buildDecisions(result.Candidates, result.Duplicates, importCreateNew, importUpdateDups)
	outcome, err := svc.Execute(ctx, result.Candidates, decisions)
	if err != nil {
		return err
	}

	printOutcome(out, outcome)
	if !outcome.Success {
		return fmt.Errorf("import rolled back: %d row(s) failed", len(outcome.Failures))
	}
	return nil
}

// buildDecisions resolves every candidate row from the import flags.
// Matched rows update their existing contact only when
// updateDuplicates is set; unmatched rows are created only when
// createNew is set; everything else is an explicit skip.
func buildDecisions(candidates []importer.CandidateRecord, duplicates []importer.DuplicateMatch, createNew, updateDuplicates bool) []importer.ImportDecision {
	matched := make(map[int]string, len(duplicates))
	for _, d := range duplicates {
		matched[d.Candidate.RowNumber] = d.ExistingID
	}

	decisions := make([]importer.ImportDecision, 0, len(candidates))
	for _, c := range candidates {
		decision := importer.ImportDecision{RowNumber: c.RowNumber, Action: importer.ActionSkip}
		if existingID, ok := matched[c.RowNumber]; ok {
			if updateDuplicates {
				decision.Action = importer.ActionUpdate
				decision.ExistingID = existingID
			}
		} else if createNew {
			decision.Action = importer.ActionCreate
		}
		decisions = append(decisions, decision)
	}
	return decisions
}

func printPreview(w io.Writer, filename string, result service.PreviewResult) {
	fmt.Fprintf(w, "%s: %d candidate row(s)\n", filename, len(result.Candidates))

	if len(result.Diagnostics.Errors) > 0 {
		fmt.Fprintf(w, "\nParse errors (%d):\n", len(result.Diagnostics.Errors))
		for _, msg := range result.Diagnostics.Errors {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
	if len(result.Diagnostics.Warnings) > 0 {
		fmt.Fprintf(w, "\nFile warnings (%d):\n", len(result.Diagnostics.Warnings))
		for _, msg := range result.Diagnostics.Warnings {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
	if len(result.Duplicates) > 0 {
		fmt.Fprintf(w, "\nPossible duplicates (%d):\n", len(result.Duplicates))
		for _, d := range result.Duplicates {
			fmt.Fprintf(w, "  row %d: %s matches contact %s (%s, %s confidence)\n",
				d.Candidate.RowNumber, rowLabel(d.Candidate), d.ExistingID, d.MatchType, d.Confidence)
		}
	}
	if len(result.Findings) > 0 {
		fmt.Fprintf(w, "\nField warnings (%d):\n", len(result.Findings))
		for _, f := range result.Findings {
			fmt.Fprintf(w, "  row %d %s: %s\n", f.Row, f.Field, f.Message)
		}
	}
}

func printOutcome(w io.Writer, outcome importer.ImportOutcome) {
	fmt.Fprintf(w, "\nCreated %d, updated %d, skipped %d\n",
		outcome.Created, outcome.Updated, outcome.Skipped)
	for _, f := range outcome.Failures {
		fmt.Fprintf(w, "  row %d failed: %s\n", f.RowNumber, f.Message)
	}
}

// rowLabel picks the most recognizable field of a candidate for
// status lines.
func rowLabel(c importer.CandidateRecord) string {
	switch {
	case c.FullName != "":
		return c.FullName
	case c.Email != "":
		return c.Email
	default:
		return c.Phone
	}
}
