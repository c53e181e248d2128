package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"printvault/internal/adapters/cli/styles"
	"printvault/internal/application/commands"
	"printvault/internal/domain"
)

func newScanCmd(e *env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "scan [army-id]",
		Short: "Import unit folders into the catalog",
		Long: `Scan one army (the sanitized faction name) or, with --all, every army in the
catalog. New folders become units; file lists follow the remote folders while
hand-edited unit fields are kept.

Examples:
  printvault scan skaven
  printvault scan --all`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return fmt.Errorf("--all takes no army id")
			}
			if !all && len(args) != 1 {
				return fmt.Errorf("expected an army id or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rec, err := e.reconciler(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if all {
				result, err := commands.NewScanAllCommand(rec).Execute(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, styles.Title.Render(result.Message))
				for _, a := range result.Summary.Armies {
					printArmyScan(out, a)
				}
				printScanErrors(out, result.Summary.Errors)
				return nil
			}

			result, err := commands.NewScanArmyCommand(rec, args[0]).Execute(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, styles.Title.Render(result.Message))
			printArmyScan(out, *result.Scan)
			printScanErrors(out, result.Scan.Errors)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "scan every army in the catalog")
	return cmd
}

func printArmyScan(out io.Writer, a domain.ArmyScan) {
	if !a.Changed() {
		return
	}
	fmt.Fprintln(out, styles.Army.Render(a.ArmyID))
	for _, u := range a.Units {
		if u.Change == domain.UnitUnchanged {
			continue
		}
		line := fmt.Sprintf("  %s %s", styles.Change(u.ChangeName), styles.Unit.Render(u.Unit.ID))
		if len(u.FilesAdded) > 0 {
			line += " +" + strings.Join(u.FilesAdded, ", +")
		}
		if len(u.FilesRemoved) > 0 {
			line += " -" + strings.Join(u.FilesRemoved, ", -")
		}
		fmt.Fprintln(out, line)
	}
}

func printScanErrors(out io.Writer, errs []domain.ScanError) {
	for _, e := range errs {
		fmt.Fprintf(out, "%s %s %s: %s\n", styles.ErrorMsg.Render("error"), e.ArmyID, styles.Path.Render(e.Path), e.Error)
	}
}
