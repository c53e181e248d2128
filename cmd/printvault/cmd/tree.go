package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"printvault/internal/adapters/cli/styles"
	"printvault/internal/application/commands"
	"printvault/internal/domain"
)

func newTreeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Display the catalog as allegiance, army and unit tree",
		Long: `Display the catalog grouped by allegiance.

Example:
  printvault tree`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			catalog, err := e.catalog(ctx)
			if err != nil {
				return err
			}
			armies, err := commands.NewListArmiesCommand(catalog).Execute(ctx)
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), armies)
			return nil
		},
	}
}

func printTree(out io.Writer, armies []domain.Army) {
	if len(armies) == 0 {
		fmt.Fprintln(out, styles.MutedText.Render("catalog is empty"))
		return
	}
	byAllegiance := make(map[string][]domain.Army)
	for _, a := range armies {
		byAllegiance[a.Allegiance] = append(byAllegiance[a.Allegiance], a)
	}
	allegiances := make([]string, 0, len(byAllegiance))
	for k := range byAllegiance {
		allegiances = append(allegiances, k)
	}
	slices.Sort(allegiances)

	for _, al := range allegiances {
		fmt.Fprintln(out, styles.Allegiance.Render(al))
		group := byAllegiance[al]
		slices.SortFunc(group, func(a, b domain.Army) int { return strings.Compare(a.ID, b.ID) })
		for _, a := range group {
			fmt.Fprintf(out, "  %s\n", styles.Army.Render(a.ID))
			for _, u := range a.Units {
				line := fmt.Sprintf("    %s %s", styles.Unit.Render(u.ID), styles.MutedText.Render(fmt.Sprintf("%d file(s)", len(u.StlFiles))))
				if u.PreviewImage != "" {
					line += " " + styles.Preview.Render("preview")
				}
				fmt.Fprintln(out, line)
			}
		}
	}
}
