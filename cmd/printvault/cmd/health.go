package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"printvault/internal/adapters/cli/styles"
	"printvault/internal/application/commands"
	"printvault/internal/domain"
)

func newHealthCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			storage, err := e.openStorage(ctx)
			if err != nil {
				return err
			}
			result := commands.NewHealthCommand(storage).Execute(ctx)
			r := result.Storage

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", styles.Status(result.Status), styles.MutedText.Render(r.Backend))
			fmt.Fprintf(out, "  %s %s\n", styles.Key.Render("host"), r.Host)
			fmt.Fprintf(out, "  %s %s\n", styles.Key.Render("base"), r.BasePath)
			fmt.Fprintf(out, "  %s %t\n", styles.Key.Render("connected"), r.Connected)
			fmt.Fprintf(out, "  %s %t\n", styles.Key.Render("base exists"), r.BaseDirExists)
			if r.Error != "" {
				fmt.Fprintf(out, "  %s %s\n", styles.ErrorMsg.Render("error"), r.Error)
			}
			if result.Status != domain.HealthOK {
				return fmt.Errorf("storage is %s", result.Status)
			}
			return nil
		},
	}
}
