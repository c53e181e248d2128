package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"printvault/internal/adapters/backends"
	"printvault/internal/adapters/cli/styles"
	"printvault/internal/application/commands"
	"printvault/internal/domain"
)

func newUploadCmd(e *env) *cobra.Command {
	var preview string
	cmd := &cobra.Command{
		Use:   "upload <allegiance> <faction> <unit> [files...]",
		Short: "Upload STL files and a preview to a unit folder",
		Long: `Upload files to allegiance/faction/unit. Labels are sanitized into folder
names; the preview is stored as preview.jpg.

Examples:
  printvault upload Chaos Skaven Clanrats troop.stl command.stl --preview photo.jpg
  printvault upload "Order" "Stormcast Eternals" Liberators liberators.zip`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var pv *commands.UploadFile
			if preview != "" {
				f, err := localFile(preview, domain.PreviewFileName)
				if err != nil {
					return err
				}
				pv = &f
			}
			stls := make([]commands.UploadFile, 0, len(args)-3)
			for _, p := range args[3:] {
				f, err := localFile(p, filepath.Base(p))
				if err != nil {
					return err
				}
				stls = append(stls, f)
			}

			opts, err := backends.UploadOptions(e.cfg.Upload)
			if err != nil {
				return err
			}
			storage, err := e.storage(ctx)
			if err != nil {
				return err
			}
			result, err := commands.NewUploadCommand(storage, opts, args[0], args[1], args[2], pv, stls).Execute(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styles.Success.Render(result.Message))
			if result.Preview != nil {
				fmt.Fprintf(out, "  %s %s\n", styles.Preview.Render(domain.PreviewFileName), styles.Path.Render(*result.Preview))
			}
			for _, f := range result.StlFiles {
				fmt.Fprintf(out, "  %s %s %s\n", f.Name, f.Size, styles.Path.Render(f.Path))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&preview, "preview", "", "preview image")
	return cmd
}

func localFile(p, name string) (commands.UploadFile, error) {
	info, err := os.Stat(p)
	if err != nil {
		return commands.UploadFile{}, err
	}
	if info.IsDir() {
		return commands.UploadFile{}, fmt.Errorf("%s is a directory", p)
	}
	return commands.UploadFile{
		Name: name,
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(p) },
	}, nil
}

func newFilesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "files <allegiance> <faction> <unit>",
		Short: "List the files of a unit folder",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			storage, err := e.storage(ctx)
			if err != nil {
				return err
			}
			result, err := commands.NewListFilesCommand(storage, args[0], args[1], args[2]).Execute(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !result.Exists {
				fmt.Fprintf(out, "%s does not exist\n", styles.Path.Render(result.FolderPath))
				return nil
			}
			fmt.Fprintln(out, styles.Title.Render(result.FolderPath))
			for _, f := range result.Files {
				name := f.Name
				if f.IsPreview {
					name = styles.Preview.Render(name)
				}
				fmt.Fprintf(out, "  %s %s\n", name, styles.MutedText.Render(f.Size))
			}
			return nil
		},
	}
}

func newDownloadCmd(e *env) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <allegiance> <faction> <unit> <file>",
		Short: "Download one file of a unit folder",
		Long: `Download one file. A file stored compressed (troop.stl.xz) is returned
decompressed when asked for by its plain name.

Use -o - to write to stdout.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			storage, err := e.storage(ctx)
			if err != nil {
				return err
			}
			result, err := commands.NewDownloadCommand(storage, backends.StoredNameCompressor(e.cfg.Upload), args[0], args[1], args[2], args[3]).Execute(ctx)
			if err != nil {
				return err
			}
			defer result.Body.Close()

			if output == "-" {
				_, err := io.Copy(cmd.OutOrStdout(), result.Body)
				return err
			}
			if output == "" {
				output = result.FileName
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			n, err := io.Copy(f, result.Body)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", styles.Success.Render("saved"), output, domain.HumanSize(n))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: the file name)")
	return cmd
}

func newRmCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <allegiance> <faction> <unit> <file>",
		Short: "Delete one file of a unit folder",
		Long: `Delete one stored file. The catalog is not changed; run scan afterwards to
drop the entry from the unit record.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			storage, err := e.storage(ctx)
			if err != nil {
				return err
			}
			result, err := commands.NewDeleteFileCommand(storage, backends.StoredNameCompressor(e.cfg.Upload), args[0], args[1], args[2], args[3]).Execute(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <allegiance> <faction> <unit>",
		Short: "Print the folder a unit is stored in",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ResolvePath(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}
