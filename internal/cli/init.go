package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/doclane/internal/infra/fsworkspace"
)

func initCmd() *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a doclane.yaml template into a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			root, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("invalid directory: %w", err)
			}

			res, err := fsworkspace.NewInitializer().Init(root, force)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, p := range res.Written {
				fmt.Fprintf(w, "wrote   %s\n", rel(root, p))
			}
			for _, p := range res.Skipped {
				fmt.Fprintf(w, "kept    %s (use --force to overwrite)\n", rel(root, p))
			}
			return nil
		},
	}

	c.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return c
}

func rel(root, p string) string {
	if r, err := filepath.Rel(root, p); err == nil {
		return r
	}
	return p
}
