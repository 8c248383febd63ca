package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fireant/internal/declarative"
)

func newValidateCmd() *cobra.Command {
	var allowUnknown bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a dataset catalog without connecting to a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0]) //nolint:gosec // user-specified catalog
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			doc, err := declarative.Parse(data, declarative.LoadOptions{AllowUnknownFields: allowUnknown})
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			w := cmd.OutOrStdout()
			errs := declarative.Validate(doc)
			for _, e := range errs {
				fmt.Fprintf(w, "%s %s\n", color.RedString("✗"), e.Error()) //nolint:errcheck
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d validation error(s) in %s", len(errs), args[0])
			}
			fmt.Fprintf(w, "%s %s: %d dataset(s), %d blend(s)\n", //nolint:errcheck
				color.GreenString("✓"), args[0], len(doc.Datasets), len(doc.Blends))
			return nil
		},
	}
	cmd.Flags().BoolVar(&allowUnknown, "allow-unknown-fields", false, "Ignore keys the catalog schema does not define")
	return cmd
}
