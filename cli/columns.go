package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ocarinaa/formweaver/dataset"
)

// ColumnsCmd lists the columns a dataset offers for binding, with a sample
// value from the first row so the user can tell similar columns apart.
func ColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns <data.csv>",
		Short: "List the dataset's bindable columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			table, err := dataset.CSVDecoder{Comma: cfg.Delimiter()}.Decode(args[0])
			if err != nil {
				return err
			}
			name := color.New(color.FgCyan, color.Bold)
			sample := color.New(color.Faint)
			out := cmd.OutOrStdout()
			for _, col := range table.Columns {
				fmt.Fprintf(out, "%s", name.Sprint(col))
				if v, ok := table.Rows[0].Value(col); ok {
					fmt.Fprintf(out, "  %s", sample.Sprintf("e.g. %q", v))
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%d column(s), %d row(s)\n", len(table.Columns), len(table.Rows))
			return nil
		},
	}
}
