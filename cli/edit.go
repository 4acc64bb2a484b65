package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ocarinaa/formweaver/dataset"
	"github.com/ocarinaa/formweaver/observability"
	"github.com/ocarinaa/formweaver/placement"
	"github.com/ocarinaa/formweaver/raster"
	"github.com/ocarinaa/formweaver/tui"
)

// The logical width, in pixels, the placement surface is sized against.
// Matches a typical embedding container so saved layouts transfer.
const editorContainerWidth = 900

// EditCmd opens the interactive placement editor against pre-rendered page
// previews and saves the finalized layout.
func EditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <previews-dir> <data.csv>",
		Short: "Place fields on the template pages interactively",
		Long: `Opens a keyboard-driven editor over the template's page previews
(one image per page, rendered by any external rasterizer). Fields are bound
to the dataset's columns; the finished layout is written as YAML for the
synthesize command.`,
		Args: cobra.ExactArgs(2),
		RunE: runEdit,
	}
	cmd.Flags().StringP("layout", "l", "layout.yaml", "Where to write the finalized layout")
	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	previewDir, dataPath := args[0], args[1]
	cfg, log, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	previews, err := raster.OpenDir(previewDir)
	if err != nil {
		return err
	}
	table, err := dataset.CSVDecoder{Comma: cfg.Delimiter()}.Decode(dataPath)
	if err != nil {
		return err
	}

	editor := tui.NewEditor(previews, table.Columns, editorContainerWidth, log)
	if _, err := tea.NewProgram(editor, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	layout, warnings, ok := editor.Result()
	if !ok {
		return fmt.Errorf("editing aborted, layout not saved")
	}
	for _, w := range warnings {
		log.Warn("layout", observability.String("detail", w))
	}
	layoutPath, _ := cmd.Flags().GetString("layout")
	if err := placement.SaveLayout(layout, layoutPath); err != nil {
		return err
	}
	log.Info("layout saved",
		observability.String("path", layoutPath),
		observability.Int("fields", len(layout.Fields)))
	return nil
}
