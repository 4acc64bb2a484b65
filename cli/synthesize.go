package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ocarinaa/formweaver/archive"
	"github.com/ocarinaa/formweaver/coords"
	"github.com/ocarinaa/formweaver/dataset"
	"github.com/ocarinaa/formweaver/observability"
	"github.com/ocarinaa/formweaver/placement"
	"github.com/ocarinaa/formweaver/qr"
	"github.com/ocarinaa/formweaver/recovery"
	"github.com/ocarinaa/formweaver/synth"
)

// SynthesizeCmd runs a batch: template + layout + dataset in, zip of
// documents out.
func SynthesizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synthesize <template.pdf> <layout.yaml> <data.csv>",
		Short: "Produce one document per dataset row into a zip archive",
		Args:  cobra.ExactArgs(3),
		RunE:  runSynthesize,
	}
	cmd.Flags().StringP("out", "o", "", "Output archive path (default: <template>.zip)")
	return cmd
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	templatePath, layoutPath, dataPath := args[0], args[1], args[2]
	cfg, log, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	template, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}
	layout, err := placement.LoadLayout(layoutPath)
	if err != nil {
		return err
	}
	table, err := dataset.CSVDecoder{Comma: cfg.Delimiter()}.Decode(dataPath)
	if err != nil {
		return err
	}
	log.Info("batch loaded",
		observability.Int("fields", len(layout.Fields)),
		observability.Int("rows", len(table.Rows)))

	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		outPath = strings.TrimSuffix(templatePath, filepath.Ext(templatePath)) + ".zip"
	}
	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("output archive: %w", err)
	}
	defer outFile.Close()

	builder := archive.NewBuilder(outFile, filepath.Base(templatePath))
	strategy := strategyFor(cfg)
	engine := &synth.Engine{
		Opener:   pdfOpener{},
		Fonts:    fontCache(cfg),
		Codes:    qr.Renderer{},
		Strategy: strategy,
		Log:      log,
		Options:  coords.Options{BaselineFactor: cfg.BaselineFactor},
	}

	// A failed batch must not leave a partial archive behind.
	discard := func() {
		outFile.Close()
		os.Remove(outPath)
	}

	req := synth.Request{Template: template, Layout: layout, Table: table}
	res, err := engine.Run(cmd.Context(), req, builder)
	if err != nil {
		discard()
		return err
	}
	if err := builder.Close(); err != nil {
		discard()
		return fmt.Errorf("finalize archive: %w", err)
	}

	if lenient, ok := strategy.(*recovery.LenientStrategy); ok {
		for _, e := range lenient.Errors {
			log.Warn("recovered", observability.Error("cause", e))
		}
	}
	archiveBytes := int64(0)
	if info, err := outFile.Stat(); err == nil {
		archiveBytes = info.Size()
	}
	log.Info("archive written",
		observability.String("path", outPath),
		observability.Float64(observability.MetricArchiveBytes, float64(archiveBytes)),
		observability.Int("documents", res.Produced),
		observability.Int("rows.skipped", len(res.RowsSkipped)),
		observability.Int("fields.skipped", res.FieldsSkipped))
	if res.Produced == 0 {
		discard()
		return fmt.Errorf("no documents produced from %d rows", len(table.Rows))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d document(s)\n", outPath, res.Produced)
	return nil
}
