package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"gl-reconciler/internal/analysis"
	"gl-reconciler/internal/domain"
	"gl-reconciler/internal/infrastructure/config"
	"gl-reconciler/internal/infrastructure/logging"
	"gl-reconciler/internal/ingest"
	"gl-reconciler/internal/recon"
	"gl-reconciler/internal/report"
)

// RunReconcile executes one reconciliation run from the command line.
func RunReconcile(ctx context.Context, cfg *config.Config, flags *ReconcileFlags) error {
	if err := flags.Validate(); err != nil {
		return err
	}
	format, err := report.ParseFormat(flags.Format)
	if err != nil {
		return err
	}

	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "reconcile")

	tol, err := recon.ParseTolerances(cfg.Reconciliation.RoundingTolerance, cfg.Reconciliation.AmountTolerance)
	if err != nil {
		return err
	}

	apiKey := cfg.GetAPIKey(cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	augmenter := analysis.Select(apiKey, cfg.OpenAI.Model, cfg.Reconciliation.AIBatchSize, logger)
	if apiKey == "" {
		logger.Info("no OpenAI API key configured, using statistical analysis")
	}

	excel, err := ingest.LoadCSV(flags.ExcelPath, domain.SourceExcel)
	if err != nil {
		return err
	}

	var sqlDS *domain.Dataset
	sqlSource := flags.SQLPath
	if flags.SQLDBPath != "" {
		sqlSource = flags.SQLDBPath
		sqlDS, err = ingest.LoadSQLite(flags.SQLDBPath, flags.SQLTable)
	} else {
		sqlDS, err = ingest.LoadCSV(flags.SQLPath, domain.SourceSQL)
	}
	if err != nil {
		return err
	}

	PrintHeader(flags.ExcelPath, sqlSource)

	pipeline := recon.NewPipeline(recon.Options{
		Tolerances: &tol,
		Augmenter:  augmenter,
		Logger:     logger,
	})
	rep, err := pipeline.Run(ctx, excel, sqlDS)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if flags.OutPath != "" {
		file, err := os.Create(flags.OutPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", flags.OutPath, err)
		}
		defer file.Close()
		out = file
	}
	if err := report.Write(out, rep, format); err != nil {
		return err
	}

	// Human-readable summary goes to the terminal only when the report
	// itself went to a file.
	if flags.OutPath != "" {
		PrintSummary(rep)
		PrintExcludedRows("Excel", excel.Excluded)
		PrintExcludedRows("SQL", sqlDS.Excluded)
		fmt.Printf("\nReport written to %s\n", flags.OutPath)
	}
	return nil
}
