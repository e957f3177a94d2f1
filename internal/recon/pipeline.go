package recon

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gl-reconciler/internal/analysis"
	"gl-reconciler/internal/domain"
)

// Pipeline runs the synchronous reconciliation flow:
// match -> classify -> augment -> report.
//
// Datasets and the resulting discrepancy collection are constructed once and
// read-only thereafter; only the augmenter's AI call may block on I/O.
type Pipeline struct {
	classifier *Classifier
	augmenter  analysis.Augmenter
	cache      *ReportCache
	logger     *slog.Logger
}

// Options configures a Pipeline. Zero values fall back to defaults: standard
// tolerances, the statistical augmenter, no cache.
type Options struct {
	Tolerances *Tolerances
	Augmenter  analysis.Augmenter
	Cache      *ReportCache
	Logger     *slog.Logger
}

// NewPipeline creates a reconciliation pipeline.
func NewPipeline(opts Options) *Pipeline {
	tol := DefaultTolerances()
	if opts.Tolerances != nil {
		tol = *opts.Tolerances
	}
	augmenter := opts.Augmenter
	if augmenter == nil {
		augmenter = analysis.NewStatisticalAugmenter()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		classifier: NewClassifier(tol),
		augmenter:  augmenter,
		cache:      opts.Cache,
		logger:     logger,
	}
}

// Run reconciles the two datasets and produces the report. When a cache is
// configured and both inputs fingerprint to a previous run, the cached
// report is returned as-is.
func (p *Pipeline) Run(ctx context.Context, excel, sql *domain.Dataset) (*domain.ReconciliationReport, error) {
	start := time.Now()

	var fingerprint string
	if p.cache != nil {
		fingerprint = Fingerprint(excel, sql)
		if cached, found := p.cache.Get(fingerprint); found {
			p.logger.Debug("returning cached report", "fingerprint", fingerprint[:12])
			return cached, nil
		}
	}

	match := Match(excel, sql)
	p.logger.Info("matching complete",
		"excel_rows", len(excel.Records),
		"sql_rows", len(sql.Records),
		"matched", len(match.Pairs),
		"excel_only", len(match.ExcelOnly),
		"sql_only", len(match.SQLOnly))

	discrepancies := make([]domain.Discrepancy, 0, len(match.ExcelOnly)+len(match.SQLOnly))
	for _, pair := range match.Pairs {
		if d := p.classifier.Classify(pair); d.Kind != domain.KindNone {
			discrepancies = append(discrepancies, d)
		}
	}
	for _, rec := range match.ExcelOnly {
		discrepancies = append(discrepancies, p.classifier.ClassifyMissing(rec, domain.SourceExcel))
	}
	for _, rec := range match.SQLOnly {
		discrepancies = append(discrepancies, p.classifier.ClassifyMissing(rec, domain.SourceSQL))
	}

	result, err := p.augmenter.Analyze(ctx, discrepancies)
	if err != nil {
		// The statistical path has no failure modes worth aborting for;
		// degrade to an empty analysis rather than fail the run.
		p.logger.Warn("analysis failed", "error", err.Error())
		result = &domain.Analysis{Source: "statistical"}
	}

	report := &domain.ReconciliationReport{
		Summary:       p.buildSummary(excel, sql, match, discrepancies, result, start),
		Discrepancies: discrepancies,
		Analysis:      *result,
	}

	if p.cache != nil {
		p.cache.Set(fingerprint, report)
	}
	return report, nil
}

func (p *Pipeline) buildSummary(excel, sql *domain.Dataset, match MatchResult, discrepancies []domain.Discrepancy, result *domain.Analysis, start time.Time) domain.Summary {
	counts := make(map[domain.Kind]int)
	for _, d := range discrepancies {
		counts[d.Kind]++
	}

	accuracy := 100.0
	if len(excel.Records) > 0 {
		accuracy = float64(len(excel.Records)-len(discrepancies)) / float64(len(excel.Records)) * 100
		if accuracy < 0 {
			accuracy = 0
		}
	}

	return domain.Summary{
		RunID:         uuid.New().String(),
		ExcelRows:     len(excel.Records),
		SQLRows:       len(sql.Records),
		ExcelExcluded: len(excel.Excluded),
		SQLExcluded:   len(sql.Excluded),
		Matched:       len(match.Pairs),
		Discrepancies: len(discrepancies),
		CountsByKind:  counts,
		AccuracyPct:   accuracy,
		Elapsed:       time.Since(start),
		AIUnavailable: !result.AIUsed,
	}
}
