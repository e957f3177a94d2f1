package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"gl-reconciler/internal/domain"
)

const systemPrompt = "You are a forensic accountant specializing in financial data reconciliation. Always respond with valid JSON."

const promptTemplate = `Analyze the following general-ledger reconciliation discrepancies.
Identify recurring patterns (by account, amount band, date drift or discrepancy kind)
and recommend follow-up actions for the accounting team.

Respond with a JSON object of this exact shape:
{"patterns": [{"label": "<short pattern description>", "count": <supporting discrepancy count>}],
 "recommendations": ["<actionable recommendation>"]}

DISCREPANCIES (%d of %d total):
%s`

// aiReply is the structured reply expected from the model.
type aiReply struct {
	Patterns        []domain.Pattern `json:"patterns"`
	Recommendations []string         `json:"recommendations"`
}

// batchRow is the compact discrepancy view sent to the model.
type batchRow struct {
	Kind        string `json:"kind"`
	Reference   string `json:"reference"`
	Account     string `json:"account,omitempty"`
	ExcelAmount string `json:"excel_amount,omitempty"`
	SQLAmount   string `json:"sql_amount,omitempty"`
	Delta       string `json:"delta"`
	Detail      string `json:"detail"`
}

// AIAugmenter sends discrepancies to OpenAI in bounded batches. A batch
// whose call or reply fails degrades to the statistical path for that batch;
// when every batch fails the whole analysis comes from the fallback.
type AIAugmenter struct {
	client    OpenAIClient
	model     string
	batchSize int
	fallback  *StatisticalAugmenter
	logger    *slog.Logger
}

// NewAIAugmenter creates an AI-backed augmenter using the given model and
// batch size.
func NewAIAugmenter(client OpenAIClient, model string, batchSize int, logger *slog.Logger) *AIAugmenter {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AIAugmenter{
		client:    client,
		model:     model,
		batchSize: batchSize,
		fallback:  NewStatisticalAugmenter(),
		logger:    logger,
	}
}

// Analyze implements the Augmenter contract. It never returns an error for
// AI-side failures; the result degrades instead.
func (a *AIAugmenter) Analyze(ctx context.Context, discrepancies []domain.Discrepancy) (*domain.Analysis, error) {
	if len(discrepancies) == 0 {
		return &domain.Analysis{Source: "ai", AIUsed: true}, nil
	}

	patternCounts := make(map[string]int)
	var recommendations []string
	seenRec := make(map[string]bool)
	var failed []domain.Discrepancy
	succeeded := 0

	for start := 0; start < len(discrepancies); start += a.batchSize {
		end := start + a.batchSize
		if end > len(discrepancies) {
			end = len(discrepancies)
		}
		batch := discrepancies[start:end]

		reply, err := a.analyzeBatch(ctx, batch, len(discrepancies))
		if err != nil {
			a.logger.Warn("AI analysis failed for batch, degrading to statistical path",
				"batch_start", start, "batch_size", len(batch), "error", err.Error())
			failed = append(failed, batch...)
			continue
		}
		succeeded++
		for _, p := range reply.Patterns {
			patternCounts[p.Label] += p.Count
		}
		for _, r := range reply.Recommendations {
			if !seenRec[r] {
				seenRec[r] = true
				recommendations = append(recommendations, r)
			}
		}
	}

	if succeeded == 0 {
		stats, err := a.fallback.Analyze(ctx, discrepancies)
		if err != nil {
			return nil, err
		}
		stats.Source = "statistical"
		stats.AIUsed = false
		return stats, nil
	}

	result := &domain.Analysis{
		Source:          "ai",
		AIUsed:          true,
		Patterns:        sortedPatterns(patternCounts),
		Recommendations: recommendations,
	}

	if len(failed) > 0 {
		stats, err := a.fallback.Analyze(ctx, failed)
		if err == nil {
			result.Source = "ai+statistical"
			result.Patterns = append(result.Patterns, stats.Patterns...)
			for _, r := range stats.Recommendations {
				if !seenRec[r] {
					seenRec[r] = true
					result.Recommendations = append(result.Recommendations, r)
				}
			}
		}
	}
	return result, nil
}

func (a *AIAugmenter) analyzeBatch(ctx context.Context, batch []domain.Discrepancy, total int) (*aiReply, error) {
	rows := make([]batchRow, 0, len(batch))
	for _, d := range batch {
		row := batchRow{
			Kind:      string(d.Kind),
			Reference: d.Reference,
			Delta:     d.AmountDelta.StringFixed(2),
			Detail:    d.Detail,
		}
		if d.Excel != nil {
			row.Account = d.Excel.Account
			row.ExcelAmount = d.Excel.Amount.StringFixed(2)
		}
		if d.SQL != nil {
			if row.Account == "" {
				row.Account = d.SQL.Account
			}
			row.SQLAmount = d.SQL.Amount.StringFixed(2)
		}
		rows = append(rows, row)
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}

	request := ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.1,
		MaxTokens:   2000,
		ResponseFormat: &ResponseFormat{
			Type: "json_object",
		},
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(promptTemplate, len(batch), total, string(payload))},
		},
	}

	response, err := a.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return parseReply(response.Choices[0].Message.Content)
}

// parseReply validates the structured reply, repairing the common LLM JSON
// defects (markdown fences, trailing commas, single quotes) first.
func parseReply(content string) (*aiReply, error) {
	repaired, err := jsonrepair.RepairJSON(strings.TrimSpace(content))
	if err != nil {
		return nil, fmt.Errorf("failed to repair AI reply: %w", err)
	}

	var reply aiReply
	if err := json.Unmarshal([]byte(repaired), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse AI reply: %w", err)
	}
	if len(reply.Patterns) == 0 && len(reply.Recommendations) == 0 {
		return nil, fmt.Errorf("AI reply carried no patterns or recommendations")
	}
	for _, p := range reply.Patterns {
		if p.Label == "" {
			return nil, fmt.Errorf("AI reply carried a pattern without a label")
		}
	}
	return &reply, nil
}

func sortedPatterns(counts map[string]int) []domain.Pattern {
	patterns := make([]domain.Pattern, 0, len(counts))
	for label, count := range counts {
		patterns = append(patterns, domain.Pattern{Label: label, Count: count})
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Label < patterns[j].Label
	})
	return patterns
}
