package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gl-reconciler/internal/domain"
)

// fakeOpenAIClient scripts replies (or errors) per call.
type fakeOpenAIClient struct {
	replies []string
	errs    []error
	calls   int
	lastReq ChatCompletionRequest
}

func (f *fakeOpenAIClient) CreateChatCompletion(_ context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	f.lastReq = req
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	reply := "{}"
	if idx < len(f.replies) {
		reply = f.replies[idx]
	}
	return &ChatCompletionResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: reply}}},
	}, nil
}

func makeDiscrepancies(n int) []domain.Discrepancy {
	ds := make([]domain.Discrepancy, 0, n)
	for i := 0; i < n; i++ {
		ds = append(ds, disc(domain.KindAmountMismatch, fmt.Sprintf("R%d", i), "1000", "50.00"))
	}
	return ds
}

func TestAIAugmenter_Success(t *testing.T) {
	client := &fakeOpenAIClient{
		replies: []string{`{"patterns":[{"label":"amount drift on account 1000","count":3}],"recommendations":["Review account 1000 postings."]}`},
	}
	a := NewAIAugmenter(client, "gpt-4o-mini", 100, nil)

	got, err := a.Analyze(context.Background(), makeDiscrepancies(3))
	require.NoError(t, err)

	assert.Equal(t, "ai", got.Source)
	assert.True(t, got.AIUsed)
	require.Len(t, got.Patterns, 1)
	assert.Equal(t, "amount drift on account 1000", got.Patterns[0].Label)
	assert.Equal(t, 3, got.Patterns[0].Count)
	assert.Equal(t, []string{"Review account 1000 postings."}, got.Recommendations)

	// The request carries the configured model, the fixed template and a
	// JSON discrepancy payload.
	assert.Equal(t, "gpt-4o-mini", client.lastReq.Model)
	require.Len(t, client.lastReq.Messages, 2)
	assert.Contains(t, client.lastReq.Messages[0].Content, "forensic accountant")
	assert.Contains(t, client.lastReq.Messages[1].Content, `"AMOUNT_MISMATCH"`)
}

func TestAIAugmenter_BatchesBoundedAtBatchSize(t *testing.T) {
	reply := `{"patterns":[{"label":"p","count":1}],"recommendations":["r"]}`
	client := &fakeOpenAIClient{replies: []string{reply, reply, reply}}
	a := NewAIAugmenter(client, "gpt-4o-mini", 100, nil)

	_, err := a.Analyze(context.Background(), makeDiscrepancies(250))
	require.NoError(t, err)

	assert.Equal(t, 3, client.calls) // 100 + 100 + 50
}

func TestAIAugmenter_AllCallsFail(t *testing.T) {
	boom := errors.New("connection refused")
	client := &fakeOpenAIClient{errs: []error{boom, boom, boom}}
	a := NewAIAugmenter(client, "gpt-4o-mini", 100, nil)

	got, err := a.Analyze(context.Background(), makeDiscrepancies(250))
	require.NoError(t, err, "AI failure must never fail the run")

	assert.False(t, got.AIUsed)
	assert.Equal(t, "statistical", got.Source)
	assert.NotEmpty(t, got.Patterns, "statistical patterns must still be present")
	assert.NotEmpty(t, got.Recommendations)
}

func TestAIAugmenter_PartialFailureDegradesPerBatch(t *testing.T) {
	reply := `{"patterns":[{"label":"ai pattern","count":100}],"recommendations":["ai rec"]}`
	client := &fakeOpenAIClient{
		replies: []string{reply},
		errs:    []error{nil, errors.New("timeout")},
	}
	a := NewAIAugmenter(client, "gpt-4o-mini", 100, nil)

	got, err := a.Analyze(context.Background(), makeDiscrepancies(200))
	require.NoError(t, err)

	assert.True(t, got.AIUsed)
	assert.Equal(t, "ai+statistical", got.Source)

	labels := make(map[string]bool)
	for _, p := range got.Patterns {
		labels[p.Label] = true
	}
	assert.True(t, labels["ai pattern"])
	assert.True(t, labels["AMOUNT_MISMATCH discrepancies"], "failed batch falls back to statistics")
}

func TestAIAugmenter_MalformedReplyRepaired(t *testing.T) {
	// Markdown fences and trailing commas are the common LLM defects;
	// json-repair handles both.
	client := &fakeOpenAIClient{
		replies: []string{"```json\n{\"patterns\": [{\"label\": \"p\", \"count\": 1},], \"recommendations\": [\"r\"],}\n```"},
	}
	a := NewAIAugmenter(client, "gpt-4o-mini", 100, nil)

	got, err := a.Analyze(context.Background(), makeDiscrepancies(1))
	require.NoError(t, err)
	assert.True(t, got.AIUsed)
	require.Len(t, got.Patterns, 1)
	assert.Equal(t, "p", got.Patterns[0].Label)
}

func TestAIAugmenter_UnusableReplyFallsBack(t *testing.T) {
	client := &fakeOpenAIClient{replies: []string{"I could not find any structure here."}}
	a := NewAIAugmenter(client, "gpt-4o-mini", 100, nil)

	got, err := a.Analyze(context.Background(), makeDiscrepancies(2))
	require.NoError(t, err)
	assert.False(t, got.AIUsed)
	assert.Equal(t, "statistical", got.Source)
}

func TestAIAugmenter_EmptyModelDefaults(t *testing.T) {
	reply := `{"patterns":[{"label":"p","count":1}],"recommendations":["r"]}`
	client := &fakeOpenAIClient{replies: []string{reply}}
	a := NewAIAugmenter(client, "", 100, nil)

	_, err := a.Analyze(context.Background(), makeDiscrepancies(1))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", client.lastReq.Model)
}

func TestAIAugmenter_EmptyInput(t *testing.T) {
	client := &fakeOpenAIClient{}
	a := NewAIAugmenter(client, "gpt-4o-mini", 100, nil)

	got, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, got.AIUsed)
	assert.Zero(t, client.calls, "no discrepancies means no AI call")
}

func TestParseReply(t *testing.T) {
	t.Run("valid reply", func(t *testing.T) {
		reply, err := parseReply(`{"patterns":[{"label":"x","count":2}],"recommendations":[]}`)
		require.NoError(t, err)
		assert.Equal(t, 2, reply.Patterns[0].Count)
	})

	t.Run("pattern without label rejected", func(t *testing.T) {
		_, err := parseReply(`{"patterns":[{"count":2}],"recommendations":[]}`)
		require.Error(t, err)
	})

	t.Run("empty object rejected", func(t *testing.T) {
		_, err := parseReply(`{}`)
		require.Error(t, err)
	})
}

func TestSelect(t *testing.T) {
	t.Run("no key selects statistical", func(t *testing.T) {
		a := Select("", "gpt-4o-mini", 100, nil)
		_, ok := a.(*StatisticalAugmenter)
		assert.True(t, ok)
	})

	t.Run("key selects AI", func(t *testing.T) {
		a := Select("sk-test", "gpt-4o-mini", 100, nil)
		_, ok := a.(*AIAugmenter)
		assert.True(t, ok)
	})
}
