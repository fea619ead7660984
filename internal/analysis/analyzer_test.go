package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/llm"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/resilience"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/reviews"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

// scriptedClient replies to successive calls with the queued responses.
type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (c *scriptedClient) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := len(c.prompts)
	c.prompts = append(c.prompts, prompt)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return "{}", nil
}

func (c *scriptedClient) GetModel(llm.ModelTier) string { return "test-model" }
func (c *scriptedClient) Close() error                  { return nil }

// throttledClient runs every call through policy against a provider that always answers 429,
// wrapping failures the way the Gemini client does.
type throttledClient struct {
	policy *resilience.Policy
}

func (c *throttledClient) GenerateContent(ctx context.Context, _ string, _ llm.ModelTier) (string, error) {
	text, err := resilience.Execute(ctx, c.policy, func(context.Context) (string, error) {
		return "", resilience.NewTransientError(errors.New("resource exhausted"), 429)
	})
	if err != nil {
		if llm.IsQuotaError(err) {
			return "", eris.Wrapf(llm.ErrQuotaExceeded, "model test-model: %v", err)
		}
		return "", eris.Wrap(err, "failed to generate content with test-model")
	}
	return text, nil
}

func (c *throttledClient) GetModel(llm.ModelTier) string { return "test-model" }
func (c *throttledClient) Close() error                  { return nil }

const (
	profileJSON  = `{"name":"Luigi's Pizzeria","cuisine":"Pizza","rating":"4.5 stars","reviewCount":"1,024","locations":["Springfield"]}`
	insightsJSON = "```json\n" + `{"keyStrengths":["Wood-fired oven"],"painPoints":["Slow weekend service"],"customerSentiment":{"overall":4.9,"food":4.9,"service":4.9,"ambiance":4.9}}` + "\n```"
	toolsJSON    = `Here you go: {"conversationStarters":["Saw your new location"],"potentialObjections":[{"objection":"Too busy to switch","response":"We migrate overnight."}],"valuePropositions":["Faster table turns"]}`
)

func comprehensiveRequest() *types.AnalyzeRequest {
	reviewsData := []types.ReviewData{
		{Source: "Yelp", Rating: 2, Text: "Slow service, way too expensive, and they got my order wrong. Wrong order twice!"},
		{Source: "Yelp", Rating: 1, Text: "Cash only and the card machine was broken."},
		{Source: "Yelp", Rating: 5, Text: "Delicious food and friendly staff."},
		{Source: "Yelp", Rating: 4, Text: "Great pizza."},
		{Source: "Yelp", Rating: 4, Text: "Nice place."},
		{Source: "Yelp", Rating: 3, Text: "Sixth review, should not be quoted."},
	}
	return &types.AnalyzeRequest{
		ID: "prospect_1_abc",
		ComprehensiveData: &types.ComprehensiveData{
			BasicInfo:    &types.BasicSearchData{Name: "Luigi's Pizzeria"},
			BusinessData: &types.BusinessData{Name: "Luigi's Pizzeria", Phone: "(555) 123-4567"},
			MenuData:     &types.MenuData{Items: []types.MenuItem{{Name: "Margherita", Price: 14.5}}},
			ReviewsData:  reviewsData,
			NewsData:     []types.NewsData{{Title: "Luigi's opens second site"}},
		},
		Sources: []types.DataSource{types.NewSource(types.SourceSearch, "https://luigis.example")},
	}
}

func TestAnalyze_Enhanced(t *testing.T) {
	client := &scriptedClient{responses: []string{profileJSON, insightsJSON, toolsJSON}}
	a := New(client, WithMetrics(observability.NewMetrics("test")), WithProduct("TablePOS"))
	req := comprehensiveRequest()

	resp, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, client.prompts, 3)

	profilePrompt := client.prompts[0]
	assert.Contains(t, profilePrompt, "Business Data:")
	assert.Contains(t, profilePrompt, "Menu Data:")
	assert.Contains(t, profilePrompt, "Customer Reviews (6 reviews):")
	assert.NotContains(t, profilePrompt, "Sixth review")
	assert.Contains(t, profilePrompt, "Recent News:")

	insightsPrompt := client.prompts[1]
	assert.Contains(t, insightsPrompt, "Menu Analysis:")
	assert.Contains(t, insightsPrompt, "Review Analysis:")
	assert.Contains(t, insightsPrompt, "TablePOS")
	assert.Contains(t, insightsPrompt, `"name": "Luigi's Pizzeria"`)

	assert.Contains(t, client.prompts[2], "at least have 5 items")

	assert.Equal(t, "Luigi's Pizzeria", resp.Profile.Name)
	assert.Equal(t, 4.5, resp.Profile.Rating)
	assert.Equal(t, 1024, resp.Profile.ReviewCount)
	assert.False(t, resp.Profile.Failed())

	review := reviews.Analyze(req.ComprehensiveData.ReviewsData)
	assert.Equal(t, append([]string{"Slow weekend service"}, review.PainPoints...), resp.Insights.PainPoints)
	assert.Equal(t, review.OperationalIssues, resp.Insights.OperationalChallenges)
	require.NotNil(t, resp.Insights.CustomerSentiment)
	assert.Equal(t, review.SentimentScores.Overall, resp.Insights.CustomerSentiment.Overall)
	assert.NotEqual(t, 4.9, resp.Insights.CustomerSentiment.Overall)

	objections := resp.SalesTools.PotentialObjections
	require.Len(t, objections, 3)
	assert.Equal(t, "Too busy to switch", objections[0].Objection)
	assert.Contains(t, objections, reviews.CostObjection)
	assert.Contains(t, objections, reviews.CashObjection)
	assert.Contains(t, resp.SalesTools.ValuePropositions, "Faster table turns")
	assert.Contains(t, resp.SalesTools.ValuePropositions, "Multiple payment options and faster checkout process")

	assert.Equal(t, req.Sources, resp.Sources)
}

func TestAnalyze_Basic(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"name":"Blue Fin","priceRange":"$$"}`,
		`{"keyStrengths":["Fresh fish"],"marketPosition":"Neighbourhood favourite"}`,
		`{"conversationStarters":["Hi"]}`,
	}}
	a := New(client)

	resp, err := a.Analyze(context.Background(), &types.AnalyzeRequest{
		ID:         "p",
		SearchData: &types.BasicSearchData{Name: "Blue Fin"},
	})
	require.NoError(t, err)

	require.Len(t, client.prompts, 3)
	assert.Contains(t, client.prompts[0], "Company Data:")
	assert.Contains(t, client.prompts[1], `"name": "Blue Fin"`)

	assert.Equal(t, "Blue Fin", resp.Profile.Name)
	assert.Equal(t, "Neighbourhood favourite", resp.Insights.MarketPosition)
	assert.Nil(t, resp.Insights.CustomerSentiment)
	assert.Equal(t, []string{"Hi"}, resp.SalesTools.ConversationStarters)
	assert.Empty(t, resp.SalesTools.PotentialObjections)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
}

func TestAnalyze_ParseFailureIsNotAnError(t *testing.T) {
	client := &scriptedClient{responses: []string{
		profileJSON,
		"I'm sorry, I can't help with that.",
		toolsJSON,
	}}
	a := New(client)

	resp, err := a.Analyze(context.Background(), comprehensiveRequest())
	require.NoError(t, err)

	assert.True(t, resp.Insights.Failed())
	assert.Equal(t, llm.ParseFailureMessage, resp.Insights.Error)
	assert.True(t, strings.HasPrefix(resp.Insights.RawResponse, "I'm sorry"))
	assert.Empty(t, resp.Insights.PainPoints, "review analysis is not merged into failed insights")
	assert.Nil(t, resp.Insights.CustomerSentiment)
	assert.False(t, resp.SalesTools.Failed())
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client llm.Client
		req    *types.AnalyzeRequest
		want   error
	}{
		{
			name: "no client",
			req:  comprehensiveRequest(),
			want: ErrLLMNotConfigured,
		},
		{
			name:   "no data",
			client: &scriptedClient{},
			req:    &types.AnalyzeRequest{ID: "x"},
			want:   ErrNoSearchData,
		},
		{
			name:   "quota",
			client: &scriptedClient{errs: []error{errors.New("googleapi: Error 429: Resource has been exhausted (e.g. check quota).")}},
			req:    comprehensiveRequest(),
			want:   ErrQuotaExceeded,
		},
		{
			name:   "rate limit wording",
			client: &scriptedClient{errs: []error{nil, errors.New("upstream rate limit hit")}},
			req:    comprehensiveRequest(),
			want:   ErrQuotaExceeded,
		},
		{
			name:   "missing key",
			client: &scriptedClient{errs: []error{eris.Wrap(llm.ErrMissingAPIKey, "client")}},
			req:    comprehensiveRequest(),
			want:   ErrLLMNotConfigured,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := New(tt.client).Analyze(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, eris.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestAnalyze_OpenBreakerIsUnavailable(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.MaxAttempts = 1
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerTimeout = time.Minute
	analyzer := New(&throttledClient{policy: resilience.NewPolicy("gemini", cfg)})

	for i := 0; i < 2; i++ {
		_, err := analyzer.Analyze(context.Background(), comprehensiveRequest())
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrQuotaExceeded), "call %d: %v", i, err)
	}

	_, err := analyzer.Analyze(context.Background(), comprehensiveRequest())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrLLMUnavailable), "got %v", err)
	assert.False(t, eris.Is(err, ErrQuotaExceeded))

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "profile", stageErr.Stage)
}

func TestAnalyze_OtherProviderError(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("connection reset")}}

	_, err := New(client).Analyze(context.Background(), comprehensiveRequest())
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "profile", stageErr.Stage)
	assert.False(t, eris.Is(err, ErrQuotaExceeded))
	assert.False(t, eris.Is(err, ErrLLMNotConfigured))
}

func TestSupplementSalesTools(t *testing.T) {
	review := reviews.Analysis{
		CommonComplaints: []string{"High prices", "Limited payment options"},
		PainPoints:       []string{"Poor customer service and staff attitude"},
	}

	t.Run("tops up short lists without duplicates", func(t *testing.T) {
		tools := types.SalesTools{PotentialObjections: []types.Objection{
			{Objection: reviews.CostObjection.Objection, Response: "Custom answer"},
		}}
		got := SupplementSalesTools(tools, review)
		require.Len(t, got.PotentialObjections, 2)
		assert.Equal(t, "Custom answer", got.PotentialObjections[0].Response)
		assert.Equal(t, reviews.CashObjection, got.PotentialObjections[1])
		assert.Equal(t, []string{"Staff training and customer service improvement through better POS workflow"}, got.ValuePropositions)
	})

	t.Run("leaves full lists alone", func(t *testing.T) {
		full := make([]types.Objection, types.MinObjections)
		got := SupplementSalesTools(types.SalesTools{PotentialObjections: full}, review)
		assert.Len(t, got.PotentialObjections, types.MinObjections)
		assert.Empty(t, got.ValuePropositions)
	})

	t.Run("leaves parse failures alone", func(t *testing.T) {
		failed := types.SalesTools{ParseFailure: types.ParseFailure{Error: "x"}}
		got := SupplementSalesTools(failed, review)
		assert.Empty(t, got.PotentialObjections)
	})
}

func TestMergeReviewAnalysis(t *testing.T) {
	insights := types.BusinessInsights{
		PainPoints:            []string{"model"},
		OperationalChallenges: []string{"model op"},
		CustomerSentiment:     &types.CustomerSentiment{Overall: 1},
	}
	MergeReviewAnalysis(&insights, reviews.Analysis{
		PainPoints:        []string{"review"},
		OperationalIssues: []string{"review op"},
		SentimentScores:   reviews.SentimentScores{Overall: 4.2, Food: 4.5, Service: 3.9, Ambiance: 4},
	})

	assert.Equal(t, []string{"model", "review"}, insights.PainPoints)
	assert.Equal(t, []string{"model op", "review op"}, insights.OperationalChallenges)
	assert.Equal(t, &types.CustomerSentiment{Overall: 4.2, Food: 4.5, Service: 3.9, Ambiance: 4}, insights.CustomerSentiment)
}
