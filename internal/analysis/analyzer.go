// Package analysis turns collected prospect data into a profile, business insights and sales
// tools by prompting a language model in three dependent stages.
package analysis

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/llm"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/prompts"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/reviews"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/schemas"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

// DefaultProduct is the product pitched in the insights and sales tools prompts.
const DefaultProduct = "StoreHub"

// maxPromptReviews caps the reviews quoted verbatim in the profile prompt.
const maxPromptReviews = 5

// Analyzer runs the analysis stages against a model client.
type Analyzer struct {
	client  llm.Client
	metrics *observability.Metrics
	product string
	tier    llm.ModelTier
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithMetrics records stage and normalizer outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// WithProduct sets the product named in the sales prompts.
func WithProduct(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.product = name
		}
	}
}

// New creates an Analyzer. A nil client makes every Analyze call fail with ErrLLMNotConfigured.
func New(client llm.Client, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:  client,
		product: DefaultProduct,
		tier:    llm.TierStandard,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Configured reports whether the analyzer has a model client.
func (a *Analyzer) Configured() bool {
	return a != nil && a.client != nil
}

// Analyze produces the profile, insights and sales tools for a searched prospect. Comprehensive
// data takes the enhanced path; basic search data the basic one. Stages whose output cannot be
// parsed yield records carrying a ParseFailure rather than an error.
func (a *Analyzer) Analyze(ctx context.Context, req *types.AnalyzeRequest) (*types.AnalyzeResponse, error) {
	if !a.Configured() {
		return nil, ErrLLMNotConfigured
	}
	if req == nil || !req.HasData() {
		return nil, ErrNoSearchData
	}

	started := time.Now()
	var (
		profile  types.ProspectProfile
		insights types.BusinessInsights
		review   reviews.Analysis
		err      error
	)

	if req.ComprehensiveData != nil {
		zap.L().Info("running enhanced analysis", zap.String("id", req.ID))
		data := req.ComprehensiveData
		if profile, err = a.EnhancedProfile(ctx, data); err != nil {
			return nil, err
		}
		review = reviews.Analyze(data.ReviewsData)
		if insights, err = a.EnhancedInsights(ctx, data, profile, review); err != nil {
			return nil, err
		}
	} else {
		zap.L().Info("running basic analysis", zap.String("id", req.ID))
		if profile, err = a.Profile(ctx, req.SearchData); err != nil {
			return nil, err
		}
		if insights, err = a.Insights(ctx, req.SearchData, profile); err != nil {
			return nil, err
		}
	}

	tools, err := a.SalesTools(ctx, profile, insights)
	if err != nil {
		return nil, err
	}
	tools = SupplementSalesTools(tools, review)

	sources := req.Sources
	if sources == nil {
		sources = []types.DataSource{}
	}

	zap.L().Info("analysis finished",
		zap.String("id", req.ID),
		zap.Bool("profile_failed", profile.Failed()),
		zap.Bool("insights_failed", insights.Failed()),
		zap.Bool("sales_tools_failed", tools.Failed()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return &types.AnalyzeResponse{
		Profile:    profile,
		Insights:   insights,
		SalesTools: tools,
		Sources:    sources,
	}, nil
}

// EnhancedProfile builds the prospect profile from comprehensive data.
func (a *Analyzer) EnhancedProfile(ctx context.Context, data *types.ComprehensiveData) (types.ProspectProfile, error) {
	var sections []string
	if data.BusinessData != nil {
		sections = append(sections, section("section-business-data", data.BusinessData, ""))
	}
	if data.MenuData != nil {
		sections = append(sections, section("section-menu-data", data.MenuData, ""))
	}
	if n := len(data.ReviewsData); n > 0 {
		quoted := data.ReviewsData
		if n > maxPromptReviews {
			quoted = quoted[:maxPromptReviews]
		}
		sections = append(sections, section("section-reviews", quoted, strconv.Itoa(n)))
	}
	if len(data.NewsData) > 0 {
		sections = append(sections, section("section-news", data.NewsData, ""))
	}

	var profile types.ProspectProfile
	err := a.stage(ctx, schemas.StageProfile, "enhanced-profile", map[string]string{
		"BasicInfo":    toJSON(data.BasicInfo),
		"DataSections": strings.Join(sections, "\n\n"),
	}, &profile, &profile.ParseFailure)
	return profile, err
}

// Profile builds the prospect profile from basic search data.
func (a *Analyzer) Profile(ctx context.Context, data *types.BasicSearchData) (types.ProspectProfile, error) {
	var profile types.ProspectProfile
	err := a.stage(ctx, schemas.StageProfile, "basic-profile", map[string]string{
		"CompanyData": toJSON(data),
	}, &profile, &profile.ParseFailure)
	return profile, err
}

// EnhancedInsights builds business insights from comprehensive data and the profile. When
// reviews were analyzed, their pain points and operational issues are appended and their
// sentiment scores replace the model's, unless the model output could not be parsed.
func (a *Analyzer) EnhancedInsights(ctx context.Context, data *types.ComprehensiveData, profile types.ProspectProfile, review reviews.Analysis) (types.BusinessInsights, error) {
	hasReviews := len(data.ReviewsData) > 0

	var sections []string
	if data.BusinessData != nil {
		sections = append(sections, section("section-business-data", data.BusinessData, ""))
	}
	if data.MenuData != nil {
		sections = append(sections, section("section-menu-analysis", data.MenuData, ""))
	}
	if hasReviews {
		sections = append(sections, section("section-review-analysis", review, ""))
	}
	if len(data.NewsData) > 0 {
		sections = append(sections, section("section-news", data.NewsData, ""))
	}

	var insights types.BusinessInsights
	err := a.stage(ctx, schemas.StageInsights, "enhanced-insights", map[string]string{
		"Profile":      toJSON(profile),
		"DataSections": strings.Join(sections, "\n\n"),
		"Product":      a.product,
	}, &insights, &insights.ParseFailure)
	if err != nil {
		return insights, err
	}

	if hasReviews && !insights.Failed() {
		MergeReviewAnalysis(&insights, review)
	}
	return insights, nil
}

// Insights builds business insights from basic search data and the profile.
func (a *Analyzer) Insights(ctx context.Context, data *types.BasicSearchData, profile types.ProspectProfile) (types.BusinessInsights, error) {
	var insights types.BusinessInsights
	err := a.stage(ctx, schemas.StageInsights, "basic-insights", map[string]string{
		"CompanyData": toJSON(data),
		"Profile":     toJSON(profile),
	}, &insights, &insights.ParseFailure)
	return insights, err
}

// SalesTools builds conversation starters, objection handling and value propositions.
func (a *Analyzer) SalesTools(ctx context.Context, profile types.ProspectProfile, insights types.BusinessInsights) (types.SalesTools, error) {
	var tools types.SalesTools
	err := a.stage(ctx, schemas.StageSalesTools, "sales-tools", map[string]string{
		"Profile":       toJSON(profile),
		"Insights":      toJSON(insights),
		"Product":       a.product,
		"MinObjections": strconv.Itoa(types.MinObjections),
	}, &tools, &tools.ParseFailure)
	return tools, err
}

// MergeReviewAnalysis folds review findings into model-produced insights.
func MergeReviewAnalysis(insights *types.BusinessInsights, review reviews.Analysis) {
	insights.PainPoints = append(insights.PainPoints, review.PainPoints...)
	insights.OperationalChallenges = append(insights.OperationalChallenges, review.OperationalIssues...)
	s := review.SentimentScores
	insights.CustomerSentiment = &types.CustomerSentiment{
		Overall:  s.Overall,
		Food:     s.Food,
		Service:  s.Service,
		Ambiance: s.Ambiance,
	}
}

// SupplementSalesTools tops up a short objection list with objections derived from reviews,
// and adds review-driven opportunities as value propositions. Parse failures are left alone.
func SupplementSalesTools(tools types.SalesTools, review reviews.Analysis) types.SalesTools {
	if tools.Failed() || len(tools.PotentialObjections) >= types.MinObjections {
		return tools
	}

	opportunities, objections := reviews.SalesInsights(review)
	have := make(map[string]bool, len(tools.PotentialObjections))
	for _, o := range tools.PotentialObjections {
		have[strings.ToLower(o.Objection)] = true
	}
	for _, o := range objections {
		if len(tools.PotentialObjections) >= types.MinObjections {
			break
		}
		if key := strings.ToLower(o.Objection); !have[key] {
			have[key] = true
			tools.PotentialObjections = append(tools.PotentialObjections, o)
		}
	}

	props := make(map[string]bool, len(tools.ValuePropositions))
	for _, v := range tools.ValuePropositions {
		props[v] = true
	}
	for _, o := range opportunities {
		if !props[o] {
			props[o] = true
			tools.ValuePropositions = append(tools.ValuePropositions, o)
		}
	}
	return tools
}

// stage renders a prompt, calls the model and decodes the normalized reply into out. An
// unrecoverable reply is recorded in failure; only model call errors are returned.
func (a *Analyzer) stage(ctx context.Context, stage schemas.Stage, promptKey string, data map[string]string, out any, failure *types.ParseFailure) error {
	name := string(stage)
	started := time.Now()
	logFields := []zap.Field{zap.String("stage", name), zap.String("prompt", promptKey)}

	prompt, err := prompts.Render(prompts.AnalysisFile, promptKey, data)
	if err != nil {
		a.metrics.LLMCall(name, observability.OutcomeError)
		return &StageError{Stage: name, Cause: err}
	}

	text, err := a.client.GenerateContent(ctx, prompt, a.tier)
	if err != nil {
		a.metrics.LLMCall(name, observability.OutcomeError)
		zap.L().Error("model call failed", append(logFields, zap.Error(err), zap.Duration("elapsed", time.Since(started)))...)
		return classify(name, err)
	}

	res := llm.Normalize(text)
	a.metrics.NormalizerResult(string(res.Strategy))
	if !res.OK() {
		a.metrics.LLMCall(name, observability.OutcomeParseFailure)
		zap.L().Warn("model response could not be parsed",
			append(logFields, zap.String("preview", llm.Preview(text, 200)))...)
		*failure = *res.Failure
		return nil
	}

	if err := schemas.ValidateStage(stage, res.Value); err != nil {
		zap.L().Warn("model response does not match schema", append(logFields, zap.Error(err))...)
	}
	if err := llm.Decode(res.Value, out); err != nil {
		zap.L().Warn("model response partially decoded", append(logFields, zap.Error(err))...)
	}

	a.metrics.LLMCall(name, observability.OutcomeOK)
	zap.L().Debug("stage finished", append(logFields,
		zap.String("strategy", string(res.Strategy)),
		zap.Bool("repaired", res.Repaired),
		zap.Duration("elapsed", time.Since(started)),
	)...)
	return nil
}

func section(key string, data any, count string) string {
	vars := map[string]string{"Data": toJSON(data)}
	if count != "" {
		vars["Count"] = count
	}
	out, err := prompts.Render(prompts.AnalysisFile, key, vars)
	if err != nil {
		zap.L().Warn("prompt section missing", zap.String("key", key), zap.Error(err))
		return ""
	}
	return out
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
