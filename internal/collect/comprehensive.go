package collect

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

// Comprehensive runs every collector for query. The basic search runs first; business data,
// news, social profiles and Yelp then run concurrently; the menu is scraped last from the
// business website or the first result that is not a directory or social site.
//
// Only a failed basic search or a cancelled ctx is reported as an error. Sources are returned
// in collector order.
func (c *Collector) Comprehensive(ctx context.Context, query, location string) (*types.ComprehensiveData, []types.DataSource, error) {
	started := time.Now()

	basic, basicSources, err := c.BasicSearch(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	var (
		business        *types.BusinessData
		businessSources []types.DataSource
		news            []types.NewsData
		newsSource      types.DataSource
		social          []types.SocialMediaData
		socialSources   []types.DataSource
		yelp            *types.YelpBusiness
		yelpSource      types.DataSource
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		business, businessSources = c.BusinessData(gctx, query, location)
		return gctx.Err()
	})
	g.Go(func() error {
		news, newsSource = c.News(gctx, query, location)
		return gctx.Err()
	})
	g.Go(func() error {
		social, socialSources = c.Social(gctx, query, location)
		return gctx.Err()
	})
	g.Go(func() error {
		yelp, yelpSource = c.Yelp(gctx, query, location)
		return gctx.Err()
	})
	// Collector failures are absorbed inside each collector; only cancellation surfaces here.
	if err := g.Wait(); err != nil {
		c.fail(NameComprehensive, started, err, zap.String("query", query))
		return nil, nil, eris.Wrapf(err, "comprehensive search for %q", query)
	}

	data := &types.ComprehensiveData{
		BasicInfo:    basic,
		BusinessData: business,
		NewsData:     news,
		YelpData:     yelp,
	}
	sources := append([]types.DataSource{}, basicSources...)
	sources = append(sources, businessSources...)

	website := WebsiteFromResults(basic.SearchResults)
	if business != nil && business.Website != "" {
		website = business.Website
	}
	if website != "" {
		if menu, menuSource := c.Menu(ctx, website); menu != nil {
			data.MenuData = menu
			sources = append(sources, menuSource)
		}
	}

	if business != nil {
		data.ReviewsData = append(data.ReviewsData, business.Reviews...)
	}
	if yelp != nil {
		data.ReviewsData = append(data.ReviewsData, yelp.Reviews...)
		sources = append(sources, yelpSource)
	}

	if len(news) > 0 {
		sources = append(sources, newsSource)
	}

	data.SocialData = social
	sources = append(sources, socialSources...)
	if len(data.SocialData) == 0 && business != nil {
		data.SocialData = ProfilesFromLinks(business.SocialMedia)
	}

	data.Sources = sources
	zap.L().Info("comprehensive search finished",
		zap.String("query", query),
		zap.String("location", location),
		zap.Int("sources", len(sources)),
		zap.Bool("business_data", business != nil),
		zap.Bool("menu", data.MenuData != nil),
		zap.Int("reviews", len(data.ReviewsData)),
		zap.Int("news", len(news)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return data, sources, nil
}
