// Package images curates hero images for articles: stock photos from
// Unsplash first, generated images as a capped fallback.
package images

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/budget"
	"github.com/courtline/content-cli/internal/cost"
	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/internal/resilience"
	"github.com/courtline/content-cli/pkg/dalle"
	"github.com/courtline/content-cli/pkg/unsplash"
)

// Curator finds a hero image for an article. Unsplash is free and preferred;
// generation is capped per day through its own budget tracker so a bad stock
// day cannot run up an image bill.
type Curator struct {
	unsplash  unsplash.Client
	dalle     dalle.Client
	costCalc  *cost.Calculator
	genBudget *budget.Tracker
	// breakers holds one circuit per image service, so an Unsplash outage
	// does not suppress the generation fallback.
	breakers *resilience.ServiceBreakers
}

// Option configures the Curator.
type Option func(*Curator)

// WithGeneratedBudget caps generated images. The tracker counts images, not
// dollars: a limit of 10 means at most 10 generated images per day.
func WithGeneratedBudget(t *budget.Tracker) Option {
	return func(c *Curator) {
		c.genBudget = t
	}
}

// New creates a Curator. dalleClient may be nil to disable the generation
// fallback entirely.
func New(unsplashClient unsplash.Client, dalleClient dalle.Client, calc *cost.Calculator, opts ...Option) *Curator {
	c := &Curator{
		unsplash: unsplashClient,
		dalle:    dalleClient,
		costCalc: calc,
		breakers: resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Curate returns a hero image for the article and the cost incurred. A nil
// asset is never returned without an error.
func (c *Curator) Curate(ctx context.Context, article *model.Article) (*model.ImageAsset, float64, error) {
	asset, imgCost, err := c.fromUnsplash(ctx, article)
	if err == nil {
		return asset, imgCost, nil
	}
	zap.L().Info("images: no stock photo, trying generation",
		zap.String("slug", article.Slug),
		zap.Error(err),
	)

	if c.dalle == nil {
		return nil, 0, eris.Wrap(err, "images: no stock photo and generation disabled")
	}
	if c.genBudget != nil && !c.genBudget.TryConsume(1) {
		return nil, 0, eris.New("images: daily generated image cap reached")
	}
	return c.fromDalle(ctx, article)
}

func (c *Curator) fromUnsplash(ctx context.Context, article *model.Article) (*model.ImageAsset, float64, error) {
	query := searchQuery(article)
	resp, err := resilience.ExecuteVal(ctx, c.breakers.Get("unsplash"),
		func(ctx context.Context) (*unsplash.SearchResponse, error) {
			return c.unsplash.SearchPhotos(ctx, query,
				unsplash.WithPerPage(5),
				unsplash.WithOrientation("landscape"),
			)
		})
	if err != nil {
		return nil, 0, err
	}
	if len(resp.Results) == 0 {
		return nil, 0, eris.Errorf("images: no unsplash results for %q", query)
	}

	photo := resp.Results[0]
	if err := c.unsplash.TrackDownload(ctx, photo.Links.DownloadLocation); err != nil {
		// Attribution bookkeeping only. The photo is still usable.
		zap.L().Warn("images: download tracking failed", zap.Error(err))
	}

	alt := photo.AltDescription
	if alt == "" {
		alt = article.Title
	}
	return &model.ImageAsset{
		URL:         photo.URLs.Regular,
		Source:      "unsplash",
		Attribution: fmt.Sprintf("Photo by %s on Unsplash", photo.User.Name),
		AltText:     alt,
	}, c.costCalc.UnsplashDownload(), nil
}

func (c *Curator) fromDalle(ctx context.Context, article *model.Article) (*model.ImageAsset, float64, error) {
	prompt := fmt.Sprintf(
		"Editorial photo-style illustration for a pickleball blog article titled %q. "+
			"Outdoor pickleball court, natural light, no text or logos.", article.Title)

	img, err := resilience.ExecuteVal(ctx, c.breakers.Get("dall-e"),
		func(ctx context.Context) (*dalle.Image, error) {
			return c.dalle.Generate(ctx, prompt)
		})
	if err != nil {
		return nil, 0, eris.Wrap(err, "images: generate")
	}
	return &model.ImageAsset{
		URL:     img.URL,
		Source:  "dall-e",
		AltText: article.Title,
	}, c.costCalc.GeneratedImage(), nil
}

// searchQuery builds the stock search query from the article's first keyword,
// scoped to pickleball so generic keywords do not pull unrelated photos.
func searchQuery(article *model.Article) string {
	term := ""
	if len(article.TargetKeywords) > 0 {
		term = article.TargetKeywords[0]
	}
	if !strings.Contains(strings.ToLower(term), "pickleball") {
		term = strings.TrimSpace("pickleball " + term)
	}
	return term
}
