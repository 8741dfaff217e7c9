package model

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// wordsPerMinute is the reading speed used for the reading-time estimate.
const wordsPerMinute = 200

// WordTargets maps each article type to its target word count range.
var WordTargets = map[ArticleType]WordRange{
	ArticleTypeHowTo:      {Min: 1200, Max: 1800},
	ArticleTypePillar:     {Min: 2500, Max: 3500},
	ArticleTypeComparison: {Min: 1500, Max: 2200},
	ArticleTypeSummary:    {Min: 800, Max: 1200},
}

// WordRange bounds the expected length of a draft.
type WordRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Article is the final publishable output of the pipeline.
type Article struct {
	ID              string       `json:"id"`
	TopicID         string       `json:"topic_id"`
	Title           string       `json:"title"`
	Slug            string       `json:"slug"`
	MetaDescription string       `json:"meta_description"`
	Body            string       `json:"body"`
	Excerpt         string       `json:"excerpt"`
	Tags            []string     `json:"tags"`
	TargetKeywords  []string     `json:"target_keywords"`
	ArticleType     ArticleType  `json:"article_type"`
	WordCount       int          `json:"word_count"`
	ReadingTimeMin  int          `json:"reading_time_min"`
	HeroImage       *ImageAsset  `json:"hero_image,omitempty"`
	ReviewScore     int          `json:"review_score"`
	PublishedAt     time.Time    `json:"published_at"`
}

// ImageAsset records where a hero image came from and how to credit it.
type ImageAsset struct {
	URL         string `json:"url"`
	Source      string `json:"source"` // "unsplash" or "generated"
	Attribution string `json:"attribution,omitempty"`
	AltText     string `json:"alt_text"`
}

// CountWords returns the whitespace-delimited word count of text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// TruncateOnRune shortens s to at most max bytes, backing up so the cut
// never lands inside a multi-byte rune.
func TruncateOnRune(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// ReadingTime estimates reading minutes for a word count, rounding up
// with a floor of one minute for any non-empty body.
func ReadingTime(words int) int {
	if words <= 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / wordsPerMinute))
}
