package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"basic", "How to Choose a Pickleball Paddle", "how-to-choose-a-pickleball-paddle"},
		{"punctuation stripped", "Dinking 101: The Soft Game, Explained!", "dinking-101-the-soft-game-explained"},
		{"accents folded", "Café Étiquette on Court", "cafe-etiquette-on-court"},
		{"collapses runs", "a  --  b", "a-b"},
		{"empty", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestSlugifyTruncatesOnWordBoundary(t *testing.T) {
	title := strings.Repeat("paddle ", 30)
	slug := Slugify(title)
	assert.LessOrEqual(t, len(slug), 80)
	assert.False(t, strings.HasSuffix(slug, "-"))
	assert.False(t, strings.Contains(slug, "--"))
}
