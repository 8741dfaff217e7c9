package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from TopicStatus
		to   TopicStatus
		want bool
	}{
		{"queued to titled", TopicStatusQueued, TopicStatusTitled, true},
		{"queued to in-progress", TopicStatusQueued, TopicStatusInProgress, true},
		{"queued to skipped", TopicStatusQueued, TopicStatusSkipped, true},
		{"queued to published", TopicStatusQueued, TopicStatusPublished, false},
		{"titled to in-progress", TopicStatusTitled, TopicStatusInProgress, true},
		{"titled to queued", TopicStatusTitled, TopicStatusQueued, false},
		{"in-progress to published", TopicStatusInProgress, TopicStatusPublished, true},
		{"in-progress to queued", TopicStatusInProgress, TopicStatusQueued, true},
		{"in-progress to skipped", TopicStatusInProgress, TopicStatusSkipped, true},
		{"published is terminal", TopicStatusPublished, TopicStatusQueued, false},
		{"skipped is terminal", TopicStatusSkipped, TopicStatusInProgress, false},
		{"no self transition", TopicStatusQueued, TopicStatusQueued, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, TopicStatusPublished.IsTerminal())
	assert.True(t, TopicStatusSkipped.IsTerminal())
	assert.False(t, TopicStatusQueued.IsTerminal())
	assert.False(t, TopicStatusTitled.IsTerminal())
	assert.False(t, TopicStatusInProgress.IsTerminal())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, TopicStatusQueued.Valid())
	assert.False(t, TopicStatus("deleted").Valid())
}

func TestArticleTypeValid(t *testing.T) {
	assert.True(t, ArticleTypeHowTo.Valid())
	assert.False(t, ArticleType("listicle").Valid())
}
