package pipeline

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// StyleProfile describes the blog's house voice. Writing stages carry it as
// their system prompt and the review stage scores drafts against it, so one
// profile keeps hundreds of articles sounding like a single author.
type StyleProfile struct {
	Name           string   `yaml:"name"`
	Formality      string   `yaml:"formality"`
	TechnicalLevel string   `yaml:"technical_level"`
	Perspective    string   `yaml:"perspective"`
	Personality    []string `yaml:"personality"`
	SamplePhrases  []string `yaml:"sample_phrases"`
	AvoidPhrases   []string `yaml:"avoid_phrases"`
}

// DefaultStyleProfile returns the built-in house voice: a casual, direct
// coach talking to recreational players.
func DefaultStyleProfile() StyleProfile {
	return StyleProfile{
		Name:           "house voice",
		Formality:      "casual",
		TechnicalLevel: "intermediate",
		Perspective:    "second-person",
		Personality:    []string{"encouraging", "direct", "practical"},
		SamplePhrases: []string{
			"Here's the thing:",
			"This is tricky at first.",
			"Worth the practice.",
		},
		AvoidPhrases: []string{
			"delve into",
			"leverage",
			"utilize",
			"game-changing",
			"in this article we will",
			"comprehensive guide",
		},
	}
}

// LoadStyleProfile reads a voice profile override from a YAML file. An empty
// path returns the default profile.
func LoadStyleProfile(path string) (StyleProfile, error) {
	if path == "" {
		return DefaultStyleProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return StyleProfile{}, eris.Wrap(err, "pipeline: read style profile")
	}
	var profile StyleProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return StyleProfile{}, eris.Wrap(err, "pipeline: parse style profile")
	}
	if profile.Name == "" {
		return StyleProfile{}, eris.New("pipeline: style profile has no name")
	}
	return profile, nil
}

// SystemPrompt renders the profile as the system prompt shared by the
// writing stages.
func (s StyleProfile) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You write for a pickleball blog aimed at recreational players, in the ")
	b.WriteString(s.Name)
	b.WriteString(".\n")
	b.WriteString("Voice: " + s.Formality + ", " + s.TechnicalLevel + " level, " + s.Perspective + " perspective.\n")
	if len(s.Personality) > 0 {
		b.WriteString("Personality: " + strings.Join(s.Personality, ", ") + ".\n")
	}
	if len(s.SamplePhrases) > 0 {
		b.WriteString("Phrases that sound like this voice:\n")
		for _, p := range s.SamplePhrases {
			b.WriteString("- " + p + "\n")
		}
	}
	if len(s.AvoidPhrases) > 0 {
		b.WriteString("Never use these phrases:\n")
		for _, p := range s.AvoidPhrases {
			b.WriteString("- " + p + "\n")
		}
	}
	b.WriteString("Every sentence should read as if one writer produced the whole site.")
	return b.String()
}
