package safety

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Taxonomy defines the restricted content categories and the keyword lists
// that trigger the fast block path. Keywords are matched case-insensitively
// as substrings of the topic subject and keyword.
type Taxonomy struct {
	Categories []Category `yaml:"categories"`
}

// Category is one restricted subject area.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultTaxonomy returns the built-in restricted category list. A site
// publishing recreational sports content stays away from anything that
// reads as professional advice or exploits tragedy.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{Categories: []Category{
		{Name: "medical_advice", Keywords: []string{
			"diagnose", "diagnosis", "prescription", "cure", "treating injury",
			"medical treatment", "concussion protocol",
		}},
		{Name: "health_treatments", Keywords: []string{
			"supplement dosage", "steroid", "painkiller", "medication",
		}},
		{Name: "war_conflict", Keywords: []string{
			"war", "warzone", "invasion", "military conflict", "terrorist",
		}},
		{Name: "violent_crime", Keywords: []string{
			"murder", "assault", "shooting", "homicide",
		}},
		{Name: "financial_advice", Keywords: []string{
			"guaranteed return", "get rich", "tax shelter",
		}},
		{Name: "investment_advice", Keywords: []string{
			"stock pick", "crypto investment", "which coin", "buy signal",
		}},
		{Name: "legal_advice", Keywords: []string{
			"sue", "lawsuit strategy", "legal loophole", "liability waiver advice",
		}},
		{Name: "political_controversy", Keywords: []string{
			"election fraud", "political party", "immigration policy",
		}},
		{Name: "adult_content", Keywords: []string{
			"explicit", "nsfw", "adult content",
		}},
		{Name: "gambling", Keywords: []string{
			"betting odds", "sportsbook", "parlay", "casino",
		}},
		{Name: "weapons", Keywords: []string{
			"firearm", "gun", "ammunition", "knife attack",
		}},
		{Name: "drugs", Keywords: []string{
			"cannabis", "cocaine", "performance enhancing drug", "doping",
		}},
	}}
}

// LoadTaxonomy reads a taxonomy override from a YAML file. An empty path
// returns the default taxonomy.
func LoadTaxonomy(path string) (Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, eris.Wrap(err, "safety: read taxonomy")
	}
	var tax Taxonomy
	if err := yaml.Unmarshal(data, &tax); err != nil {
		return Taxonomy{}, eris.Wrap(err, "safety: parse taxonomy")
	}
	if len(tax.Categories) == 0 {
		return Taxonomy{}, eris.New("safety: taxonomy has no categories")
	}
	return tax, nil
}

// Match returns the category names whose keywords appear in text.
func (t Taxonomy) Match(text string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, cat := range t.Categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				hits = append(hits, cat.Name)
				break
			}
		}
	}
	return hits
}

// Names returns all category names, for prompt construction.
func (t Taxonomy) Names() []string {
	names := make([]string, len(t.Categories))
	for i, cat := range t.Categories {
		names[i] = cat.Name
	}
	return names
}
