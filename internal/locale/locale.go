package locale

import (
	"strings"
	"sync"

	"postgrid/internal/models"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
)

// Auto asks Resolve to detect the collation language from post titles
const Auto = "auto"

// Detector guesses the dominant language of a set of posts
type Detector struct {
	detector lingua.LanguageDetector
}

var (
	defaultDetector     *Detector
	defaultDetectorOnce sync.Once
)

// NewDetector builds a detector over the languages blogs are commonly written in
func NewDetector() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English, lingua.German, lingua.French, lingua.Spanish,
			lingua.Chinese, lingua.Russian, lingua.Italian, lingua.Portuguese,
			lingua.Dutch, lingua.Swedish, lingua.Danish, lingua.Finnish,
			lingua.Polish, lingua.Czech, lingua.Hungarian, lingua.Romanian,
		).
		Build()
	return &Detector{detector: detector}
}

// Default returns a shared detector; building one loads language models so it is done once
func Default() *Detector {
	defaultDetectorOnce.Do(func() {
		defaultDetector = NewDetector()
	})
	return defaultDetector
}

// Detect returns the language of the concatenated post titles, English when unsure
func (d *Detector) Detect(posts []models.Post) language.Tag {
	titles := make([]string, 0, len(posts))
	for _, post := range posts {
		if title := strings.TrimSpace(post.Title); title != "" {
			titles = append(titles, title)
		}
	}
	if len(titles) == 0 {
		return language.English
	}

	detected, exists := d.detector.DetectLanguageOf(strings.Join(titles, ". "))
	if !exists {
		return language.English
	}

	tag, err := language.Parse(strings.ToLower(detected.IsoCode639_1().String()))
	if err != nil {
		return language.English
	}
	return tag
}

// Resolve turns a COLLATION_LOCALE setting into a language tag.
// "auto" detects from the posts; unparsable tags fall back to English.
func Resolve(setting string, posts []models.Post) language.Tag {
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return language.English
	}
	if strings.EqualFold(setting, Auto) {
		return Default().Detect(posts)
	}
	tag, err := language.Parse(setting)
	if err != nil {
		return language.English
	}
	return tag
}
