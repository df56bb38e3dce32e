package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"postgrid/internal/grid"
	"postgrid/internal/models"

	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	DefaultSkeletonCount = 6
	DefaultEmptyMessage  = "No posts yet. Check back soon."
)

// State is the display state of the shell
type State string

const (
	StateLoading State = "loading"
	StateEmpty   State = "empty"
	StateReady   State = "ready"
)

// StateOf reports which state a snapshot renders as
func StateOf(snap grid.Snapshot) State {
	if snap.Loading {
		return StateLoading
	}
	if len(snap.Posts) == 0 {
		return StateEmpty
	}
	return StateReady
}

// CardRenderer renders one post of the derived sequence
type CardRenderer interface {
	RenderCard(w io.Writer, post models.Post, index int) error
}

// Option configures a Shell
type Option func(*Shell)

// WithCardRenderer replaces the built-in card renderer
func WithCardRenderer(cards CardRenderer) Option {
	return func(s *Shell) { s.cards = cards }
}

// WithSkeletonCount sets how many placeholders are shown while loading
func WithSkeletonCount(n int) Option {
	return func(s *Shell) {
		if n > 0 {
			s.skeletons = n
		}
	}
}

// WithEmptyMessage sets the message shown when there are no posts.
// An empty msg keeps the default.
func WithEmptyMessage(msg string) Option {
	return func(s *Shell) {
		if msg != "" {
			s.emptyMessage = msg
		}
	}
}

// WithAction sets the form action used by the selector controls
func WithAction(action string) Option {
	return func(s *Shell) { s.action = action }
}

// WithMinify enables HTML minification of rendered output
func WithMinify(enabled bool) Option {
	return func(s *Shell) {
		if !enabled {
			s.minifier = nil
			return
		}
		m := minify.New()
		m.AddFunc("text/html", mhtml.Minify)
		s.minifier = m
	}
}

// Shell renders the post grid: loading skeletons, the empty state, or the
// selector controls followed by one card per derived post.
type Shell struct {
	tmpl         *template.Template
	cards        CardRenderer
	skeletons    int
	emptyMessage string
	action       string
	minifier     *minify.M
}

// NewShell parses the embedded templates and applies the options
func NewShell(opts ...Option) (*Shell, error) {
	tmpl, err := template.New("root").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Shell{
		tmpl:         tmpl,
		skeletons:    DefaultSkeletonCount,
		emptyMessage: DefaultEmptyMessage,
		action:       "/",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cards == nil {
		s.cards = &Cards{tmpl: tmpl}
	}
	return s, nil
}

type selectOption struct {
	models.Option
	Selected bool
}

type shellData struct {
	State        State
	View         models.ViewMode
	Sort         models.SortMode
	Skeletons    []struct{}
	EmptyMessage string
	Action       string
	ViewOptions  []selectOption
	SortOptions  []selectOption
	Cards        []template.HTML
}

type pageData struct {
	Title string
	Lang  string
	Grid  template.HTML
}

// Render writes the grid for the given snapshot
func (s *Shell) Render(w io.Writer, snap grid.Snapshot) error {
	var buf bytes.Buffer
	if err := s.renderGrid(&buf, snap); err != nil {
		return err
	}
	return s.write(w, &buf)
}

// RenderPage writes a complete HTML document containing the grid
func (s *Shell) RenderPage(w io.Writer, title, lang string, snap grid.Snapshot) error {
	var gridBuf bytes.Buffer
	if err := s.renderGrid(&gridBuf, snap); err != nil {
		return err
	}

	var buf bytes.Buffer
	data := pageData{Title: title, Lang: lang, Grid: template.HTML(gridBuf.String())}
	if err := s.tmpl.ExecuteTemplate(&buf, "page", data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return s.write(w, &buf)
}

func (s *Shell) renderGrid(w io.Writer, snap grid.Snapshot) error {
	data := shellData{
		State:        StateOf(snap),
		View:         snap.View,
		Sort:         snap.Sort,
		EmptyMessage: s.emptyMessage,
		Action:       s.action,
	}

	switch data.State {
	case StateLoading:
		data.Skeletons = make([]struct{}, s.skeletons)
	case StateReady:
		data.ViewOptions = markSelected(models.ViewModeOptions(), string(snap.View))
		data.SortOptions = markSelected(models.SortModeOptions(), string(snap.Sort))
		data.Cards = make([]template.HTML, 0, len(snap.Derived))
		for i, post := range snap.Derived {
			var card bytes.Buffer
			if err := s.cards.RenderCard(&card, post, i); err != nil {
				return fmt.Errorf("failed to render card for post %d: %w", post.ID, err)
			}
			data.Cards = append(data.Cards, template.HTML(card.String()))
		}
	}

	if err := s.tmpl.ExecuteTemplate(w, "shell", data); err != nil {
		return fmt.Errorf("failed to render grid: %w", err)
	}
	return nil
}

func (s *Shell) write(w io.Writer, buf *bytes.Buffer) error {
	if s.minifier == nil {
		_, err := buf.WriteTo(w)
		return err
	}
	if err := s.minifier.Minify("text/html", w, buf); err != nil {
		return fmt.Errorf("failed to minify html: %w", err)
	}
	return nil
}

func markSelected(options []models.Option, current string) []selectOption {
	out := make([]selectOption, len(options))
	for i, opt := range options {
		out[i] = selectOption{Option: opt, Selected: opt.Value == current}
	}
	return out
}
