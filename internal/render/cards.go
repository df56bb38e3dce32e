package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"postgrid/internal/grid"
	"postgrid/internal/models"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const publishedLayout = "Jan 2, 2006"

var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

// Cards is the built-in CardRenderer. Post summaries are treated as markdown;
// raw HTML inside them is dropped by the markdown renderer.
type Cards struct {
	tmpl *template.Template
}

// NewCards returns the built-in card renderer
func NewCards() (*Cards, error) {
	tmpl, err := template.New("root").ParseFS(templateFS, "templates/card.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse card template: %w", err)
	}
	return &Cards{tmpl: tmpl}, nil
}

type cardData struct {
	Post      models.Post
	Index     int
	Published string
	Comments  int
	Summary   template.HTML
}

// RenderCard writes a single post card
func (c *Cards) RenderCard(w io.Writer, post models.Post, index int) error {
	data := cardData{
		Post:     post,
		Index:    index,
		Comments: post.Comments(),
	}
	if ts := grid.ParseTimestamp(post.CreatedAt); !ts.IsZero() {
		data.Published = ts.Format(publishedLayout)
	}
	if post.Summary != "" {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(post.Summary), &buf); err != nil {
			return fmt.Errorf("failed to convert summary: %w", err)
		}
		data.Summary = template.HTML(buf.String())
	}
	return c.tmpl.ExecuteTemplate(w, "card", data)
}
