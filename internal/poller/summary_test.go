package poller

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHTMLToSummary(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "Empty content",
			html:     "   ",
			expected: "",
		},
		{
			name:     "Plain text",
			html:     "This is plain text without any HTML tags.",
			expected: "This is plain text without any HTML tags.",
		},
		{
			name:     "Paragraphs",
			html:     "<p>First paragraph.</p><p>Second paragraph.</p>",
			expected: "First paragraph.\n\nSecond paragraph.",
		},
		{
			name:     "Bold and italic",
			html:     "<p>Text with <strong>bold</strong> and <em>italic</em> content.</p>",
			expected: "Text with **bold** and _italic_ content.",
		},
		{
			name:     "Link",
			html:     `<a href="http://example.com">Example Link</a>`,
			expected: "[Example Link](http://example.com)",
		},
		{
			name:     "Script link dropped",
			html:     `<a href="javascript:alert(1)">Invalid link</a>`,
			expected: "Invalid link",
		},
		{
			name:     "Unordered list",
			html:     "<ul><li>Item 1</li><li>Item 2</li></ul>",
			expected: "- Item 1\n- Item 2",
		},
		{
			name:     "Inline code",
			html:     "Run <code>go test</code> first",
			expected: "Run `go test` first",
		},
		{
			name:     "Script and style removed",
			html:     "<style>p{}</style><script>alert('x')</script><p>Content</p>",
			expected: "Content",
		},
		{
			name:     "Image alt text kept",
			html:     `<p>Look: <img src="a.jpg" alt="A sunset"></p>`,
			expected: "Look: A sunset",
		},
		{
			name:     "Entities decoded",
			html:     "A &amp; B &#8212; done",
			expected: "A & B — done",
		},
		{
			name:     "Whitespace collapsed",
			html:     "<p>Line\n\t one   and two</p>",
			expected: "Line one and two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlToSummary(tt.html); got != tt.expected {
				t.Errorf("htmlToSummary(%q) = %q, want %q", tt.html, got, tt.expected)
			}
		})
	}
}

func TestHTMLToSummary_Truncates(t *testing.T) {
	long := "<p>" + strings.Repeat("lorem ipsum ", 100) + "</p>"

	summary := htmlToSummary(long)

	if !strings.HasSuffix(summary, "…") {
		t.Errorf("Expected ellipsis on truncated summary, got %q", summary)
	}
	if utf8.RuneCountInString(summary) > maxSummaryLength+1 {
		t.Errorf("Summary too long: %d runes", utf8.RuneCountInString(summary))
	}
	if strings.HasSuffix(strings.TrimSuffix(summary, "…"), " ") {
		t.Error("Expected truncation at a word boundary without trailing space")
	}
}
