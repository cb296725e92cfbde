// Package document persists page documents: append-only Markdown files that
// collect one entry per captured site.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/alnah/go-sitesnap/internal/fileutil"
)

// Extensions of persisted and exported page documents.
const (
	MarkdownExt = ".md"
	PDFExt      = ".pdf"
)

// separator closes every entry. It renders as a full-width rule.
const separator = "---"

// detailsFence opens and closes an entry's details block. Every line inside
// starts with a key, so neither the fence nor the separator can occur there.
const detailsFence = "```"

// Field is one labeled line of an entry.
type Field struct {
	Label string
	Value string
}

// Entry is the block appended to a page for one capture result.
type Entry struct {
	Fields    []Field
	ImagePath string // relative to the page's directory; empty = no image
	ImageAlt  string
	// Details are written as a fenced YAML block after the image, e.g. the
	// capture error of a fallback entry. Empty = no block.
	Details []Field
}

// Page is the in-memory form of one page document.
type Page struct {
	body    bytes.Buffer
	entries int
}

// NewPage returns an empty page starting with a level-one heading.
func NewPage(title string) *Page {
	p := &Page{}
	if title != "" {
		fmt.Fprintf(&p.body, "# %s\n\n", escapeInline(title))
	}
	return p
}

// ParsePage wraps previously persisted content. Entries are counted by
// their separators.
func ParsePage(data []byte) *Page {
	p := &Page{}
	p.body.Write(data)
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimRight(line, "\r") == separator {
			p.entries++
		}
	}
	// Appends must start on a fresh line.
	if len(data) > 0 && data[len(data)-1] != '\n' {
		p.body.WriteByte('\n')
	}
	return p
}

// Append adds an entry: each field as its own paragraph, then the image
// (when set), then the details block (when set), then the separator.
func (p *Page) Append(e Entry) {
	for _, f := range e.Fields {
		fmt.Fprintf(&p.body, "**%s:** %s\n\n", escapeInline(f.Label), escapeInline(f.Value))
	}
	if e.ImagePath != "" {
		fmt.Fprintf(&p.body, "![%s](<%s>)\n\n", escapeInline(e.ImageAlt), escapeDestination(e.ImagePath))
	}
	if len(e.Details) > 0 {
		p.body.WriteString(detailsFence + "yaml\n")
		for _, d := range e.Details {
			fmt.Fprintf(&p.body, "%s: %s\n", detailKey(d.Label), strconv.Quote(d.Value))
		}
		p.body.WriteString(detailsFence + "\n\n")
	}
	p.body.WriteString(separator + "\n\n")
	p.entries++
}

// Entries returns how many entries the page holds, including ones loaded
// from storage.
func (p *Page) Entries() int {
	return p.entries
}

// Bytes returns the Markdown content. The slice aliases the page buffer.
func (p *Page) Bytes() []byte {
	return p.body.Bytes()
}

// Store loads and saves pages on the local filesystem.
type Store struct{}

// Load reads the page at path. A missing file reports ok == false.
func (Store) Load(path string) (page *Page, ok bool, err error) {
	data, err := os.ReadFile(path) // #nosec G304 -- page path built from the output base name
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading page %s: %w", path, err)
	}
	return ParsePage(data), true, nil
}

// Save persists the whole page to path atomically.
func (Store) Save(page *Page, path string) error {
	if err := fileutil.WriteFileAtomic(path, page.Bytes()); err != nil {
		return fmt.Errorf("saving page: %w", err)
	}
	return nil
}

// PageRange returns the completion-index range [start, end) of page number n.
func PageRange(n, size int) (start, end int) {
	start = n * size
	return start, start + size
}

// PagePath returns "<base>(<start>-<end>)<ext>" for page number n.
func PagePath(base string, n, size int, ext string) string {
	start, end := PageRange(n, size)
	return fmt.Sprintf("%s(%d-%d)%s", base, start, end, ext)
}

// SwapExt replaces the extension of a page path, e.g. ".md" with ".pdf".
func SwapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// RelativeImagePath expresses image relative to the directory holding
// pagePath, with forward slashes. Falls back to the absolute path when no
// relative form exists (e.g. different Windows volumes).
func RelativeImagePath(pagePath, image string) string {
	absImage, err := filepath.Abs(image)
	if err != nil {
		return filepath.ToSlash(image)
	}
	absDir, err := filepath.Abs(filepath.Dir(pagePath))
	if err != nil {
		return filepath.ToSlash(absImage)
	}
	rel, err := filepath.Rel(absDir, absImage)
	if err != nil {
		return filepath.ToSlash(absImage)
	}
	return filepath.ToSlash(rel)
}

var inlineEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"\r", " ",
	"\n", " ",
)

// escapeInline neutralizes Markdown emphasis, links, and raw HTML in values
// taken from the worklist.
func escapeInline(s string) string {
	return inlineEscaper.Replace(s)
}

// detailKey reduces a label to a bare YAML key.
func detailKey(label string) string {
	key := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, strings.TrimSpace(label))
	if key == "" {
		return "detail"
	}
	return key
}

// escapeDestination makes a path safe inside <...> link destinations.
func escapeDestination(s string) string {
	return strings.NewReplacer("<", "%3C", ">", "%3E", "\n", "", "\r", "").Replace(s)
}
