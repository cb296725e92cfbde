package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// ErrHTMLConversion indicates Markdown to HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// htmlTemplate wraps goldmark's fragment output in a complete HTML5 document.
const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>%s</style>
<style>%s</style>
</head>
<body>
%s
</body>
</html>`

// DefaultCSS sizes screenshots to 6in, labels at 14pt, rules full width.
const DefaultCSS = `
body { font-family: -apple-system, "Segoe UI", "Noto Sans", "PingFang SC", "Microsoft YaHei", sans-serif; font-size: 14pt; margin: 0; }
h1 { font-size: 18pt; }
p { margin: 0.2em 0; }
img { width: 6in; max-width: 100%; border: 1px solid #ddd; display: block; margin: 0.5em auto; page-break-inside: avoid; }
hr { border: none; border-top: 1px solid #333; width: 100%; margin: 1em 0; }
`

// highlightStyle colors the details blocks of page entries.
const highlightStyle = "github"

// highlightCSS is the stylesheet for the classes chroma emits in code blocks.
var highlightCSS = func() string {
	var buf bytes.Buffer
	f := chromahtml.New(chromahtml.WithClasses(true))
	if err := f.WriteCSS(&buf, styles.Get(highlightStyle)); err != nil {
		return ""
	}
	return buf.String()
}()

// HTMLRenderer converts page Markdown into a standalone HTML document whose
// images resolve as file:// URLs, ready for printing.
type HTMLRenderer struct {
	md  goldmark.Markdown
	css string
}

// NewHTMLRenderer creates an HTMLRenderer with GFM and syntax highlighting.
// An empty css uses DefaultCSS.
func NewHTMLRenderer(css string) *HTMLRenderer {
	if css == "" {
		css = DefaultCSS
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(highlightStyle),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithXHTML(),
			// WithUnsafe is not used: worklist values must not inject HTML.
		),
	)
	return &HTMLRenderer{md: md, css: css}
}

// ToHTML converts content to HTML. Relative image paths are resolved against
// sourceDir (the page document's directory).
func (r *HTMLRenderer) ToHTML(ctx context.Context, title string, content []byte, sourceDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := r.md.Convert(content, &buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	doc := fmt.Sprintf(htmlTemplate, html.EscapeString(title), r.css, highlightCSS, buf.String())

	if sourceDir == "" {
		return doc, nil
	}
	return rewriteImagePaths(doc, sourceDir)
}

// rewriteImagePaths turns relative img[src] values into absolute file:// URLs
// so the browser can load them from a temp file elsewhere on disk.
func rewriteImagePaths(doc, sourceDir string) (string, error) {
	absDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}

	dom, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("%w: parsing HTML: %v", ErrHTMLConversion, err)
	}

	dom.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if !isRelativePath(src) {
			return
		}
		decoded, err := url.PathUnescape(src)
		if err != nil {
			decoded = src
		}
		abs := filepath.Join(absDir, filepath.FromSlash(decoded))
		s.SetAttr("src", pathToFileURL(abs))
	})

	out, err := dom.Html()
	if err != nil {
		return "", fmt.Errorf("%w: rendering HTML: %v", ErrHTMLConversion, err)
	}
	return out, nil
}

// isRelativePath returns true if the path should be rewritten.
func isRelativePath(path string) bool {
	if path == "" || strings.HasPrefix(path, "#") || strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") || strings.HasPrefix(path, "data:") {
		return false
	}
	return !filepath.IsAbs(path) && !strings.HasPrefix(path, "/")
}

// pathToFileURL converts an absolute path to a file:// URL.
func pathToFileURL(absPath string) string {
	p := filepath.ToSlash(absPath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // Windows drive letters
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}
