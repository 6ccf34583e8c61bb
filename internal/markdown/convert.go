// Package markdown converts between Markdown and the HTML produced by the
// rich-text editor. The HTML to Markdown direction is a best-effort mapping
// over the editor's own output subset, not a general converter.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var renderer = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithUnsafe(),
	),
)

// ToHTML renders a Markdown document as HTML. Raw HTML embedded in the
// source passes through unchanged and single newlines become hard breaks,
// matching the editor's expectations.
func ToHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	reHeading1   = regexp.MustCompile(`<h1>(.*?)</h1>`)
	reHeading2   = regexp.MustCompile(`<h2>(.*?)</h2>`)
	reHeading3   = regexp.MustCompile(`<h3>(.*?)</h3>`)
	reParagraph  = regexp.MustCompile(`<p>(.*?)</p>`)
	reStrong     = regexp.MustCompile(`<strong>(.*?)</strong>`)
	reEmphasis   = regexp.MustCompile(`<em>(.*?)</em>`)
	reBulletList = regexp.MustCompile(`(?s)<ul>(.*?)</ul>`)
	reOrderList  = regexp.MustCompile(`(?s)<ol>(.*?)</ol>`)
	reListItem   = regexp.MustCompile(`<li>(.*?)</li>`)
	reQuote      = regexp.MustCompile(`(?s)<blockquote>(.*?)</blockquote>`)
	reInlineCode = regexp.MustCompile(`<code>(.*?)</code>`)
	reCodeBlock  = regexp.MustCompile(`(?s)<pre><code class="language-(.*?)">(.*?)</code></pre>`)
	reLink       = regexp.MustCompile(`<a href="(.*?)">(.*?)</a>`)
	reImage      = regexp.MustCompile(`<img src="(.*?)" alt="(.*?)">`)
	reBlankRuns  = regexp.MustCompile(`\n\n\n+`)
)

// FromHTML maps the editor's HTML subset back to Markdown: h1-h3,
// paragraphs, bold/italic, unordered/ordered lists, blockquotes, inline code,
// fenced code blocks with a language tag, links and images. Anything outside
// that subset is left as literal HTML. Not guaranteed round-trip safe for
// nested or malformed markup.
func FromHTML(markup string) string {
	result := markup

	result = reHeading1.ReplaceAllString(result, "# $1\n\n")
	result = reHeading2.ReplaceAllString(result, "## $1\n\n")
	result = reHeading3.ReplaceAllString(result, "### $1\n\n")

	result = reParagraph.ReplaceAllString(result, "$1\n\n")

	result = reStrong.ReplaceAllString(result, "**$1**")
	result = reEmphasis.ReplaceAllString(result, "*$1*")

	result = reBulletList.ReplaceAllStringFunc(result, func(list string) string {
		inner := reBulletList.FindStringSubmatch(list)[1]
		return reListItem.ReplaceAllString(inner, "- $1\n")
	})
	result = reOrderList.ReplaceAllStringFunc(result, func(list string) string {
		inner := reOrderList.FindStringSubmatch(list)[1]
		index := 0
		return reListItem.ReplaceAllStringFunc(inner, func(item string) string {
			index++
			text := reListItem.FindStringSubmatch(item)[1]
			return fmt.Sprintf("%d. %s\n", index, text)
		})
	})

	result = reQuote.ReplaceAllString(result, "> $1\n\n")

	result = reInlineCode.ReplaceAllString(result, "`$1`")
	result = reCodeBlock.ReplaceAllString(result, "```$1\n$2\n```")

	result = reLink.ReplaceAllString(result, "[$2]($1)")
	result = reImage.ReplaceAllString(result, "![$2]($1)")

	result = reBlankRuns.ReplaceAllString(result, "\n\n")

	return strings.TrimSpace(result)
}
