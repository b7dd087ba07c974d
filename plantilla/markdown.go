package plantilla

import (
	"fmt"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var (
	mdOnce      sync.Once
	mdConverter *converter.Converter
)

func markdownConverter() *converter.Converter {
	mdOnce.Do(func() {
		mdConverter = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
	})
	return mdConverter
}

// Markdown converts an article to Markdown for terminals and MCP clients.
// The alert, when present, is rendered as a blockquote under the title.
func Markdown(a Article) (string, error) {
	body, err := markdownConverter().ConvertString(a.Body)
	if err != nil {
		return "", fmt.Errorf("plantilla: markdown %q: %w", a.Title, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Title)
	if a.Alert != "" {
		fmt.Fprintf(&b, "> %s\n\n", a.Alert)
	}
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	return b.String(), nil
}
