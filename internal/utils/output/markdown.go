package output

import (
	"fmt"
	"html"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/law-makers/harvest/pkg/models"
)

// SaveMarkdown writes extracted entities as a GitHub-flavored Markdown table.
// The entities are rendered to an HTML table first so link and image fields
// come out as proper Markdown links.
func SaveMarkdown(entities []models.Entity, filepath string) error {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	mdStr, err := converter.ConvertString(entityTable(entities))
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, []byte(mdStr), 0644)
}

// entityTable renders entities as an HTML table in column order.
func entityTable(entities []models.Entity) string {
	headers := columnOrder(entities)

	var sb strings.Builder
	sb.WriteString("<table><thead><tr>")
	for _, h := range headers {
		fmt.Fprintf(&sb, "<th>%s</th>", html.EscapeString(h))
	}
	sb.WriteString("</tr></thead><tbody>")

	for i := range entities {
		sb.WriteString("<tr>")
		for _, h := range headers {
			v := entities[i].Fields[h]
			switch h {
			case "url":
				if v != "" {
					fmt.Fprintf(&sb, `<td><a href="%s">link</a></td>`, html.EscapeString(v))
					continue
				}
			case "image":
				if v != "" {
					fmt.Fprintf(&sb, `<td><img src="%s" alt=""/></td>`, html.EscapeString(v))
					continue
				}
			}
			fmt.Fprintf(&sb, "<td>%s</td>", html.EscapeString(v))
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table>")
	return sb.String()
}
