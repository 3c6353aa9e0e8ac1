package output

import (
	"fmt"
	"html"
	"os"

	"github.com/law-makers/harvest/pkg/models"
)

// SaveHTML writes extracted entities as a standalone HTML page built around
// the same entity table the Markdown writer renders.
func SaveHTML(entities []models.Entity, title, filepath string) error {
	safe := html.EscapeString(title)
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; }
th { background: #f4f4f4; }
img { max-height: 60px; }
</style>
</head>
<body>
<h1>%s</h1>
%s
</body>
</html>
`, safe, safe, entityTable(entities))

	return os.WriteFile(filepath, []byte(page), 0644)
}
