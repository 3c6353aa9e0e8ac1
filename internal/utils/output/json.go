package output

import (
	"encoding/json"
	"os"

	urlutil "github.com/law-makers/harvest/internal/utils/url"
	"github.com/law-makers/harvest/pkg/models"
)

// SaveJSON writes an extraction result to filepath with relative links
// resolved against the source page.
func SaveJSON(pageURL string, result *models.ExtractionResult, filepath string) error {
	urlutil.ResolveRelativeLinks(pageURL, result.Entities)

	content, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, content, 0644)
}
