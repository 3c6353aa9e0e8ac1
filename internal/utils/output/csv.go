package output

import (
	"encoding/csv"
	"os"
	"sort"

	"github.com/law-makers/harvest/pkg/models"
)

// columnOrder returns the union of field names across entities, with the
// common fields first and the rest alphabetical.
func columnOrder(entities []models.Entity) []string {
	preferred := []string{"name", "price", "url", "image", "description"}

	seen := make(map[string]bool)
	for i := range entities {
		for k := range entities[i].Fields {
			seen[k] = true
		}
	}

	var headers []string
	for _, h := range preferred {
		if seen[h] {
			headers = append(headers, h)
			delete(seen, h)
		}
	}
	var rest []string
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(headers, rest...)
}

// SaveCSV writes extracted entities to a CSV file, one row per entity.
func SaveCSV(entities []models.Entity, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	headers := columnOrder(entities)
	if err := writer.Write(headers); err != nil {
		return err
	}

	for i := range entities {
		row := make([]string, len(headers))
		for j, h := range headers {
			row[j] = entities[i].Fields[h]
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}
