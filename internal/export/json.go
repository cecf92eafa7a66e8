package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spigell/resume-extractor/internal/batch"
)

// JSON writes the selected records as an indented array.
func JSON(records []batch.Record, path string, filter Filter) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Select(records, filter)); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return file.Close()
}
