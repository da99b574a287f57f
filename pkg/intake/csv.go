package intake

import (
	"encoding/csv"
	"fmt"
	"os"
)

// ReadCSV loads an exported responses sheet. Rows may have differing lengths.
func ReadCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open responses file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read responses file: %w", err)
	}
	return rows, nil
}
