package worklist

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wagervs/go-token-distributor/entities"
)

// Read parses a work list CSV into work items. Required columns are asset,
// recipient and amount; an optional owner_key column overrides the default
// credential per row. Column order does not matter, header names are
// case-insensitive.
func Read(r io.Reader, defaultOwnerKey string) ([]entities.WorkItem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %v", err)
	}

	columns := make(map[string]int)
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"asset", "recipient", "amount"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("work list is missing required column %q", required)
		}
	}

	var items []entities.WorkItem
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %v", line, err)
		}

		item := entities.WorkItem{
			AssetID:   field(record, columns, "asset"),
			Recipient: field(record, columns, "recipient"),
			Amount:    field(record, columns, "amount"),
			OwnerKey:  field(record, columns, "owner_key"),
		}
		if item.OwnerKey == "" {
			item.OwnerKey = defaultOwnerKey
		}
		if item.AssetID == "" && item.Recipient == "" && item.Amount == "" {
			continue
		}

		items = append(items, item)
	}

	return items, nil
}

func ReadFile(path, defaultOwnerKey string) ([]entities.WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening work list: %v", err)
	}
	defer f.Close()

	return Read(f, defaultOwnerKey)
}

func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
