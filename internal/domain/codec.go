package domain

import (
	"fmt"

	"github.com/bytedance/sonic"
)

func encodeRecords(records []PriceRecord) ([]byte, error) {
	data, err := sonic.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode price records: %w", err)
	}
	return data, nil
}

func decodeRecords(data []byte) ([]PriceRecord, error) {
	var records []PriceRecord
	if err := sonic.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode price records: %w", err)
	}
	return records, nil
}

func encodeCatalog(catalog Catalog) ([]byte, error) {
	data, err := sonic.Marshal(catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return data, nil
}

func decodeCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := sonic.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return catalog, nil
}
