package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// exportDateLayout is the timestamp format the platform's data export uses.
const exportDateLayout = "2006-01-02 15:04:05"

// exportFile mirrors the platform's account-data export structure down to
// the favorites list.
type exportFile struct {
	Activity struct {
		FavoriteVideos struct {
			List []exportEntry `json:"FavoriteVideoList"`
		} `json:"Favorite Videos"`
	} `json:"Your Activity"`
}

type exportEntry struct {
	Link string `json:"Link"`
	Date string `json:"Date"`
}

// ParseExport reads a platform data-export JSON file and returns its
// favorites as ingestable records. Entries with malformed dates keep a
// zero favorited time and are stamped at ingest.
func ParseExport(r io.Reader) ([]Record, error) {
	var export exportFile
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}

	entries := export.Activity.FavoriteVideos.List
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		record := Record{Link: entry.Link}
		if entry.Date != "" {
			if ts, err := time.Parse(exportDateLayout, entry.Date); err == nil {
				record.FavoritedAt = ts
			}
		}
		records = append(records, record)
	}
	return records, nil
}
