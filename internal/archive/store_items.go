package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const itemColumns = `id, title, uploader, uploader_id, description, source_url,
    content_type, duration_seconds, image_count, media_path, thumbnail_path,
    created_at, favorited_at, ingested_at, updated_at,
    download_status, transcription_status, ocr_status, autotag_status,
    transcription_text, ocr_text, stage_error, source_gone, source_private,
    last_heartbeat`

// InsertItem records a newly ingested favorite. Insertion is idempotent by
// id; inserted reports whether a new row was created. Metadata beyond the
// source link and favorited time arrives later from the download stage.
func (s *Store) InsertItem(ctx context.Context, id, sourceURL string, favoritedAt time.Time) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errors.New("item id is required")
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT OR IGNORE INTO items (id, source_url, favorited_at, ingested_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		id,
		sourceURL,
		formatTime(favoritedAt),
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("insert item %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert item %s: %w", id, err)
	}
	return affected > 0, nil
}

// GetItem fetches one item by id. Returns (nil, nil) when absent.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

// UpdateItemMetadata refreshes descriptive fields without touching any
// status column.
func (s *Store) UpdateItemMetadata(ctx context.Context, id string, meta ItemMetadata) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE items SET title = ?, uploader = ?, uploader_id = ?, description = ?,
            duration_seconds = ?, image_count = ?, updated_at = ?
         WHERE id = ?`,
		meta.Title, meta.Uploader, meta.UploaderID, meta.Description,
		meta.DurationSeconds, meta.ImageCount, formatTime(time.Now()), id,
	); err != nil {
		return fmt.Errorf("update item metadata %s: %w", id, err)
	}
	return nil
}

// EligibleForStage enumerates items whose status fields make them runnable
// for the stage, oldest favorite first. The derived stages gate on content
// type and a completed download; autotag additionally needs derived text.
func (s *Store) EligibleForStage(ctx context.Context, stage Stage, limit int) ([]*Item, error) {
	var where string
	switch stage {
	case StageDownload:
		where = `download_status = 'pending'`
	case StageTranscription:
		where = `content_type = 'video' AND download_status = 'done' AND transcription_status = 'pending'`
	case StageOCR:
		where = `content_type = 'images' AND download_status = 'done' AND ocr_status = 'pending'`
	case StageAutotag:
		where = `autotag_status = 'pending' AND (transcription_status = 'done' OR ocr_status = 'done')`
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}

	query := `SELECT ` + itemColumns + ` FROM items WHERE ` + where + ` ORDER BY favorited_at ASC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list eligible for %s: %w", stage, err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan eligible item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               string
		title            sql.NullString
		uploader         sql.NullString
		uploaderID       sql.NullString
		description      sql.NullString
		sourceURL        sql.NullString
		contentType      sql.NullString
		duration         sql.NullFloat64
		imageCount       sql.NullInt64
		mediaPath        sql.NullString
		thumbnailPath    sql.NullString
		createdRaw       sql.NullString
		favoritedRaw     sql.NullString
		ingestedRaw      sql.NullString
		updatedRaw       sql.NullString
		downloadStatus   string
		transcription    string
		ocr              string
		autotag          string
		transcriptText   sql.NullString
		ocrText          sql.NullString
		stageError       sql.NullString
		sourceGone       sql.NullInt64
		sourcePrivate    sql.NullInt64
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&uploader,
		&uploaderID,
		&description,
		&sourceURL,
		&contentType,
		&duration,
		&imageCount,
		&mediaPath,
		&thumbnailPath,
		&createdRaw,
		&favoritedRaw,
		&ingestedRaw,
		&updatedRaw,
		&downloadStatus,
		&transcription,
		&ocr,
		&autotag,
		&transcriptText,
		&ocrText,
		&stageError,
		&sourceGone,
		&sourcePrivate,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:                  id,
		Title:               title.String,
		Uploader:            uploader.String,
		UploaderID:          uploaderID.String,
		Description:         description.String,
		SourceURL:           sourceURL.String,
		ContentType:         ContentType(contentType.String),
		DurationSeconds:     duration.Float64,
		ImageCount:          int(imageCount.Int64),
		MediaPath:           mediaPath.String,
		ThumbnailPath:       thumbnailPath.String,
		CreatedAt:           parseTime(createdRaw.String),
		FavoritedAt:         parseTime(favoritedRaw.String),
		IngestedAt:          parseTime(ingestedRaw.String),
		UpdatedAt:           parseTime(updatedRaw.String),
		DownloadStatus:      StageStatus(downloadStatus),
		TranscriptionStatus: StageStatus(transcription),
		OCRStatus:           StageStatus(ocr),
		AutotagStatus:       StageStatus(autotag),
		TranscriptionText:   transcriptText.String,
		OCRText:             ocrText.String,
		StageError:          stageError.String,
		SourceGone:          sourceGone.Int64 != 0,
		SourcePrivate:       sourcePrivate.Int64 != 0,
	}
	if lastHeartbeatRaw.Valid {
		if ts := parseTime(lastHeartbeatRaw.String); !ts.IsZero() {
			item.LastHeartbeat = &ts
		}
	}
	return item, nil
}
