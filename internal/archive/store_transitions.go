package archive

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TransitionStage performs the optimistic compare-and-set that underpins all
// stage claims: the stage column moves from → to only if it still holds the
// expected value. applied=false means another worker won the race and the
// caller must discard its work. This is the sole dedup mechanism; dispatch
// messages are hints.
func (s *Store) TransitionStage(ctx context.Context, id string, stage Stage, from, to StageStatus) (bool, error) {
	col := statusColumn(stage)
	now := formatTime(time.Now())

	set := col + " = ?, updated_at = ?"
	args := []any{string(to), now}
	if to == StatusProcessing {
		set += ", last_heartbeat = ?"
		args = append(args, now)
	} else {
		set += ", last_heartbeat = NULL"
	}
	args = append(args, id, string(from))

	res, err := s.execWithRetry(
		ctx,
		"UPDATE items SET "+set+" WHERE id = ? AND "+col+" = ?",
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("transition %s %s %s->%s: %w", id, stage, from, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition %s %s: %w", id, stage, err)
	}
	return affected > 0, nil
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	); err != nil {
		return fmt.Errorf("update heartbeat %s: %w", id, err)
	}
	return nil
}

// ReclaimStale returns queued and processing claims whose heartbeat (or, for
// queued items that never got one, last update) predates the cutoff back to
// pending across every stage. Returns the number of reclaimed claims.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := formatTime(time.Now())
	cut := formatTime(cutoff)
	var total int64
	for _, stage := range Stages {
		col := statusColumn(stage)
		res, err := s.execWithRetry(
			ctx,
			`UPDATE items SET `+col+` = 'pending', last_heartbeat = NULL, updated_at = ?
             WHERE `+col+` IN ('queued', 'processing')
               AND COALESCE(last_heartbeat, updated_at) < ?`,
			now, cut,
		)
		if err != nil {
			return total, fmt.Errorf("reclaim stale %s claims: %w", stage, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("reclaim stale %s claims: %w", stage, err)
		}
		total += affected
	}
	return total, nil
}

// RetryFailed moves failed items for the stage back to pending. With no ids
// every failed item for the stage is retried.
func (s *Store) RetryFailed(ctx context.Context, stage Stage, ids ...string) (int64, error) {
	col := statusColumn(stage)
	now := formatTime(time.Now())

	query := `UPDATE items SET ` + col + ` = 'pending', stage_error = NULL, updated_at = ?
        WHERE ` + col + ` = 'failed'`
	args := []any{now}
	if len(ids) > 0 {
		placeholders := make([]string, len(ids))
		for i, id := range ids {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += ` AND id IN (` + strings.Join(placeholders, ", ") + `)`
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed %s items: %w", stage, err)
	}
	return res.RowsAffected()
}

// SetContentType fixes the content type before download when ingestion
// already knows it, resolving derived-stage applicability in the same
// statement. Only an unset content type is written; the download result
// remains authoritative for what was actually fetched.
func (s *Store) SetContentType(ctx context.Context, id string, ct ContentType) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items SET
            content_type = ?,
            transcription_status = CASE WHEN ? = 'video' THEN transcription_status ELSE 'not_applicable' END,
            ocr_status = CASE WHEN ? = 'images' THEN ocr_status ELSE 'not_applicable' END,
            updated_at = ?
         WHERE id = ? AND content_type IS NULL`,
		string(ct), string(ct), string(ct), formatTime(time.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("set content type %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// SetDownloaded records a completed download in one atomic statement: the
// source metadata, the on-disk paths, and the stage statuses the content
// type implies. The write is guarded on processing so a reclaimed claim
// cannot clobber a later run. A derived stage wrongly marked inapplicable
// by a mis-declared ingest content type is reopened here.
func (s *Store) SetDownloaded(ctx context.Context, id string, result DownloadResult) (bool, error) {
	var created any
	if !result.CreatedAt.IsZero() {
		created = formatTime(result.CreatedAt)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items SET
            title = ?, uploader = ?, uploader_id = ?, description = ?,
            content_type = ?, duration_seconds = ?, image_count = ?,
            media_path = ?, thumbnail_path = ?, created_at = ?,
            download_status = 'done',
            transcription_status = CASE WHEN ? = 'video'
                THEN (CASE WHEN transcription_status = 'not_applicable' THEN 'pending' ELSE transcription_status END)
                ELSE 'not_applicable' END,
            ocr_status = CASE WHEN ? = 'images'
                THEN (CASE WHEN ocr_status = 'not_applicable' THEN 'pending' ELSE ocr_status END)
                ELSE 'not_applicable' END,
            stage_error = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND download_status = 'processing'`,
		result.Title,
		result.Uploader,
		result.UploaderID,
		result.Description,
		string(result.ContentType),
		result.DurationSeconds,
		result.ImageCount,
		result.MediaPath,
		result.ThumbnailPath,
		created,
		string(result.ContentType),
		string(result.ContentType),
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("set downloaded %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set downloaded %s: %w", id, err)
	}
	return affected > 0, nil
}

// SetTranscription stores the transcript and completes the transcription
// stage, guarded on processing.
func (s *Store) SetTranscription(ctx context.Context, id, text string) (bool, error) {
	return s.setDerivedText(ctx, id, "transcription_status", "transcription_text", text)
}

// SetOCRText stores the extracted image text and completes the OCR stage,
// guarded on processing.
func (s *Store) SetOCRText(ctx context.Context, id, text string) (bool, error) {
	return s.setDerivedText(ctx, id, "ocr_status", "ocr_text", text)
}

func (s *Store) setDerivedText(ctx context.Context, id, statusCol, textCol, text string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items SET `+textCol+` = ?, `+statusCol+` = 'done',
            stage_error = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND `+statusCol+` = 'processing'`,
		text, formatTime(time.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("set %s %s: %w", textCol, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set %s %s: %w", textCol, id, err)
	}
	return affected > 0, nil
}

// SetAutotagDone completes the autotag stage, guarded on processing. Tag
// assignments themselves live in item_tags.
func (s *Store) SetAutotagDone(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items SET autotag_status = 'done', stage_error = NULL,
            last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND autotag_status = 'processing'`,
		formatTime(time.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("set autotag done %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set autotag done %s: %w", id, err)
	}
	return affected > 0, nil
}

// MarkStageFailed records a stage failure with its reason. Accepted from
// queued as well as processing so shutdown can fail undispatched claims.
func (s *Store) MarkStageFailed(ctx context.Context, id string, stage Stage, reason string) (bool, error) {
	col := statusColumn(stage)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items SET `+col+` = 'failed', stage_error = ?,
            last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND `+col+` IN ('queued', 'processing')`,
		reason, formatTime(time.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("mark %s failed %s: %w", stage, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark %s failed %s: %w", stage, id, err)
	}
	return affected > 0, nil
}

// MarkSourceGone flags an item whose source post no longer exists.
func (s *Store) MarkSourceGone(ctx context.Context, id string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE items SET source_gone = 1, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id,
	); err != nil {
		return fmt.Errorf("mark source gone %s: %w", id, err)
	}
	return nil
}

// MarkSourcePrivate flags an item whose source post became private.
func (s *Store) MarkSourcePrivate(ctx context.Context, id string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE items SET source_private = 1, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id,
	); err != nil {
		return fmt.Errorf("mark source private %s: %w", id, err)
	}
	return nil
}
