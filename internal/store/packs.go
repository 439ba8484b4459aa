package store

import (
	"database/sql"
	"fmt"
)

// InsertPack inserts a detected pack and sets its assigned ID.
func (s *Store) InsertPack(p *PackRow) error {
	result, err := s.db.Exec(`
		INSERT INTO packs (pack_uuid, name, source_path, pack_type, confidence,
			reasoning_json, audio_count, preset_count, other_count, total_size,
			needs_reorg, should_extract, should_recurse, parent_pack_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.PackUUID, p.Name, p.SourcePath, p.PackType, p.Confidence,
		p.ReasoningJSON, p.AudioCount, p.PresetCount, p.OtherCount, p.TotalSize,
		p.NeedsReorg, p.ShouldExtract, p.ShouldRecurse, p.ParentPackID)
	if err != nil {
		return fmt.Errorf("failed to insert pack: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get pack ID: %w", err)
	}
	p.ID = id
	return nil
}

func scanPackRow(row interface {
	Scan(dest ...any) error
}) (*PackRow, error) {
	p := &PackRow{}
	err := row.Scan(&p.ID, &p.PackUUID, &p.Name, &p.SourcePath, &p.PackType,
		&p.Confidence, &p.ReasoningJSON, &p.AudioCount, &p.PresetCount,
		&p.OtherCount, &p.TotalSize, &p.NeedsReorg, &p.ShouldExtract,
		&p.ShouldRecurse, &p.ParentPackID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

const packColumns = `id, pack_uuid, name, source_path, pack_type, confidence,
	COALESCE(reasoning_json, ''), audio_count, preset_count, other_count,
	total_size, needs_reorg, should_extract, should_recurse, parent_pack_id,
	created_at`

// GetPackByID retrieves a pack by its row ID.
func (s *Store) GetPackByID(id int64) (*PackRow, error) {
	row := s.db.QueryRow(`SELECT `+packColumns+` FROM packs WHERE id = ?`, id)
	p, err := scanPackRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pack: %w", err)
	}
	return p, nil
}

// GetAllPacks retrieves every detected pack, ordered by source path.
func (s *Store) GetAllPacks() ([]*PackRow, error) {
	rows, err := s.db.Query(`SELECT ` + packColumns + ` FROM packs ORDER BY source_path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query packs: %w", err)
	}
	defer rows.Close()

	var packs []*PackRow
	for rows.Next() {
		p, err := scanPackRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pack: %w", err)
		}
		packs = append(packs, p)
	}
	return packs, rows.Err()
}

// GetPacksByType retrieves packs with a given pack type.
func (s *Store) GetPacksByType(packType string) ([]*PackRow, error) {
	rows, err := s.db.Query(`SELECT `+packColumns+` FROM packs WHERE pack_type = ? ORDER BY source_path`, packType)
	if err != nil {
		return nil, fmt.Errorf("failed to query packs: %w", err)
	}
	defer rows.Close()

	var packs []*PackRow
	for rows.Next() {
		p, err := scanPackRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pack: %w", err)
		}
		packs = append(packs, p)
	}
	return packs, rows.Err()
}

// ClearPacks removes all pack rows (for idempotent re-detection).
func (s *Store) ClearPacks() error {
	_, err := s.db.Exec(`DELETE FROM packs`)
	return err
}
