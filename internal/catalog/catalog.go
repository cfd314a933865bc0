package catalog

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"time"

	"splice/internal/aaf"
	"splice/internal/codec"
	"splice/internal/logging"
)

// FileInfo describes one indexed container file.
type FileInfo struct {
	Path       string
	FileID     string
	Generation uint64
	ByteOrder  string
	IndexedAt  time.Time
	Mobs       int
}

// MobSummary is what the catalog records about one mob.
type MobSummary struct {
	MobID    codec.MobID
	Kind     string
	Name     string
	Slots    int
	Created  time.Time
	Modified time.Time
}

// Location places a mob in a file.
type Location struct {
	Path string
	MobSummary
}

// Summarize collects the catalog view of an open file. Every mob is loaded.
func Summarize(f *aaf.File) (FileInfo, []MobSummary, error) {
	info := FileInfo{
		Path:       f.Path(),
		FileID:     f.FileID().String(),
		Generation: f.Generation(),
		ByteOrder:  "little",
	}
	if f.ByteOrder() == binary.BigEndian {
		info.ByteOrder = "big"
	}
	mobs, err := f.Storage().Mobs()
	if err != nil {
		return FileInfo{}, nil, err
	}
	out := make([]MobSummary, 0, len(mobs))
	for _, m := range mobs {
		id, err := m.ID()
		if err != nil {
			return FileInfo{}, nil, err
		}
		created, _ := m.CreationTime()
		modified, _ := m.LastModified()
		out = append(out, MobSummary{
			MobID:    id,
			Kind:     m.Kind().String(),
			Name:     m.Name(),
			Slots:    m.SlotCount(),
			Created:  created,
			Modified: modified,
		})
	}
	info.Mobs = len(out)
	return info, out, nil
}

// IndexFile records info and mobs, replacing whatever the catalog held for
// the same path.
func (c *Catalog) IndexFile(ctx context.Context, info FileInfo, mobs []MobSummary) error {
	path, err := filepath.Abs(info.Path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	indexedAt := info.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now()
	}
	err = c.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
			return fmt.Errorf("clear file: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO files (path, file_uuid, generation, byte_order, indexed_at) VALUES (?, ?, ?, ?, ?)`,
			path, info.FileID, int64(info.Generation), info.ByteOrder, nullableTime(indexedAt),
		)
		if err != nil {
			return fmt.Errorf("insert file: %w", err)
		}
		fileID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		for _, m := range mobs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO mobs (file_id, mob_id, kind, name, slot_count, created_at, modified_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				fileID, m.MobID.String(), m.Kind, nullableString(m.Name), m.Slots,
				nullableTime(m.Created), nullableTime(m.Modified),
			); err != nil {
				return fmt.Errorf("insert mob %s: %w", m.MobID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Info("file indexed",
		logging.String(logging.FieldEventType, "catalog_indexed"),
		logging.String(logging.FieldPath, path),
		logging.Int("mobs", len(mobs)),
	)
	return nil
}

// IndexOpen summarizes f and indexes it.
func (c *Catalog) IndexOpen(ctx context.Context, f *aaf.File) error {
	info, mobs, err := Summarize(f)
	if err != nil {
		return err
	}
	return c.IndexFile(ctx, info, mobs)
}

// FindMob returns every indexed file that defines the mob, newest index
// first.
func (c *Catalog) FindMob(ctx context.Context, id codec.MobID) ([]Location, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT f.path, m.mob_id, m.kind, m.name, m.slot_count, m.created_at, m.modified_at
         FROM mobs m JOIN files f ON f.id = m.file_id
         WHERE m.mob_id = ?
         ORDER BY f.indexed_at DESC, f.path`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("find mob: %w", err)
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var (
			loc      Location
			rawID    string
			name     sql.NullString
			created  sql.NullString
			modified sql.NullString
		)
		if err := rows.Scan(&loc.Path, &rawID, &loc.Kind, &name, &loc.Slots, &created, &modified); err != nil {
			return nil, fmt.Errorf("scan mob: %w", err)
		}
		if loc.MobID, err = codec.ParseMobID(rawID); err != nil {
			return nil, fmt.Errorf("stored mob id %q: %w", rawID, err)
		}
		loc.Name = name.String
		loc.Created = parseTime(created)
		loc.Modified = parseTime(modified)
		out = append(out, loc)
	}
	return out, rows.Err()
}

// ListFiles returns every indexed file ordered by path.
func (c *Catalog) ListFiles(ctx context.Context) ([]FileInfo, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT f.path, f.file_uuid, f.generation, f.byte_order, f.indexed_at,
                (SELECT COUNT(1) FROM mobs m WHERE m.file_id = f.id)
         FROM files f ORDER BY f.path`,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []FileInfo
	for rows.Next() {
		var (
			info       FileInfo
			generation int64
			indexedAt  sql.NullString
		)
		if err := rows.Scan(&info.Path, &info.FileID, &generation, &info.ByteOrder, &indexedAt, &info.Mobs); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		info.Generation = uint64(generation)
		info.IndexedAt = parseTime(indexedAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Remove drops path and its mobs from the catalog. It reports whether the
// path was indexed.
func (c *Catalog) Remove(ctx context.Context, path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolve path: %w", err)
	}
	var removed int64
	err = c.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, abs)
		if err != nil {
			return fmt.Errorf("remove file: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// Prune removes indexed files that no longer exist on disk and returns
// their paths.
func (c *Catalog) Prune(ctx context.Context, exists func(path string) bool) ([]string, error) {
	files, err := c.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	var gone []string
	for _, f := range files {
		if exists(f.Path) {
			continue
		}
		if _, err := c.Remove(ctx, f.Path); err != nil {
			return gone, fmt.Errorf("prune %s: %w", f.Path, err)
		}
		gone = append(gone, f.Path)
	}
	return gone, nil
}
