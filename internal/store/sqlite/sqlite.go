package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/qazaqedu/iquiz-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    TEXT NOT NULL,
	host_name  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	started_at DATETIME
);

CREATE TABLE IF NOT EXISTS joins (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id   TEXT NOT NULL,
	player_id TEXT NOT NULL,
	name      TEXT NOT NULL,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_rooms_created ON rooms(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_joins_room ON joins(room_id, joined_at);
`

// SQLiteArchive implements store.Archive on a SQLite database.
type SQLiteArchive struct {
	db *sql.DB
}

// New opens (and if needed initializes) the archive database at dbPath.
func New(dbPath string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteArchive{db: db}, nil
}

// Close closes the database connection.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

// RecordRoom archives a newly created room.
func (a *SQLiteArchive) RecordRoom(ctx context.Context, roomID, hostName string) error {
	query := `INSERT INTO rooms (room_id, host_name) VALUES (?, ?)`
	if _, err := a.db.ExecContext(ctx, query, roomID, hostName); err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// RecordJoin archives an accepted join.
func (a *SQLiteArchive) RecordJoin(ctx context.Context, roomID, playerID, name string) error {
	query := `INSERT INTO joins (room_id, player_id, name) VALUES (?, ?, ?)`
	if _, err := a.db.ExecContext(ctx, query, roomID, playerID, name); err != nil {
		return fmt.Errorf("insert join: %w", err)
	}
	return nil
}

// RecordStart stamps the room's start time.
func (a *SQLiteArchive) RecordStart(ctx context.Context, roomID string) error {
	query := `UPDATE rooms SET started_at = CURRENT_TIMESTAMP WHERE room_id = ? AND started_at IS NULL`
	if _, err := a.db.ExecContext(ctx, query, roomID); err != nil {
		return fmt.Errorf("update room start: %w", err)
	}
	return nil
}

// ListRecentRooms returns the most recently created rooms, newest first.
func (a *SQLiteArchive) ListRecentRooms(ctx context.Context, limit int) ([]store.RoomRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT r.id, r.room_id, r.host_name, r.created_at, r.started_at,
		       (SELECT COUNT(*) FROM joins j WHERE j.room_id = r.room_id) AS join_count
		FROM rooms r
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ?
	`
	rows, err := a.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent rooms: %w", err)
	}
	defer rows.Close()

	records := make([]store.RoomRecord, 0, limit)
	for rows.Next() {
		var rec store.RoomRecord
		var startedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.HostName, &rec.CreatedAt, &startedAt, &rec.JoinCount); err != nil {
			return nil, fmt.Errorf("scan room record: %w", err)
		}
		if startedAt.Valid {
			t := startedAt.Time
			rec.StartedAt = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room records: %w", err)
	}
	return records, nil
}

// ListJoins returns the joins for one room in join order.
func (a *SQLiteArchive) ListJoins(ctx context.Context, roomID string) ([]store.JoinRecord, error) {
	query := `
		SELECT id, room_id, player_id, name, joined_at
		FROM joins
		WHERE room_id = ?
		ORDER BY joined_at ASC, id ASC
	`
	rows, err := a.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query joins: %w", err)
	}
	defer rows.Close()

	var records []store.JoinRecord
	for rows.Next() {
		var rec store.JoinRecord
		var joinedAt time.Time
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.PlayerID, &rec.Name, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan join record: %w", err)
		}
		rec.JoinedAt = joinedAt
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate join records: %w", err)
	}
	return records, nil
}
