package dataset

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	dbfs "github.com/banshee-data/calibkit/db"
	"github.com/banshee-data/calibkit/internal/board"
)

// Store persists sessions, samples, and solver results in SQLite so a
// capture run can be inspected or re-solved after the process exits.
// It implements SampleSink.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite database at path and applies any
// pending schema migrations.
func OpenStore(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open calibration store: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := migrateUp(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &Store{db: sqlDB}, nil
}

// migrateUp applies the embedded migrations. No-op when already at the
// latest version.
func migrateUp(sqlDB *sql.DB) error {
	src, err := iofs.New(dbfs.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// Note: the migrate instance is not closed because that would close the
	// underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (st *Store) Close() error {
	return st.db.Close()
}

// DB exposes the raw handle for tests and ad-hoc queries.
func (st *Store) DB() *sql.DB { return st.db }

// CreateSession records session metadata. Idempotent for the same id.
func (st *Store) CreateSession(sessionID string, geometry board.Geometry, frameWidth, frameHeight int) error {
	_, err := st.db.Exec(`
		INSERT INTO calib_sessions (
			session_id, board_type, board_width, board_height,
			frame_width, frame_height, created_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, sessionID, string(geometry.Type), geometry.Size.Width, geometry.Size.Height,
		frameWidth, frameHeight, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// InsertSample appends one captured sample. Point sets are stored as JSON
// arrays so the schema stays independent of board family.
func (st *Store) InsertSample(sessionID string, index int, s Sample) error {
	imagePoints, err := marshalOrNil(s.ImagePoints)
	if err != nil {
		return err
	}
	objectPoints, err := marshalOrNil(s.ObjectPoints)
	if err != nil {
		return err
	}
	charucoCorners, err := marshalOrNil(s.CharucoCorners)
	if err != nil {
		return err
	}
	charucoIDs, err := marshalOrNil(s.CharucoIDs)
	if err != nil {
		return err
	}

	_, err = st.db.Exec(`
		INSERT INTO calib_samples (
			session_id, sample_index, ts_unix_nanos,
			image_points, object_points, charuco_corners, charuco_ids
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sessionID, index, s.TSUnixNanos, imagePoints, objectPoints, charucoCorners, charucoIDs)
	if err != nil {
		return fmt.Errorf("insert sample %d: %w", index, err)
	}
	return nil
}

// ListSamples returns a session's samples ordered by capture index.
func (st *Store) ListSamples(sessionID string) ([]Sample, error) {
	rows, err := st.db.Query(`
		SELECT ts_unix_nanos, image_points, object_points, charuco_corners, charuco_ids
		FROM calib_samples
		WHERE session_id = ?
		ORDER BY sample_index
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var imagePoints, objectPoints, charucoCorners, charucoIDs sql.NullString
		if err := rows.Scan(&s.TSUnixNanos, &imagePoints, &objectPoints, &charucoCorners, &charucoIDs); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if err := unmarshalIfValid(imagePoints, &s.ImagePoints); err != nil {
			return nil, err
		}
		if err := unmarshalIfValid(objectPoints, &s.ObjectPoints); err != nil {
			return nil, err
		}
		if err := unmarshalIfValid(charucoCorners, &s.CharucoCorners); err != nil {
			return nil, err
		}
		if err := unmarshalIfValid(charucoIDs, &s.CharucoIDs); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// SaveResults upserts the solver's output for a session.
func (st *Store) SaveResults(sessionID string, r Results) error {
	if r.CameraMatrix == nil {
		return fmt.Errorf("save results: camera matrix is required")
	}
	camera := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			camera = append(camera, r.CameraMatrix.At(i, j))
		}
	}
	cameraJSON, err := json.Marshal(camera)
	if err != nil {
		return fmt.Errorf("marshal camera matrix: %w", err)
	}
	distJSON, err := json.Marshal(r.DistCoeffs)
	if err != nil {
		return fmt.Errorf("marshal dist coeffs: %w", err)
	}

	_, err = st.db.Exec(`
		INSERT INTO calib_results (session_id, camera_matrix, dist_coeffs, total_avg_err, solved_unix_nanos)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			camera_matrix = excluded.camera_matrix,
			dist_coeffs = excluded.dist_coeffs,
			total_avg_err = excluded.total_avg_err,
			solved_unix_nanos = excluded.solved_unix_nanos
	`, sessionID, string(cameraJSON), string(distJSON), r.TotalAvgErr, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	return nil
}

// LoadResults returns the stored solver output for a session, or ok=false
// when the session has not been solved.
func (st *Store) LoadResults(sessionID string) (Results, bool, error) {
	var cameraJSON, distJSON string
	var r Results
	err := st.db.QueryRow(`
		SELECT camera_matrix, dist_coeffs, total_avg_err
		FROM calib_results WHERE session_id = ?
	`, sessionID).Scan(&cameraJSON, &distJSON, &r.TotalAvgErr)
	if errors.Is(err, sql.ErrNoRows) {
		return Results{}, false, nil
	}
	if err != nil {
		return Results{}, false, fmt.Errorf("load results: %w", err)
	}

	var camera []float64
	if err := json.Unmarshal([]byte(cameraJSON), &camera); err != nil {
		return Results{}, false, fmt.Errorf("unmarshal camera matrix: %w", err)
	}
	if len(camera) != 9 {
		return Results{}, false, fmt.Errorf("camera matrix has %d elements, want 9", len(camera))
	}
	r.CameraMatrix = newDense3x3(camera)
	if err := json.Unmarshal([]byte(distJSON), &r.DistCoeffs); err != nil {
		return Results{}, false, fmt.Errorf("unmarshal dist coeffs: %w", err)
	}
	return r, true, nil
}

func marshalOrNil(v any) (any, error) {
	switch vv := v.(type) {
	case []board.Point2f:
		if len(vv) == 0 {
			return nil, nil
		}
	case []board.Point3f:
		if len(vv) == 0 {
			return nil, nil
		}
	case []int:
		if len(vv) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal points: %w", err)
	}
	return string(data), nil
}

func unmarshalIfValid(col sql.NullString, dst any) error {
	if !col.Valid {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		return fmt.Errorf("unmarshal points: %w", err)
	}
	return nil
}
