package archive

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/quillaja/cloudsim/internal/errs"
)

const schema = `
CREATE TABLE IF NOT EXISTS bodies (
	run 	TEXT,
	frame 	INTEGER,
	age 	REAL,
	id 		INTEGER, -- particle index
	origin 	INTEGER,
	type 	TEXT,
	x 		REAL,
	y 		REAL,
	z 		REAL,
	mass 	REAL,
	radius 	REAL);
`

const indices = `
CREATE INDEX IF NOT EXISTS idx_frame ON bodies (run, frame, id);
CREATE INDEX IF NOT EXISTS idx_id ON bodies (id);
CREATE INDEX IF NOT EXISTS idx_mass ON bodies (mass);
`

const insert = `INSERT INTO bodies VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
const queryFrame = `SELECT age, id, origin, type, x, y, z, mass, radius FROM bodies WHERE run = ? AND frame = ? ORDER BY id ASC;`
const queryRuns = `SELECT DISTINCT run FROM bodies ORDER BY run;`

// DB is a sqlite frame archive. Sqlite allows one writer at a time, so a
// single goroutine should feed WriteFrame.
type DB struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Create makes a new archive in filename, which must not exist yet.
func Create(filename string) (*DB, error) {
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("archive %q: %w", filename, errs.ErrDuplicateName)
	}
	return open(filename)
}

// Open opens an existing archive or creates an empty one.
func Open(filename string) (*DB, error) {
	return open(filename)
}

func open(filename string) (*DB, error) {
	db, err := sql.Open("sqlite3", "file:"+filename+"?_journal_mode=OFF&_synchronous=OFF")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	stmt, err := db.Prepare(insert)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db, insert: stmt}, nil
}

// CreateIndices builds the lookup indices. It is cheaper to call once after
// the last frame than to maintain them while writing.
func (d *DB) CreateIndices() error {
	_, err := d.db.Exec(indices)
	return err
}

// WriteFrame inserts every body of f in one transaction.
func (d *DB) WriteFrame(f Frame) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	stmt := tx.Stmt(d.insert)
	run := f.Run.String()
	for _, b := range f.Bodies {
		_, err = stmt.Exec(run, f.Frame, f.Age, b.ID, b.Origin, b.Type, b.X, b.Y, b.Z, b.Mass, b.Radius)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("frame %d body %d: %w", f.Frame, b.ID, err)
		}
	}
	return tx.Commit()
}

// ReadFrame loads one frame of run. A frame with no rows is ErrNotFound.
func (d *DB) ReadFrame(run uuid.UUID, frame int) (Frame, error) {
	rows, err := d.db.Query(queryFrame, run.String(), frame)
	if err != nil {
		return Frame{}, err
	}
	defer rows.Close()

	f := Frame{Run: run, Frame: frame}
	for rows.Next() {
		var b Body
		if err := rows.Scan(&f.Age, &b.ID, &b.Origin, &b.Type, &b.X, &b.Y, &b.Z, &b.Mass, &b.Radius); err != nil {
			return Frame{}, err
		}
		f.Bodies = append(f.Bodies, b)
	}
	if err := rows.Err(); err != nil {
		return Frame{}, err
	}
	if len(f.Bodies) == 0 {
		return Frame{}, fmt.Errorf("run %s frame %d: %w", run, frame, errs.ErrNotFound)
	}
	return f, nil
}

// Runs lists the run ids present in the archive.
func (d *DB) Runs() ([]uuid.UUID, error) {
	rows, err := d.db.Query(queryRuns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []uuid.UUID
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", s, errs.ErrInvalidArgument)
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

func (d *DB) Close() error {
	d.insert.Close()
	return d.db.Close()
}
