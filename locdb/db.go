// Package locdb stores localization tables in a SQLite database so many
// conversions can be collected, listed and reloaded in one file.
package locdb

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

// DB is an open localization database. The embedded *sql.DB stays
// available for ad hoc queries.
type DB struct {
	*sql.DB
}

// Dataset describes one stored table.
type Dataset struct {
	ID      string
	Name    string
	Rows    int
	Columns int
	Created time.Time
}

// Open opens or creates the SQLite database at path and makes sure its
// tables exist.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS datasets (
			dataset_id        TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			n_rows            INTEGER NOT NULL,
			created_unix_ns   INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS dataset_columns (
			dataset_id        TEXT NOT NULL,
			position          INTEGER NOT NULL,
			column_name       TEXT NOT NULL,
			PRIMARY KEY (dataset_id, position),
			FOREIGN KEY(dataset_id) REFERENCES datasets(dataset_id)
		);
		CREATE TABLE IF NOT EXISTS cells (
			dataset_id        TEXT NOT NULL,
			column_name       TEXT NOT NULL,
			row_index         INTEGER NOT NULL,
			value             DOUBLE,
			PRIMARY KEY (dataset_id, column_name, row_index),
			FOREIGN KEY(dataset_id) REFERENCES datasets(dataset_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema: %v", utils.ErrIOFailure, err)
	}

	return &DB{db}, nil
}

// Save stores t under a new dataset id. NaN cells are stored as NULL.
func (db *DB) Save(name string, t *table.Table) (string, error) {
	id := uuid.NewString()

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO datasets (dataset_id, name, n_rows, created_unix_ns) VALUES (?, ?, ?, ?)`,
		id, name, t.Len(), time.Now().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("%w: insert dataset: %v", utils.ErrIOFailure, err)
	}

	colStmt, err := tx.Prepare(`INSERT INTO dataset_columns (dataset_id, position, column_name) VALUES (?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	defer colStmt.Close()
	cellStmt, err := tx.Prepare(`INSERT INTO cells (dataset_id, column_name, row_index, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	defer cellStmt.Close()

	for pos, col := range t.Columns() {
		if _, err := colStmt.Exec(id, pos, col); err != nil {
			return "", fmt.Errorf("%w: insert column %s: %v", utils.ErrIOFailure, col, err)
		}
		for row, v := range t.Column(col) {
			var value any
			if !math.IsNaN(v) {
				value = v
			}
			if _, err := cellStmt.Exec(id, col, row, value); err != nil {
				return "", fmt.Errorf("%w: insert %s[%d]: %v", utils.ErrIOFailure, col, row, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	return id, nil
}

// Load rebuilds the table stored under id.
func (db *DB) Load(id string) (*table.Table, error) {
	var n int
	err := db.QueryRow(`SELECT n_rows FROM datasets WHERE dataset_id = ?`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no dataset %s", utils.ErrInvalidParameter, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}

	cols, err := db.columns(id)
	if err != nil {
		return nil, err
	}
	data := make(map[string][]float64, len(cols))
	for _, c := range cols {
		col := make([]float64, n)
		for i := range col {
			col[i] = math.NaN()
		}
		data[c] = col
	}

	rows, err := db.Query(`SELECT column_name, row_index, value FROM cells WHERE dataset_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	defer rows.Close()
	for rows.Next() {
		var col string
		var row int
		var value sql.NullFloat64
		if err := rows.Scan(&col, &row, &value); err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
		}
		dst, ok := data[col]
		if !ok || row < 0 || row >= n {
			return nil, fmt.Errorf("%w: stray cell %s[%d] in dataset %s", utils.ErrShapeMismatch, col, row, id)
		}
		if value.Valid {
			dst[row] = value.Float64
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}

	t := table.New(n)
	for _, c := range cols {
		if err := t.Set(c, data[c]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (db *DB) columns(id string) ([]string, error) {
	rows, err := db.Query(`SELECT column_name FROM dataset_columns WHERE dataset_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Datasets lists stored tables, oldest first.
func (db *DB) Datasets() ([]Dataset, error) {
	rows, err := db.Query(`
		SELECT d.dataset_id, d.name, d.n_rows, d.created_unix_ns,
		       (SELECT COUNT(*) FROM dataset_columns c WHERE c.dataset_id = d.dataset_id)
		FROM datasets d
		ORDER BY d.created_unix_ns, d.rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		var d Dataset
		var created int64
		if err := rows.Scan(&d.ID, &d.Name, &d.Rows, &created, &d.Columns); err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
		}
		d.Created = time.Unix(0, created)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes a dataset and its cells.
func (db *DB) Delete(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM datasets WHERE dataset_id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: no dataset %s", utils.ErrInvalidParameter, id)
	}
	for _, q := range []string{
		`DELETE FROM dataset_columns WHERE dataset_id = ?`,
		`DELETE FROM cells WHERE dataset_id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	return nil
}
