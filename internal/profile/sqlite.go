package profile

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sections (
	run_id                 TEXT NOT NULL REFERENCES runs(run_id),
	seq                    INTEGER NOT NULL,
	title                  TEXT NOT NULL,
	execution_time_seconds REAL NOT NULL,
	exports                TEXT,
	knobs                  TEXT,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS section_values (
	run_id TEXT NOT NULL,
	seq    INTEGER NOT NULL,
	name   TEXT NOT NULL,
	value  REAL,
	PRIMARY KEY (run_id, seq, name)
);
`

// saveSQLite adds the run to a SQLite database, creating the schema when
// needed. A database may hold many runs.
func saveSQLite(path string, p *Profile) (err error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open profile database %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create profile schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`,
		p.RunID, p.StartedAt.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	for seq, r := range p.Records {
		exports, err := marshalNullable(r.Exports)
		if err != nil {
			return fmt.Errorf("section %q exports: %w", r.Title, err)
		}
		knobs, err := marshalNullable(r.Knobs)
		if err != nil {
			return fmt.Errorf("section %q knobs: %w", r.Title, err)
		}
		if _, err = tx.Exec(`INSERT INTO sections (run_id, seq, title, execution_time_seconds, exports, knobs) VALUES (?, ?, ?, ?, ?, ?)`,
			p.RunID, seq, r.Title, r.ExecutionTimeSeconds, exports, knobs); err != nil {
			return fmt.Errorf("failed to insert section %q: %w", r.Title, err)
		}
		for name, v := range r.Values {
			var value sql.NullFloat64
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				value = sql.NullFloat64{Float64: v, Valid: true}
			}
			if _, err = tx.Exec(`INSERT INTO section_values (run_id, seq, name, value) VALUES (?, ?, ?, ?)`,
				p.RunID, seq, name, value); err != nil {
				return fmt.Errorf("failed to insert value %q of section %q: %w", name, r.Title, err)
			}
		}
	}
	return tx.Commit()
}

// loadSQLite reads the most recent run of a profile database.
func loadSQLite(path string) (*Profile, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile database %s: %w", path, err)
	}
	defer db.Close()

	var p Profile
	var started string
	err = db.QueryRow(`SELECT run_id, started_at FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&p.RunID, &started)
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	if p.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("bad run start time %q: %w", started, err)
	}
	return &p, loadSections(db, &p)
}

func loadSections(db *sql.DB, p *Profile) error {
	rows, err := db.Query(`SELECT title, execution_time_seconds, exports, knobs FROM sections WHERE run_id = ? ORDER BY seq`, p.RunID)
	if err != nil {
		return fmt.Errorf("failed to read sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r Record
		var exports, knobs sql.NullString
		if err := rows.Scan(&r.Title, &r.ExecutionTimeSeconds, &exports, &knobs); err != nil {
			return err
		}
		if exports.Valid {
			if err := json.Unmarshal([]byte(exports.String), &r.Exports); err != nil {
				return fmt.Errorf("section %q exports: %w", r.Title, err)
			}
		}
		if knobs.Valid {
			if err := json.Unmarshal([]byte(knobs.String), &r.Knobs); err != nil {
				return fmt.Errorf("section %q knobs: %w", r.Title, err)
			}
		}
		r.Values = make(map[string]float64)
		p.Add(r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	values, err := db.Query(`SELECT seq, name, value FROM section_values WHERE run_id = ?`, p.RunID)
	if err != nil {
		return fmt.Errorf("failed to read values: %w", err)
	}
	defer values.Close()
	for values.Next() {
		var seq int
		var name string
		var v sql.NullFloat64
		if err := values.Scan(&seq, &name, &v); err != nil {
			return err
		}
		if seq < 0 || seq >= len(p.Records) {
			return fmt.Errorf("value %q refers to missing section %d", name, seq)
		}
		if v.Valid {
			p.Records[seq].Values[name] = v.Float64
		} else {
			p.Records[seq].Values[name] = math.NaN()
		}
	}
	return values.Err()
}

func marshalNullable(v any) (sql.NullString, error) {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	case map[string][]string:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
