package chat

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// PrefsSQL stores preferences in an SQL database.
// All tables are rewritten in a single transaction on Save.
//
// Tables:
//
//	chat_mode (id TEXT PRIMARY KEY, mode TEXT)
//	dm_setting (id TEXT PRIMARY KEY, enabled INTEGER)
//	ignore_entry (id TEXT, ignored TEXT, PRIMARY KEY (id, ignored))
//	mute (id TEXT PRIMARY KEY, expires_at INTEGER, reason TEXT, issuer TEXT)
type PrefsSQL struct {
	db *sql.DB
	// bind rewrites ? placeholders for the driver.
	bind func(query string) string
}

var sqlPrefsSchema = []string{
	`CREATE TABLE IF NOT EXISTS chat_mode (
	id TEXT PRIMARY KEY NOT NULL,
	mode TEXT NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS dm_setting (
	id TEXT PRIMARY KEY NOT NULL,
	enabled INTEGER NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS ignore_entry (
	id TEXT NOT NULL,
	ignored TEXT NOT NULL,
	PRIMARY KEY (id, ignored));`,
	`CREATE TABLE IF NOT EXISTS mute (
	id TEXT PRIMARY KEY NOT NULL,
	expires_at BIGINT NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT '',
	issuer TEXT NOT NULL DEFAULT '');`,
}

// NewPrefsSQLite opens the SQLite preference database at path.
// driver is either sqlite3 (cgo) or sqlite (pure Go).
func NewPrefsSQLite(driver, path string) (*PrefsSQL, error) {
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	return newPrefsSQL(db, func(q string) string { return q })
}

func newPrefsSQL(db *sql.DB, bind func(string) string) (*PrefsSQL, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	for _, stmt := range sqlPrefsSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &PrefsSQL{db: db, bind: bind}, nil
}

// Load reads all tables. Rows with invalid identities are skipped.
func (ps *PrefsSQL) Load() (Prefs, error) {
	prefs := NewPrefs()

	if err := ps.each(`SELECT id, mode FROM chat_mode;`, func(rows *sql.Rows) error {
		var id, mode string
		if err := rows.Scan(&id, &mode); err != nil {
			return err
		}

		uid, err := uuid.Parse(id)
		if err != nil {
			return nil
		}

		if m, err := ParseChatMode(mode); err == nil {
			prefs.ChatModes[uid] = m
		}

		return nil
	}); err != nil {
		return Prefs{}, err
	}

	if err := ps.each(`SELECT id, enabled FROM dm_setting;`, func(rows *sql.Rows) error {
		var id string
		var enabled int
		if err := rows.Scan(&id, &enabled); err != nil {
			return err
		}

		if uid, err := uuid.Parse(id); err == nil {
			prefs.DMEnabled[uid] = enabled != 0
		}

		return nil
	}); err != nil {
		return Prefs{}, err
	}

	if err := ps.each(`SELECT id, ignored FROM ignore_entry;`, func(rows *sql.Rows) error {
		var id, ignored string
		if err := rows.Scan(&id, &ignored); err != nil {
			return err
		}

		uid, err := uuid.Parse(id)
		if err != nil {
			return nil
		}

		other, err := uuid.Parse(ignored)
		if err != nil {
			return nil
		}

		if prefs.Ignores[uid] == nil {
			prefs.Ignores[uid] = make(map[Identity]struct{})
		}

		prefs.Ignores[uid][other] = struct{}{}
		return nil
	}); err != nil {
		return Prefs{}, err
	}

	if err := ps.each(`SELECT id, expires_at, reason, issuer FROM mute;`, func(rows *sql.Rows) error {
		var id, reason, issuer string
		var until int64
		if err := rows.Scan(&id, &until, &reason, &issuer); err != nil {
			return err
		}

		uid, err := uuid.Parse(id)
		if err != nil {
			return nil
		}

		m := Mute{ID: uid, Reason: reason, Issuer: issuer}
		if until != 0 {
			m.Until = time.Unix(until, 0)
		}

		prefs.Mutes[uid] = m
		return nil
	}); err != nil {
		return Prefs{}, err
	}

	return prefs, nil
}

func (ps *PrefsSQL) each(query string, scan func(*sql.Rows) error) error {
	rows, err := ps.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}

	return rows.Err()
}

// Save replaces the contents of all tables.
func (ps *PrefsSQL) Save(p Prefs) error {
	tx, err := ps.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"chat_mode", "dm_setting", "ignore_entry", "mute"} {
		if _, err := tx.Exec(`DELETE FROM ` + table + `;`); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for id, mode := range p.ChatModes {
		if _, err := tx.Exec(ps.bind(`INSERT INTO chat_mode (id, mode) VALUES (?, ?);`), id.String(), mode.String()); err != nil {
			return err
		}
	}

	for id, enabled := range p.DMEnabled {
		var v int
		if enabled {
			v = 1
		}

		if _, err := tx.Exec(ps.bind(`INSERT INTO dm_setting (id, enabled) VALUES (?, ?);`), id.String(), v); err != nil {
			return err
		}
	}

	for id, set := range p.Ignores {
		for other := range set {
			if _, err := tx.Exec(ps.bind(`INSERT INTO ignore_entry (id, ignored) VALUES (?, ?);`), id.String(), other.String()); err != nil {
				return err
			}
		}
	}

	for id, m := range p.Mutes {
		var until int64
		if !m.Permanent() {
			until = m.Until.Unix()
		}

		if _, err := tx.Exec(ps.bind(`INSERT INTO mute (id, expires_at, reason, issuer) VALUES (?, ?, ?, ?);`), id.String(), until, m.Reason, m.Issuer); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (ps *PrefsSQL) Close() error {
	return ps.db.Close()
}

// bindDollar rewrites ? placeholders to $1, $2, ...
func bindDollar(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}
