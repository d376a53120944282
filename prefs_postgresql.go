package chat

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPrefsPostgreSQL opens the PostgreSQL preference database
// at the specified connection string.
// The schema is the one documented on PrefsSQL.
func NewPrefsPostgreSQL(conn string) (*PrefsSQL, error) {
	db, err := sql.Open("postgres", conn)
	if err != nil {
		return nil, err
	}

	return newPrefsSQL(db, bindDollar)
}
