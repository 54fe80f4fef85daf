// Package repository хранит состояние трекера: JSON-файл или PostgreSQL.
package repository

import (
	"database/sql"
	"fmt"

	"preventivi/internal/tracker"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

var (
	_ tracker.Store = (*FileStore)(nil)
	_ tracker.Store = (*PostgresStore)(nil)
)

// Open возвращает хранилище по имени драйвера. Для postgres db должен быть открыт,
// opts применяются только к файловому хранилищу.
func Open(driver, path string, db *sql.DB, opts ...FileOption) (tracker.Store, error) {
	switch driver {
	case DriverFile, "":
		return NewFileStore(path, opts...), nil
	case DriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres: нет подключения к базе")
		}
		return NewPostgresStore(db), nil
	default:
		return nil, fmt.Errorf("неизвестный драйвер хранилища %q", driver)
	}
}
