package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/jackc/pgx/stdlib"
)

// Env is the database connection configuration.
type Env struct {
	Dialect  string // clickhouse or postgres
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// FromEnv reads DB_DIALECT, DB_HOST, DB_PORT, DB_USER, DB_PASSWORD and
// DB_NAME.
func FromEnv() *Env {
	return &Env{
		Dialect:  os.Getenv("DB_DIALECT"),
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
	}
}

func (env *Env) port(def string) string {
	if env.Port == "" {
		return def
	}

	return env.Port
}

// Connect opens and pings the database.
func (env *Env) Connect() (*sql.DB, error) {
	switch strings.ToLower(env.Dialect) {
	case CH:
		dbName := env.DBName
		if dbName == "" {
			dbName = "default"
		}

		db := clickhouse.OpenDB(
			&clickhouse.Options{
				Addr: []string{env.Host + ":" + env.port("9000")},
				Auth: clickhouse.Auth{
					Database: dbName,
					Username: env.User,
					Password: env.Password,
				},
				DialTimeout: 300 * time.Second,
				Compression: &clickhouse.Compression{
					Method: clickhouse.CompressionLZ4,
					Level:  0,
				},
			})

		if e := db.Ping(); e != nil {
			return nil, fmt.Errorf("cannot reach clickhouse at %s: %w", env.Host, e)
		}

		return db, nil
	case PG:
		connectionStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
			env.User, env.Password, env.Host, env.port("5432"), env.DBName)

		db, e := sql.Open("pgx", connectionStr)
		if e != nil {
			return nil, e
		}

		if e := db.Ping(); e != nil {
			return nil, fmt.Errorf("cannot reach postgres at %s: %w", env.Host, e)
		}

		return db, nil
	}

	return nil, fmt.Errorf("unsupported dialect %q", env.Dialect)
}

// NewFromEnv connects using the environment and wraps the connection in a
// Dialect.
func NewFromEnv() (*Dialect, error) {
	env := FromEnv()

	db, e := env.Connect()
	if e != nil {
		return nil, e
	}

	return NewDialect(env.Dialect, db)
}
