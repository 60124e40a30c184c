package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jirevwe/litepool/accesslog"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

var createAccessLog = `create table if not exists access_log (
		id TEXT not null primary key,
		status TEXT not null,
		request_line TEXT not null,
		payload BLOB not null,
		created_at TEXT not null default (strftime('%Y-%m-%dT%H:%M:%fZ'))
	) strict;`

type row struct {
	Id          string `db:"id"`
	Status      string `db:"status"`
	RequestLine string `db:"request_line"`
	Payload     []byte `db:"payload"`
	CreatedAt   string `db:"created_at"`
}

type Sqlite struct {
	logger *slog.Logger
	db     *sqlx.DB
}

func NewSqlite(dbPath string, logger *slog.Logger) (*Sqlite, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?cache=shared&mode=rwc&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_size_limit = 67108864;",
		"PRAGMA mmap_size = 134217728;",
		"PRAGMA cache_size = 2000;",
	} {
		if _, err = db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	s := &Sqlite{db: db, logger: logger}

	ctx := context.Background()
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, createAccessLog)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Record writes an entry, assigning it an id if it has none
func (s *Sqlite) Record(ctx context.Context, entry *accesslog.Entry) error {
	if len(entry.Id) == 0 {
		entry.Id = ulid.Make().String()
	}

	payload, err := entry.Marshal()
	if err != nil {
		return fmt.Errorf("cannot encode entry %s: %w", entry.Id, err)
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		writeQuery := `insert into access_log (id, status, request_line, payload, created_at) values ($1, $2, $3, $4, $5)`
		_, innerErr := tx.ExecContext(ctx, writeQuery, entry.Id, entry.Status, entry.RequestLine, payload, entry.CreatedAtString())
		return innerErr
	})
}

// List returns up to limit entries, newest first
func (s *Sqlite) List(ctx context.Context, limit int) (entries []accesslog.Entry, err error) {
	rows, err := s.db.QueryxContext(ctx, `select * from access_log order by id desc limit $1;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r row
		if err = rows.StructScan(&r); err != nil {
			return nil, err
		}

		var e accesslog.Entry
		if err = e.Unmarshal(r.Payload); err != nil {
			return nil, fmt.Errorf("cannot decode entry %s: %w", r.Id, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *Sqlite) Count(ctx context.Context) (count int, err error) {
	err = s.db.GetContext(ctx, &count, `select count(*) from access_log;`)
	return count, err
}

func (s *Sqlite) Truncate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `delete from access_log;`)
	return err
}

func (s *Sqlite) Close() error {
	return s.db.Close()
}

func (s *Sqlite) inTx(ctx context.Context, cb func(*sqlx.Tx) error) (err error) {
	tx, beginErr := s.db.BeginTxx(ctx, nil)
	if beginErr != nil {
		return fmt.Errorf("cannot start tx: %w", beginErr)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = rollback(tx, nil)
			panic(rec)
		}
	}()

	if err = cb(tx); err != nil {
		return rollback(tx, err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("cannot commit tx: %w", commitErr)
	}

	return nil
}

func rollback(tx *sqlx.Tx, err error) error {
	if rollbackErr := tx.Rollback(); rollbackErr != nil {
		return fmt.Errorf("cannot roll back tx after error (tx error: %v), original error: %w", rollbackErr, err)
	}
	return err
}

var _ accesslog.Store = (*Sqlite)(nil)
