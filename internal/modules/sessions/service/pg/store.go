package pg

import (
	"context"
	"errors"
	"fmt"

	"option_bot/internal/models"
	sessions "option_bot/internal/modules/sessions/service"
	"option_bot/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

// Store — pg-реализация стора сессий. Сессия лежит одной jsonb-записью,
// is_running вынесен в колонку под индекс list_active, ревизия — под CAS:
// одновременная запись одной сессии не может затереть счётчики.
type Store struct {
	db *db.PgTxManager
}

func NewStore(m *db.PgTxManager) *Store {
	return &Store{db: m}
}

func (s *Store) Load(ctx context.Context, id string) (sess *models.Session, err error) {
	defer func() {
		if err != nil && !errors.Is(err, sessions.ErrNotFound) {
			err = fmt.Errorf("pg.Load: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		var (
			data []byte
			rev  int64
		)
		row := tx.QueryRow(ctxTx,
			`SELECT data, rev FROM bot_sessions WHERE session_id = $1`, id)
		if err := row.Scan(&data, &rev); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return sessions.ErrNotFound
			}
			return err
		}

		var t models.Session
		if err := sonic.Unmarshal(data, &t); err != nil {
			return err
		}
		t.Rev = rev
		sess = &t
		return nil
	})
	return sess, err
}

func (s *Store) Save(ctx context.Context, sess *models.Session) (err error) {
	defer func() {
		if err != nil && !errors.Is(err, sessions.ErrConflict) && !errors.Is(err, sessions.ErrNotFound) {
			err = fmt.Errorf("pg.Save: %w", err)
		}
	}()

	data, err := sonic.Marshal(sess)
	if err != nil {
		return err
	}

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		if sess.Rev == 0 {
			tag, err := tx.Exec(ctxTx,
				`INSERT INTO bot_sessions (session_id, is_running, data, rev)
				 VALUES ($1, $2, $3, 1)
				 ON CONFLICT (session_id) DO NOTHING`,
				sess.ID, sess.IsRunning, data)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return sessions.ErrConflict
			}
			sess.Rev = 1
			return nil
		}

		tag, err := tx.Exec(ctxTx,
			`UPDATE bot_sessions
			 SET is_running = $2, data = $3, rev = rev + 1, updated_at = now()
			 WHERE session_id = $1 AND rev = $4`,
			sess.ID, sess.IsRunning, data, sess.Rev)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// либо записи нет, либо ревизия ушла вперёд
			row := tx.QueryRow(ctxTx,
				`SELECT 1 FROM bot_sessions WHERE session_id = $1`, sess.ID)
			var one int
			if scanErr := row.Scan(&one); scanErr != nil {
				if errors.Is(scanErr, pgx.ErrNoRows) {
					return sessions.ErrNotFound
				}
				return scanErr
			}
			return sessions.ErrConflict
		}
		sess.Rev++
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, id string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Delete: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `DELETE FROM bot_sessions WHERE session_id = $1`, id)
		return err
	})
}

func (s *Store) ListActive(ctx context.Context) (out []*models.Session, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.ListActive: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx,
			`SELECT data, rev FROM bot_sessions WHERE is_running ORDER BY session_id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				data []byte
				rev  int64
			)
			if err := rows.Scan(&data, &rev); err != nil {
				return err
			}
			var t models.Session
			if err := sonic.Unmarshal(data, &t); err != nil {
				return err
			}
			t.Rev = rev
			out = append(out, &t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IsAuthorized — allowlist-проверка по таблице allowed_users.
func (s *Store) IsAuthorized(ctx context.Context, id string) (ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.IsAuthorized: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctxTx,
			`SELECT 1 FROM allowed_users WHERE session_id = $1`, id)
		var one int
		if scanErr := row.Scan(&one); scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return nil
			}
			return scanErr
		}
		ok = true
		return nil
	})
	return ok, err
}
