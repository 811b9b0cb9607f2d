package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartSessionSweeper deletes expired auth sessions every interval until ctx
// is cancelled.
func StartSessionSweeper(
	ctx context.Context,
	db *sql.DB,
	dialect Dialect,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	query := dialect.Rebind(`DELETE FROM auth_sessions WHERE expires_at < ?`)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := db.ExecContext(ctx, query, time.Now().UTC())
				if err != nil {
					log.Error("failed to sweep expired sessions", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("swept expired sessions", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
