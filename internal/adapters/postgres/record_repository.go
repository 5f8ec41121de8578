package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/cyberpaas/tenantdock/internal/core/domain"
)

const recordColumns = "id, user_id, container_id, port, db_name, plan, status, created_at, updated_at"

// RecordRepository implements ports.RecordRepository on PostgreSQL.
type RecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRecordRepository creates a new PostgreSQL record repository.
func NewRecordRepository(db *sql.DB, logger *slog.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger}
}

// Open connects to the control-plane database and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// CreatePair inserts the application and database records of one provisioning
// cycle in a single transaction. Rows left under the same container names by a
// prior cycle are replaced, mirroring the runtime's remove-before-create.
func (r *RecordRepository) CreatePair(ctx context.Context, app, db *domain.ContainerRecord) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	const del = `DELETE FROM tenant_containers WHERE container_id IN ($1, $2);`
	if _, err := txn.ExecContext(ctx, del, app.ContainerID, db.ContainerID); err != nil {
		return err
	}

	const q = `
		INSERT INTO tenant_containers (user_id, container_id, port, db_name, plan, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at;
	`
	for _, rec := range []*domain.ContainerRecord{app, db} {
		err := txn.QueryRowContext(ctx, q,
			rec.UserID, rec.ContainerID, rec.Port, rec.DBName, rec.Plan, rec.Status,
		).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return err
		}
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	r.logger.Info("container records created", "app", app.ContainerID, "db", db.ContainerID, "user_id", app.UserID)
	return nil
}

// GetByContainerID fetches the record joined to a runtime container name.
func (r *RecordRepository) GetByContainerID(ctx context.Context, containerID string) (*domain.ContainerRecord, error) {
	const q = `SELECT ` + recordColumns + ` FROM tenant_containers WHERE container_id = $1;`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, containerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListByUser returns every record belonging to a tenant.
func (r *RecordRepository) ListByUser(ctx context.Context, userID int64) ([]domain.ContainerRecord, error) {
	const q = `SELECT ` + recordColumns + ` FROM tenant_containers WHERE user_id = $1 ORDER BY id;`
	return r.list(ctx, q, userID)
}

// ListAll returns every record, used by the status reconciler.
func (r *RecordRepository) ListAll(ctx context.Context) ([]domain.ContainerRecord, error) {
	const q = `SELECT ` + recordColumns + ` FROM tenant_containers ORDER BY id;`
	return r.list(ctx, q)
}

func (r *RecordRepository) list(ctx context.Context, query string, args ...any) ([]domain.ContainerRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ContainerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// UpdateStatus sets the persisted status of a record.
func (r *RecordRepository) UpdateStatus(ctx context.Context, containerID string, status domain.Status) error {
	const q = `UPDATE tenant_containers SET status = $1, updated_at = NOW() WHERE container_id = $2;`

	res, err := r.db.ExecContext(ctx, q, status, containerID)
	if err != nil {
		return err
	}
	return r.affected(res)
}

// Delete removes a record, completing a container removal.
func (r *RecordRepository) Delete(ctx context.Context, containerID string) error {
	const q = `DELETE FROM tenant_containers WHERE container_id = $1;`

	res, err := r.db.ExecContext(ctx, q, containerID)
	if err != nil {
		return err
	}
	return r.affected(res)
}

func (r *RecordRepository) affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.ContainerRecord, error) {
	var rec domain.ContainerRecord
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.ContainerID, &rec.Port,
		&rec.DBName, &rec.Plan, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
