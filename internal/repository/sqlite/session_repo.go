package sqlite

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/repository"
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns the SQLite implementation of repository.SessionRepository.
// The ordering lives in session_exercises and is always written in the
// same transaction as the session row.
func NewSessionRepository(d *DB) repository.SessionRepository {
	return &sessionRepository{db: d.db}
}

const sessionColumns = `id, title, description, scheduled_date, estimated_duration, status, completed_at, created_at, updated_at`

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error) {
	if session.Title == "" {
		return primitive.NilObjectID, errors.New("session title is required")
	}
	if err := domain.ValidateOrdering(session.Exercises); err != nil {
		return primitive.NilObjectID, err
	}
	session.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return primitive.NilObjectID, err
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID.Hex(),
		session.Title,
		session.Description,
		formatTime(session.ScheduledDate),
		session.EstimatedDuration,
		string(session.Status),
		nullableTime(session.CompletedAt),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if err = writeOrdering(ctx, tx, session); err != nil {
		return primitive.NilObjectID, err
	}
	if err = tx.Commit(); err != nil {
		return primitive.NilObjectID, err
	}
	return session.ID, nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id.Hex())
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if session.Exercises, err = loadOrdering(ctx, r.db, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepository) List(ctx context.Context, f repository.SessionFilter) ([]domain.Session, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.From != nil {
		clauses = append(clauses, "scheduled_date >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		clauses = append(clauses, "scheduled_date <= ?")
		args = append(args, formatTime(*f.To))
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE `+strings.Join(clauses, " AND ")+` ORDER BY scheduled_date ASC`,
		args...)
	if err != nil {
		return nil, err
	}
	sessions := []domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			closeRows(rows)
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	err = rows.Err()
	closeRows(rows)
	if err != nil {
		return nil, err
	}

	// Rows are closed before loading orderings: the pool has a single connection.
	for i := range sessions {
		if sessions[i].Exercises, err = loadOrdering(ctx, r.db, sessions[i].ID); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if session.ID == primitive.NilObjectID {
		return errors.New("session ID is required for save")
	}
	if err := domain.ValidateOrdering(session.Exercises); err != nil {
		return err
	}
	session.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET title = ?, description = ?, scheduled_date = ?, estimated_duration = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		session.Title,
		session.Description,
		formatTime(session.ScheduledDate),
		session.EstimatedDuration,
		formatTime(session.UpdatedAt),
		session.ID.Hex(),
		string(session.Status),
	)
	if err != nil {
		return err
	}
	if err = requireMatched(ctx, tx, res, session.ID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM session_exercises WHERE session_id = ?`, session.ID.Hex()); err != nil {
		return err
	}
	if err = writeOrdering(ctx, tx, session); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *sessionRepository) UpdateStatus(ctx context.Context, session *domain.Session, expected domain.SessionStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, completed_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(session.Status),
		nullableTime(session.CompletedAt),
		formatTime(time.Now()),
		session.ID.Hex(),
		string(expected),
	)
	if err != nil {
		return err
	}
	return requireMatched(ctx, r.db, res, session.ID)
}

func (r *sessionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.Hex())
	if err != nil {
		return err
	}
	if err = requireAffected(res); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM session_exercises WHERE session_id = ?`, id.Hex()); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *sessionRepository) CountByExercise(ctx context.Context, exerciseID primitive.ObjectID) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT session_id) FROM session_exercises WHERE exercise_id = ?`,
		exerciseID.Hex()).Scan(&n)
	return n, err
}

// requireMatched tells a missing session from a lost race after a guarded
// UPDATE touched no row.
func requireMatched(ctx context.Context, q querier, res sql.Result, id primitive.ObjectID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, id.Hex()).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrStatusConflict
}

func writeOrdering(ctx context.Context, q querier, session *domain.Session) error {
	for _, se := range session.Exercises {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO session_exercises (session_id, exercise_id, position) VALUES (?, ?, ?)`,
			session.ID.Hex(), se.ExerciseID.Hex(), se.Order); err != nil {
			return err
		}
	}
	return nil
}

func loadOrdering(ctx context.Context, q querier, sessionID primitive.ObjectID) ([]domain.SessionExercise, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT exercise_id, position FROM session_exercises WHERE session_id = ? ORDER BY position ASC`,
		sessionID.Hex())
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	ordering := []domain.SessionExercise{}
	for rows.Next() {
		var (
			rawID string
			se    domain.SessionExercise
		)
		if err := rows.Scan(&rawID, &se.Order); err != nil {
			return nil, err
		}
		if se.ExerciseID, err = primitive.ObjectIDFromHex(rawID); err != nil {
			return nil, err
		}
		ordering = append(ordering, se)
	}
	return ordering, rows.Err()
}

func scanSession(s scanner) (*domain.Session, error) {
	var (
		session               domain.Session
		id, scheduled, status string
		completedAt           sql.NullString
		createdAt, updatedAt  string
	)
	if err := s.Scan(&id, &session.Title, &session.Description, &scheduled,
		&session.EstimatedDuration, &status, &completedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if session.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, err
	}
	session.Status = domain.SessionStatus(status)
	if session.ScheduledDate, err = parseTime(scheduled); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		session.CompletedAt = &t
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &session, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
