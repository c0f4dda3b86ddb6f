package sqlite

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/repository"
	"context"
	"database/sql"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository returns the append-only SQLite history store.
func NewHistoryRepository(d *DB) repository.HistoryRepository {
	return &historyRepository{db: d.db}
}

func (r *historyRepository) Append(ctx context.Context, record *domain.TrainingHistory) (primitive.ObjectID, error) {
	if record.SessionID == primitive.NilObjectID || record.ExerciseID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("history record requires sessionId and exerciseId")
	}
	record.ID = primitive.NewObjectID()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO training_history (id, session_id, exercise_id, started_at, completed_at, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID.Hex(),
		record.SessionID.Hex(),
		record.ExerciseID.Hex(),
		formatTime(record.StartedAt),
		formatTime(record.CompletedAt),
		record.Notes,
	)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return record.ID, nil
}

func (r *historyRepository) ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.TrainingHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, exercise_id, started_at, completed_at, notes
		 FROM training_history WHERE session_id = ? ORDER BY started_at ASC, rowid ASC`,
		sessionID.Hex())
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	records := []domain.TrainingHistory{}
	for rows.Next() {
		var (
			rec                    domain.TrainingHistory
			id, session, exercise  string
			startedAt, completedAt string
		)
		if err := rows.Scan(&id, &session, &exercise, &startedAt, &completedAt, &rec.Notes); err != nil {
			return nil, err
		}
		if rec.ID, err = primitive.ObjectIDFromHex(id); err != nil {
			return nil, err
		}
		if rec.SessionID, err = primitive.ObjectIDFromHex(session); err != nil {
			return nil, err
		}
		if rec.ExerciseID, err = primitive.ObjectIDFromHex(exercise); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if rec.CompletedAt, err = parseTime(completedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *historyRepository) CountByExercise(ctx context.Context, exerciseID primitive.ObjectID) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM training_history WHERE exercise_id = ?`, exerciseID.Hex()).Scan(&n)
	return n, err
}
