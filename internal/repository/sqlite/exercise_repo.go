package sqlite

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/repository"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type exerciseRepository struct {
	db *sql.DB
}

// NewExerciseRepository returns the SQLite implementation of repository.ExerciseRepository.
func NewExerciseRepository(d *DB) repository.ExerciseRepository {
	return &exerciseRepository{db: d.db}
}

const exerciseColumns = `id, title, description, phase, difficulty, duration, repetitions, shots, created_at, updated_at`

func (r *exerciseRepository) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	if exercise.Title == "" {
		return primitive.NilObjectID, errors.New("exercise title is required")
	}
	shots, err := encodeShots(exercise.Shots)
	if err != nil {
		return primitive.NilObjectID, err
	}

	exercise.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO exercises (`+exerciseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exercise.ID.Hex(),
		exercise.Title,
		exercise.Description,
		string(exercise.Phase),
		string(exercise.Difficulty),
		exercise.Duration,
		exercise.Repetitions,
		shots,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return exercise.ID, nil
}

func (r *exerciseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id.Hex())
	exercise, err := scanExercise(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return exercise, nil
}

func (r *exerciseRepository) List(ctx context.Context, f repository.ExerciseFilter) ([]domain.Exercise, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.Phase != "" {
		clauses = append(clauses, "phase = ?")
		args = append(args, string(f.Phase))
	}
	if f.Difficulty != "" {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, string(f.Difficulty))
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE `+strings.Join(clauses, " AND ")+` ORDER BY created_at DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	exercises := []domain.Exercise{}
	for rows.Next() {
		exercise, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		if !matchesSearch(exercise, f.Search) {
			continue
		}
		exercises = append(exercises, *exercise)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exercises, nil
}

func (r *exerciseRepository) Update(ctx context.Context, exercise *domain.Exercise) error {
	if exercise.ID == primitive.NilObjectID {
		return errors.New("exercise ID is required for update")
	}
	shots, err := encodeShots(exercise.Shots)
	if err != nil {
		return err
	}
	exercise.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE exercises SET title = ?, description = ?, phase = ?, difficulty = ?, duration = ?, repetitions = ?, shots = ?, updated_at = ?
		 WHERE id = ?`,
		exercise.Title,
		exercise.Description,
		string(exercise.Phase),
		string(exercise.Difficulty),
		exercise.Duration,
		exercise.Repetitions,
		shots,
		formatTime(exercise.UpdatedAt),
		exercise.ID.Hex(),
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *exerciseRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM exercises WHERE id = ?`, id.Hex())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExercise(s scanner) (*domain.Exercise, error) {
	var (
		exercise                        domain.Exercise
		id, phase, difficulty, shotsRaw string
		createdAt, updatedAt            string
	)
	if err := s.Scan(&id, &exercise.Title, &exercise.Description, &phase, &difficulty,
		&exercise.Duration, &exercise.Repetitions, &shotsRaw, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if exercise.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, err
	}
	exercise.Phase = domain.Phase(phase)
	exercise.Difficulty = domain.Difficulty(difficulty)
	if err = json.Unmarshal([]byte(shotsRaw), &exercise.Shots); err != nil {
		return nil, err
	}
	if exercise.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if exercise.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &exercise, nil
}

func encodeShots(shots []domain.Shot) (string, error) {
	if shots == nil {
		shots = []domain.Shot{}
	}
	b, err := json.Marshal(shots)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// matchesSearch compares with Unicode case folding; SQLite's LIKE and lower()
// only fold ASCII.
func matchesSearch(exercise *domain.Exercise, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(exercise.Title), needle) ||
		strings.Contains(strings.ToLower(exercise.Description), needle)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
