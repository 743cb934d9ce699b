package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

type TaskStore struct {
	db *pgxpool.Pool
}

func NewTaskStore(db *pgxpool.Pool) *TaskStore {
	return &TaskStore{db: db}
}

const taskColumns = `
	SELECT id, title, description, reward, ttype, COALESCE(channel, ''), COALESCE(url, ''),
	       is_active, is_partner, sort_order, created_at, expires_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	t := &models.Task{}
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Reward,
		&t.Type,
		&t.Channel,
		&t.URL,
		&t.IsActive,
		&t.IsPartner,
		&t.SortOrder,
		&t.CreatedAt,
		&t.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskStore) GetByID(ctx context.Context, taskID int64) (*models.Task, error) {
	row := s.db.QueryRow(ctx, taskColumns+` FROM tasks WHERE id = $1`, taskID)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task %d: %w", taskID, err)
	}
	return t, nil
}

// ListActive returns active, unexpired tasks with the per-user completion
// flag filled in.
func (s *TaskStore) ListActive(ctx context.Context, userID int64) ([]*models.Task, error) {
	rows, err := s.db.Query(ctx, taskColumns+`,
	       EXISTS(SELECT 1 FROM task_completions tc WHERE tc.task_id = tasks.id AND tc.user_id = $1)
		FROM tasks
		WHERE is_active AND (expires_at IS NULL OR expires_at > now())
		ORDER BY sort_order, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		t := &models.Task{}
		err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.Reward, &t.Type, &t.Channel, &t.URL,
			&t.IsActive, &t.IsPartner, &t.SortOrder, &t.CreatedAt, &t.ExpiresAt,
			&t.IsCompleted,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TaskStore) Create(ctx context.Context, t models.Task) (*models.Task, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO tasks (title, description, reward, ttype, channel, url, is_active, is_partner, sort_order, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, true, $7, $8, $9)
		RETURNING id, created_at
	`, t.Title, t.Description, t.Reward, t.Type, t.Channel, t.URL, t.IsPartner, t.SortOrder, t.ExpiresAt).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	t.IsActive = true
	return &t, nil
}

// CompleteAndReward records the completion and credits the reward in one
// transaction. The primary key on task_completions makes a repeated
// verification a no-op; returns false in that case.
func (s *TaskStore) CompleteAndReward(ctx context.Context, taskID, userID int64, task *models.Task) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		INSERT INTO task_completions (task_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (task_id, user_id) DO NOTHING
	`, taskID, userID)
	if err != nil {
		return false, fmt.Errorf("record completion: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET balance = balance + $2 WHERE user_id = $1
	`, userID, task.Reward)
	if err != nil {
		return false, fmt.Errorf("credit task reward: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (user_id, ttype, amount, task_id, status, note)
		VALUES ($1, 'task_reward', $2, $3, 'completed', $4)
	`, userID, task.Reward, taskID, fmt.Sprintf("reward for task %q", task.Title))
	if err != nil {
		return false, fmt.Errorf("insert task transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit task reward: %w", err)
	}
	return true, nil
}
