package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/store"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrTaskExpired     = errors.New("task expired")
	ErrTaskNotVerified = errors.New("task condition not met")
	ErrTaskDone        = errors.New("task already completed")
)

// MembershipChecker verifies channel subscriptions. Kept as an interface so
// tests run without a live bot.
type MembershipChecker interface {
	IsChannelMember(ctx context.Context, telegramID, channel string) (bool, error)
}

type TaskService struct {
	tasks    *store.TaskStore
	users    *store.UserStore
	verifier MembershipChecker
}

func NewTaskService(tasks *store.TaskStore, users *store.UserStore, verifier MembershipChecker) *TaskService {
	return &TaskService{tasks: tasks, users: users, verifier: verifier}
}

// TaskList splits active tasks the way the client renders them.
type TaskList struct {
	Regular []*models.Task `json:"regular"`
	Partner []*models.Task `json:"partner"`
}

func (s *TaskService) List(ctx context.Context, userID int64) (*TaskList, error) {
	all, err := s.tasks.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &TaskList{Regular: []*models.Task{}, Partner: []*models.Task{}}
	for _, t := range all {
		if t.IsPartner {
			out.Partner = append(out.Partner, t)
		} else {
			out.Regular = append(out.Regular, t)
		}
	}
	return out, nil
}

// Complete verifies the task condition for the user and pays the reward
// once. A repeated completion returns ErrTaskDone and credits nothing.
func (s *TaskService) Complete(ctx context.Context, userID int64, taskID int64) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil || !task.IsActive {
		return nil, ErrTaskNotFound
	}
	if task.ExpiresAt != nil && task.ExpiresAt.Before(time.Now()) {
		return nil, ErrTaskExpired
	}

	if task.Type == models.TaskSubscription && s.verifier != nil {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, ErrUserNotFound
		}
		ok, err := s.verifier.IsChannelMember(ctx, u.TelegramID, task.Channel)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrTaskNotVerified
		}
	}

	rewarded, err := s.tasks.CompleteAndReward(ctx, taskID, userID, task)
	if err != nil {
		return nil, err
	}
	if !rewarded {
		return nil, ErrTaskDone
	}
	log.Infof("user %d completed task %d, reward %s", userID, taskID, task.Reward)
	task.IsCompleted = true
	return task, nil
}

func (s *TaskService) CreateTask(ctx context.Context, t models.Task) (*models.Task, error) {
	return s.tasks.Create(ctx, t)
}
