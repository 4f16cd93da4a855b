package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"todoist-git-sync/internal/config"
	"todoist-git-sync/internal/gitrepo"
	"todoist-git-sync/internal/model"
	"todoist-git-sync/internal/render"
	"todoist-git-sync/internal/todoist"
)

// SyncService drives one end-to-end export: clone a disposable working
// copy, fetch the project's tasks, render the roadmap document and
// publish it when its content changed.
type SyncService struct {
	api      *todoist.Client
	cfg      *config.Config
	logger   *zap.Logger
	notifier *NotifyService
}

func NewSyncService(api *todoist.Client, cfg *config.Config, logger *zap.Logger, notifier *NotifyService) *SyncService {
	return &SyncService{api: api, cfg: cfg, logger: logger, notifier: notifier}
}

type runResult struct {
	published bool
	commit    string
	completed int
	open      int
}

// Run performs one export and reports the outcome to the notifier. A
// failed run makes no commit: either the document is rendered and (if
// changed) published, or the run aborts.
func (s *SyncService) Run(ctx context.Context) error {
	started := time.Now()
	result, err := s.runOnce(ctx)
	if err != nil {
		s.notifier.Notify(fmt.Sprintf("❌ Roadmap export failed: %v", err))
		return err
	}

	s.logger.Info("sync finished",
		zap.Bool("published", result.published),
		zap.Int("completed_tasks", result.completed),
		zap.Int("open_tasks", result.open),
		zap.Duration("elapsed", time.Since(started)))

	if result.published {
		s.notifier.Notify(fmt.Sprintf(
			"✅ Roadmap published (%s): %d completed, %d open tasks",
			result.commit, result.completed, result.open))
	}
	return nil
}

func (s *SyncService) runOnce(ctx context.Context) (runResult, error) {
	var result runResult

	repository, cleanup, err := gitrepo.TempClone(ctx, s.cfg.GitRepositoryURL)
	if err != nil {
		return result, err
	}
	defer cleanup()
	s.logger.Debug("cloned working copy", zap.String("dir", repository.Dir()))

	if err := repository.SetUser(ctx, s.cfg.GitName, s.cfg.GitEmail); err != nil {
		return result, err
	}

	project, err := s.api.GetProject(ctx, s.cfg.TodoistProjectID)
	if err != nil {
		return result, err
	}

	openTasks, err := s.fetchOpenTasks(ctx)
	if err != nil {
		return result, err
	}
	completedTasks, err := s.fetchCompletedTasks(ctx)
	if err != nil {
		return result, err
	}
	result.open = len(openTasks)
	result.completed = len(completedTasks)

	document := render.Document(
		render.Project{Name: project.Name, URL: project.URL},
		completedTasks, openTasks, time.Now())

	exportFile := filepath.Join(repository.Dir(), s.cfg.ExportPath)
	if err := os.MkdirAll(filepath.Dir(exportFile), 0o755); err != nil {
		return result, fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(exportFile, []byte(document), 0o644); err != nil {
		return result, fmt.Errorf("write export file: %w", err)
	}

	dirty, err := repository.IsDirty(ctx)
	if err != nil {
		return result, err
	}
	if !dirty {
		s.logger.Info("document unchanged, nothing to publish")
		return result, nil
	}

	if err := repository.Add(ctx, s.cfg.ExportPath); err != nil {
		return result, err
	}
	if err := repository.Commit(ctx, s.cfg.CommitMessage); err != nil {
		return result, err
	}
	if err := repository.Push(ctx); err != nil {
		return result, err
	}

	head, err := repository.Head(ctx)
	if err != nil {
		return result, err
	}
	result.published = true
	result.commit = head
	s.logger.Info("roadmap published", zap.String("commit", head))
	return result, nil
}

// fetchOpenTasks lists and normalizes the project's open tasks, keeping
// API order.
func (s *SyncService) fetchOpenTasks(ctx context.Context) ([]model.TaskInfo, error) {
	raw, err := s.api.ListTasks(ctx, s.cfg.TodoistProjectID)
	if err != nil {
		return nil, err
	}
	tasks := make([]model.TaskInfo, 0, len(raw))
	for _, task := range raw {
		info, err := model.NewTaskInfo(task)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, info)
	}
	return tasks, nil
}

// fetchCompletedTasks pulls the legacy completed-items list, sorts it
// by completion time and resolves each item to full task detail. Items
// whose task vanished since completion are dropped; any other lookup
// failure aborts the run.
func (s *SyncService) fetchCompletedTasks(ctx context.Context) ([]model.TaskInfo, error) {
	items, err := s.api.CompletedItems(ctx, s.cfg.TodoistProjectID)
	if err != nil {
		return nil, err
	}

	type timedItem struct {
		item        todoist.CompletedItem
		completedAt time.Time
	}
	timed := make([]timedItem, 0, len(items))
	for _, item := range items {
		completedAt, err := model.ParseTimestamp(item.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("completed item %s: parse completed_at: %w", item.TaskID, err)
		}
		timed = append(timed, timedItem{item: item, completedAt: completedAt})
	}
	sort.SliceStable(timed, func(i, j int) bool {
		return timed[i].completedAt.Before(timed[j].completedAt)
	})

	tasks := make([]model.TaskInfo, 0, len(timed))
	for _, entry := range timed {
		task, err := s.api.GetTask(ctx, entry.item.TaskID)
		if errors.Is(err, todoist.ErrNotFound) {
			s.logger.Debug("completed task no longer exists, skipping",
				zap.String("task_id", entry.item.TaskID))
			continue
		}
		if err != nil {
			return nil, err
		}
		info, err := model.NewTaskInfo(*task)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, info)
	}
	return tasks, nil
}
