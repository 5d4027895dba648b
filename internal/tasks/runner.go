package tasks

import (
	"context"
	"time"

	glog "github.com/labstack/gommon/log"
	"gorm.io/gorm"

	"school_transport_echo/internal/models"
)

// Runner executes due scheduled tasks stored in the database
type Runner struct {
	db       *gorm.DB
	registry *Registry
	log      *glog.Logger
	now      func() time.Time
}

func NewRunner(db *gorm.DB, registry *Registry, log *glog.Logger) *Runner {
	return &Runner{db: db, registry: registry, log: log, now: time.Now}
}

// ProcessDue runs every active task whose due time has passed
func (r *Runner) ProcessDue(ctx context.Context) {
	r.log.Info("Checking for pending tasks...")

	var pendingTasks []models.ScheduledTask
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due ASC").
		Find(&pendingTasks).Error; err != nil {
		r.log.Errorf("Error fetching pending tasks: %v", err)
		return
	}

	if len(pendingTasks) == 0 {
		r.log.Info("No pending tasks found.")
		return
	}

	r.log.Infof("Found %d pending tasks.", len(pendingTasks))

	for _, task := range pendingTasks {
		if ctx.Err() != nil {
			return
		}
		r.execute(ctx, task, 1)
	}
}

func (r *Runner) execute(ctx context.Context, task models.ScheduledTask, curAttempt int) {
	r.log.Infof("Processing task: %s (ID: %d, attempt %d)", task.TaskName, task.ID, curAttempt)

	if task.Arguments == nil {
		task.Arguments = make(map[string]interface{})
	}
	task.Arguments["max_attempt"] = task.MaxAttempt

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		r.log.Warnf("Task handler not found for: %s. Marking as failure.", task.TaskName)
		now := r.now()
		r.db.Model(&task).Updates(map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})
		r.db.Create(&models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           now,
			Status:          "handler_not_found",
			AttemptNumber:   curAttempt,
			Arguments:       task.Arguments,
			Result:          map[string]interface{}{"error": "Handler not found"},
		})
		return
	}

	startTime := r.now()
	result, err := handler(ctx, task.Arguments)
	runtimeMs := int(time.Since(startTime).Milliseconds())

	status := "success"
	resultData := result
	if err != nil {
		status = "failure"
		resultData = map[string]interface{}{"error": err.Error()}
		r.log.Errorf("Task %s failed: %v", task.TaskName, err)
	} else {
		r.log.Infof("Task %s completed successfully.", task.TaskName)
	}

	r.db.Create(&models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           startTime,
		Runtime:         runtimeMs,
		Status:          status,
		AttemptNumber:   curAttempt,
		Arguments:       task.Arguments,
		Result:          resultData,
	})

	if status != "success" && curAttempt < task.MaxAttempt && ctx.Err() == nil {
		r.execute(ctx, task, curAttempt+1)
		return
	}

	updates := nextState(task, status, startTime)
	r.db.Model(&task).Updates(updates)
}

// nextState computes the task columns to write after its final attempt
func nextState(task models.ScheduledTask, status string, ranAt time.Time) map[string]interface{} {
	updates := map[string]interface{}{
		"last_run": &ranAt,
	}
	if status != "success" {
		updates["status"] = models.ScheduledTaskStatusFailure
		return updates
	}
	switch task.TaskType {
	case models.ScheduledTaskTypeRecurring:
		// only reschedule forward, otherwise the task would run again on every tick
		if next := task.NextDue(ranAt); next.After(task.Due) {
			updates["status"] = models.ScheduledTaskStatusActive
			updates["due"] = next
		} else {
			updates["status"] = models.ScheduledTaskStatusDone
		}
	default:
		updates["status"] = models.ScheduledTaskStatusDone
	}
	return updates
}
