package tasks

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"school_transport_echo/internal/models"
)

// BuildScheduledTask is a helper to build ScheduledTask records generically
func BuildScheduledTask(taskName string, args interface{}, due time.Time, recurringInterval *string, taskType models.ScheduledTaskType, maxAttempt int) (*models.ScheduledTask, error) {
	argsBytes, err := json.Marshal(args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal args")
	}

	var mapArgs map[string]interface{}
	if err := json.Unmarshal(argsBytes, &mapArgs); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal into map")
	}
	if mapArgs == nil {
		mapArgs = make(map[string]interface{})
	}

	if taskType == "" {
		taskType = models.ScheduledTaskTypeOneTime
	}
	if taskType == models.ScheduledTaskTypeRecurring && (recurringInterval == nil || *recurringInterval == "") {
		return nil, errors.New("recurring task needs a recurrence rule")
	}
	if maxAttempt < 1 {
		maxAttempt = 1
	}

	return &models.ScheduledTask{
		TaskName:          taskName,
		Arguments:         mapArgs,
		Due:               due,
		RecurringInterval: recurringInterval,
		Status:            models.ScheduledTaskStatusActive,
		TaskType:          taskType,
		MaxAttempt:        maxAttempt,
	}, nil
}
