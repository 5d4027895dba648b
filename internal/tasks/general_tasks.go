package tasks

import (
	"context"

	glog "github.com/labstack/gommon/log"
)

// LogInfoTaskDef writes its message argument to the worker log. Useful to check a deployment.
type LogInfoTaskDef struct {
	log *glog.Logger
}

func (t *LogInfoTaskDef) TaskID() string {
	return "log_info"
}

func (t *LogInfoTaskDef) HandleExecution(_ context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	message, ok := args["message"].(string)
	if !ok {
		message = "No message provided"
	}
	t.log.Infof("[Task: log_info] Message: %s", message)

	return map[string]interface{}{
		"status":            "success",
		"message":           message,
		"max_attempts_info": args["max_attempt"],
	}, nil
}
