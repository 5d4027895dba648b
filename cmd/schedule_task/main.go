package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	glog "github.com/labstack/gommon/log"

	"school_transport_echo/internal/config"
	"school_transport_echo/internal/models"
	"school_transport_echo/internal/services"
	"school_transport_echo/internal/tasks"
)

func main() {
	taskName := flag.String("task_name", "", "Name of the task (mandatory, e.g. ledger_reconcile)")
	argsStr := flag.String("arguments", "{}", "JSON arguments for the task, e.g. '{\"year\":2025,\"term\":\"Term 1\"}'")
	dueStr := flag.String("due", "", "Due date (mandatory, format: 2006-01-02 15:04 or RFC3339)")
	taskType := flag.String("tasktype", "onetime", "Task type: onetime or recurring")
	recurring := flag.String("recurring", "", "RRULE for recurring tasks, e.g. FREQ=WEEKLY;BYDAY=MO")
	maxAttempt := flag.Int("max_attempt", 3, "Max attempts")

	flag.Parse()

	if *taskName == "" || *dueStr == "" {
		fmt.Println("Usage: schedule_task -task_name <name> -due <YYYY-MM-DD HH:MM> [-arguments <json>] [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := glog.New("schedule-task")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(*argsStr), &args); err != nil {
		logger.Fatalf("Invalid JSON arguments: %v", err)
	}

	due, err := time.Parse(time.RFC3339, *dueStr)
	if err != nil {
		due, err = time.ParseInLocation("2006-01-02 15:04", *dueStr, time.Local)
		if err != nil {
			logger.Fatalf("Invalid due date format. Use '2006-01-02 15:04' (Local) or RFC3339: %v", err)
		}
	}

	var recurringPtr *string
	if *recurring != "" {
		recurringPtr = recurring
	}

	task, err := tasks.BuildScheduledTask(*taskName, args, due, recurringPtr, models.ScheduledTaskType(*taskType), *maxAttempt)
	if err != nil {
		logger.Fatal(err)
	}

	db, err := services.InitDB(cfg.DatabaseURL, cfg.Debug, logger)
	if err != nil {
		logger.Fatalf("Failed to connect DB: %v", err)
	}
	if err := db.AutoMigrate(&models.ScheduledTask{}, &models.ScheduledTaskHistory{}); err != nil {
		logger.Fatalf("Failed to migrate task tables: %v", err)
	}

	if err := db.Create(task).Error; err != nil {
		logger.Fatalf("Failed to create task: %v", err)
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
	if task.TaskType == models.ScheduledTaskTypeRecurring {
		fmt.Printf("Next run after due: %s\n", task.NextDue(task.Due))
	}
}
