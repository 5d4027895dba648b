package tasks

import (
	glog "github.com/labstack/gommon/log"

	"school_transport_echo/internal/services"
)

// Deps are the services task handlers run against
type Deps struct {
	Payments *services.PaymentService
	Log      *glog.Logger
}

// DefineTasks registers all available tasks
func DefineTasks(r *Registry, deps Deps) {
	logInfo := &LogInfoTaskDef{log: deps.Log}
	r.Register(logInfo.TaskID(), logInfo.HandleExecution)

	reconcile := &LedgerReconcileTaskDef{payments: deps.Payments}
	r.Register(reconcile.TaskID(), reconcile.HandleExecution)
}
