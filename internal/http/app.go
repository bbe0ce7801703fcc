package httpapi

import (
	"github.com/pratikrzr/task-management-app/internal/tasks"
)

type App struct {
	Tasks *tasks.Service
}
