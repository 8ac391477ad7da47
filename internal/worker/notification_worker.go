package worker

import (
	"github.com/spec-kit/rserve-session/internal/service"
)

// StartUpdateWorker subscribes the update service to restaurant-updated
// events so every publisher ends up setting a flag.
func StartUpdateWorker(updateService *service.UpdateService) {
	if updateService == nil {
		return
	}
	updateService.RegisterHandlers()
}
