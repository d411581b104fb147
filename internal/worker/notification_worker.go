package worker

import (
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/service"
)

// StartNotificationWorker subscribes the notification service to lifecycle
// events.
func StartNotificationWorker(notificationService *service.NotificationService, dispatcher events.Dispatcher) {
	if notificationService == nil || dispatcher == nil {
		return
	}
	notificationService.Register(dispatcher)
}
