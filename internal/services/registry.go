package services

// ServiceContainer holds every application service.
type ServiceContainer struct {
	AuthService         AuthService
	ContactService      ContactService
	DealroomService     DealroomService
	MessagingService    MessagingService
	NotificationService NotificationService
}
