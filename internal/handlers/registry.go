package handlers

// AppHandlers holds every handler of the application.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	ContactHandler      *ContactHandler
	DealroomHandler     *DealroomHandler
	MessageHandler      *MessageHandler
	NotificationHandler *NotificationHandler
}
