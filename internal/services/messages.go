package services

import "github.com/foodloop-labs/foodloop-backend/internal/models"

// StatusMessage is the customer-facing copy for one order status.
type StatusMessage struct {
	Title string
	Body  string
}

// statusMessages maps order statuses to the notification shown to the
// customer. Rejected has no row on purpose: customers are not notified on
// rejection under current policy (pending product confirmation).
var statusMessages = map[models.OrderStatus]StatusMessage{
	models.StatusPending: {
		Title: "Order Confirmed!",
		Body:  "Your order has been confirmed and is being processed.",
	},
	models.StatusPreparing: {
		Title: "Order Being Prepared",
		Body:  "The restaurant is now preparing your delicious food!",
	},
	models.StatusReady: {
		Title: "Order Ready!",
		Body:  "Your order is ready and will be picked up soon.",
	},
	models.StatusDispatch: {
		Title: "Order On The Way!",
		Body:  "Your order is out for delivery. It will reach you soon!",
	},
	models.StatusDelivered: {
		Title: "Order Delivered!",
		Body:  "Your order has been delivered. Enjoy your meal!",
	},
}

// CustomerStatusMessage returns the notification copy for a status, and
// whether that status notifies the customer at all.
func CustomerStatusMessage(status models.OrderStatus) (StatusMessage, bool) {
	msg, ok := statusMessages[status]
	return msg, ok
}
