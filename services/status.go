package services

import "github.com/yeremiapane/dinein-app/models"

var sessionTransitions = map[string][]string{
	models.SessionWaiting: {models.SessionActive, models.SessionCancelled, models.SessionCompleted},
	models.SessionActive:  {models.SessionCompleted, models.SessionCancelled},
}

var orderTransitions = map[string][]string{
	models.OrderPending:   {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed: {models.OrderPreparing, models.OrderCancelled},
	models.OrderPreparing: {models.OrderServed, models.OrderCancelled},
	models.OrderServed:    {models.OrderCompleted, models.OrderCancelled},
}

// NextSessionStatuses lists the statuses a session may move to.
func NextSessionStatuses(current string) []string {
	return copyStatuses(sessionTransitions[current])
}

// NextOrderStatuses lists the statuses an order may move to, so clients do
// not need their own copy of the table.
func NextOrderStatuses(current string) []string {
	return copyStatuses(orderTransitions[current])
}

func CanTransitionSession(from, to string) bool {
	return contains(sessionTransitions[from], to)
}

func CanTransitionOrder(from, to string) bool {
	return contains(orderTransitions[from], to)
}

func copyStatuses(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
