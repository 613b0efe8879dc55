package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dinein-app/services"
	"github.com/yeremiapane/dinein-app/utils"
)

type OrderController struct {
	Sessions *services.SessionManager
}

func NewOrderController(sessions *services.SessionManager) *OrderController {
	return &OrderController{Sessions: sessions}
}

// EditItems replaces the items of an order that the kitchen has not started.
func (oc *OrderController) EditItems(c *gin.Context) {
	id, ok := idParam(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		Items []services.OrderItemInput `json:"items"`
	}
	if !bindJSON(c, &req) {
		return
	}

	order, err := oc.Sessions.EditOrderItems(c.Request.Context(), id, req.Items)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order items updated", order)
}

func (oc *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	order, err := oc.Sessions.UpdateOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) NextStatuses(c *gin.Context) {
	id, ok := idParam(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Sessions.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Next statuses", gin.H{
		"current": order.Status,
		"next":    services.NextOrderStatuses(order.Status),
	})
}
