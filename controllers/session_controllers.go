package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dinein-app/services"
	"github.com/yeremiapane/dinein-app/utils"
)

const defaultForceReason = "closed by staff"

type SessionController struct {
	Sessions *services.SessionManager
}

func NewSessionController(sessions *services.SessionManager) *SessionController {
	return &SessionController{Sessions: sessions}
}

// JoinOrCreate opens a session on the table, or returns the one already
// open there so a scanning diner joins it.
func (sc *SessionController) JoinOrCreate(c *gin.Context) {
	restaurantID, ok := idParam(c, "restaurant_id")
	if !ok {
		return
	}
	tableID, ok := idParam(c, "table_id")
	if !ok {
		return
	}
	var req struct {
		PartySize int `json:"partySize" binding:"gte=0"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}

	session, created, err := sc.Sessions.JoinOrCreateSession(c.Request.Context(), tableID, restaurantID, req.PartySize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if created {
		utils.RespondJSON(c, http.StatusCreated, "Session created", gin.H{"session": session, "created": true})
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Joined open session", gin.H{"session": session, "created": false})
}

func (sc *SessionController) GetSession(c *gin.Context) {
	id, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	session, err := sc.Sessions.GetSession(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session detail", session)
}

func (sc *SessionController) AddCustomer(c *gin.Context) {
	id, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	var req struct {
		Name  string  `json:"name" binding:"required,max=100"`
		Email *string `json:"email" binding:"omitempty,email"`
		Phone *string `json:"phone" binding:"omitempty,max=30"`
	}
	if !bindJSON(c, &req) {
		return
	}

	customer, err := sc.Sessions.AddCustomer(c.Request.Context(), id, req.Name, req.Email, req.Phone)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Customer added", customer)
}

func (sc *SessionController) CreateOrder(c *gin.Context) {
	id, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	var req struct {
		CustomerID uint                      `json:"customerId" binding:"required"`
		Items      []services.OrderItemInput `json:"items"`
		Notes      string                    `json:"notes" binding:"max=500"`
	}
	if !bindJSON(c, &req) {
		return
	}

	order, err := sc.Sessions.CreateOrder(c.Request.Context(), req.CustomerID, id, req.Items, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

func (sc *SessionController) RequestBill(c *gin.Context) {
	id, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	session, err := sc.Sessions.RequestBill(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Bill requested", session)
}

func (sc *SessionController) CanComplete(c *gin.Context) {
	id, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	check, err := sc.Sessions.CanCompleteSession(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, check.Reason, check)
}

func (sc *SessionController) Evaluate(c *gin.Context) {
	id, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	session, err := sc.Sessions.EvaluatePaymentProgress(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session is "+session.Status, session)
}

func (sc *SessionController) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	session, err := sc.Sessions.TransitionSessionStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session status updated", session)
}

func (sc *SessionController) ForceComplete(c *gin.Context) {
	id, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"max=255"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = defaultForceReason
	}

	session, err := sc.Sessions.ForceCompleteSession(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session force completed", session)
}
