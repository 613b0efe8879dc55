package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dinein-app/services"
	"github.com/yeremiapane/dinein-app/utils"
)

type TableController struct {
	Sessions  *services.SessionManager
	Occupancy *services.OccupancySynchronizer
}

func NewTableController(sessions *services.SessionManager, occupancy *services.OccupancySynchronizer) *TableController {
	return &TableController{Sessions: sessions, Occupancy: occupancy}
}

func (tc *TableController) GetAllTables(c *gin.Context) {
	restaurantID, ok := idParam(c, "restaurant_id")
	if !ok {
		return
	}
	tables, err := tc.Sessions.ListTables(c.Request.Context(), restaurantID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// SyncOccupancy recomputes every table's occupied flag from open sessions.
func (tc *TableController) SyncOccupancy(c *gin.Context) {
	restaurantID, ok := idParam(c, "restaurant_id")
	if !ok {
		return
	}
	changed, err := tc.Occupancy.SyncTableOccupancy(c.Request.Context(), restaurantID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table occupancy synced", gin.H{"changed": changed})
}

func (tc *TableController) CallWaiter(c *gin.Context) {
	restaurantID, ok := idParam(c, "restaurant_id")
	if !ok {
		return
	}
	var req struct {
		TableID      uint   `json:"tableId" binding:"required"`
		CustomerName string `json:"customerName" binding:"max=100"`
		RequestType  string `json:"requestType" binding:"omitempty,oneof=assistance bill water"`
	}
	if !bindJSON(c, &req) {
		return
	}

	n, err := tc.Sessions.CallWaiter(c.Request.Context(), restaurantID, req.TableID, req.CustomerName, req.RequestType)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Waiter called", n)
}

func (tc *TableController) ListWaiterCalls(c *gin.Context) {
	restaurantID, ok := idParam(c, "restaurant_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	calls, err := tc.Sessions.ListWaiterCalls(c.Request.Context(), restaurantID, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waiter calls", calls)
}
