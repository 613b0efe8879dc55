package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dinein-app/controllers"
	"github.com/yeremiapane/dinein-app/hub"
	"github.com/yeremiapane/dinein-app/middlewares"
	"github.com/yeremiapane/dinein-app/services"
)

// Dependencies are the services the HTTP layer triggers.
type Dependencies struct {
	Sessions  *services.SessionManager
	Bills     *services.BillService
	Occupancy *services.OccupancySynchronizer
	Reaper    *services.Reaper
	Hub       *hub.Hub

	CORSOrigin string
	RateLimit  float64
	RateBurst  int
}

func SetupRouter(d Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	if d.RateLimit > 0 {
		r.Use(middlewares.NewRateLimiter(d.RateLimit, d.RateBurst).RateLimit())
	}

	sessionCtrl := controllers.NewSessionController(d.Sessions)
	orderCtrl := controllers.NewOrderController(d.Sessions)
	billCtrl := controllers.NewBillController(d.Bills)
	tableCtrl := controllers.NewTableController(d.Sessions, d.Occupancy)
	adminCtrl := controllers.NewAdminController(d.Sessions, d.Reaper, d.Hub)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if d.Hub != nil {
		wsCtrl := controllers.NewWSController(d.Hub, d.CORSOrigin)
		r.GET("/ws", wsCtrl.Serve)
	}

	restaurants := r.Group("/restaurants/:restaurant_id")
	{
		restaurants.GET("/tables", tableCtrl.GetAllTables)
		restaurants.POST("/tables/sync", tableCtrl.SyncOccupancy)
		restaurants.POST("/tables/:table_id/sessions", sessionCtrl.JoinOrCreate)
		restaurants.POST("/waiter-calls", tableCtrl.CallWaiter)
		restaurants.GET("/waiter-calls", tableCtrl.ListWaiterCalls)
	}

	sessions := r.Group("/sessions/:session_id")
	{
		sessions.GET("", sessionCtrl.GetSession)
		sessions.POST("/customers", sessionCtrl.AddCustomer)
		sessions.POST("/orders", sessionCtrl.CreateOrder)
		sessions.POST("/request-bill", sessionCtrl.RequestBill)
		sessions.GET("/can-complete", sessionCtrl.CanComplete)
		sessions.POST("/evaluate", sessionCtrl.Evaluate)
		sessions.PATCH("/status", sessionCtrl.UpdateStatus)
		sessions.POST("/force-complete", sessionCtrl.ForceComplete)
		sessions.POST("/bills", billCtrl.CreateBill)
	}

	orders := r.Group("/orders/:order_id")
	{
		orders.PUT("/items", orderCtrl.EditItems)
		orders.PATCH("/status", orderCtrl.UpdateStatus)
		orders.GET("/next-statuses", orderCtrl.NextStatuses)
	}

	bills := r.Group("/bills/:bill_id")
	{
		bills.POST("/pay", billCtrl.PayBill)
		bills.POST("/cancel", billCtrl.CancelBill)
	}

	admin := r.Group("/admin")
	{
		admin.POST("/sessions/cleanup", adminCtrl.CleanupSessions)
		admin.GET("/metrics", adminCtrl.GetMetrics)
	}

	return r
}
