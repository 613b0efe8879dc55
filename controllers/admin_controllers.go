package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dinein-app/hub"
	"github.com/yeremiapane/dinein-app/services"
	"github.com/yeremiapane/dinein-app/utils"
)

// AdminController serves staff tooling: on-demand cleanup and counters.
type AdminController struct {
	Sessions *services.SessionManager
	Reaper   *services.Reaper
	Hub      *hub.Hub
}

func NewAdminController(sessions *services.SessionManager, reaper *services.Reaper, h *hub.Hub) *AdminController {
	return &AdminController{Sessions: sessions, Reaper: reaper, Hub: h}
}

// CleanupSessions runs one reaper pass now. Per-session failures are
// reported alongside what did get cleaned.
func (ac *AdminController) CleanupSessions(c *gin.Context) {
	result, err := ac.Reaper.RunOnce(c.Request.Context())
	if err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"deleted":         result.Deleted,
			"force_completed": result.ForceCompleted,
		}).Errorf("Manual session cleanup incomplete: %v", err)
		utils.RespondErrorData(c, http.StatusInternalServerError, err, result)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session cleanup finished", result)
}

func (ac *AdminController) GetMetrics(c *gin.Context) {
	data := gin.H{"sessions": ac.Sessions.Metrics()}
	if ac.Hub != nil {
		data["hub"] = ac.Hub.Stats()
	}
	utils.RespondJSON(c, http.StatusOK, "Metrics", data)
}
