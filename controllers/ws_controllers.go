package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/dinein-app/hub"
	"github.com/yeremiapane/dinein-app/utils"
)

// WSController upgrades requests into hub connections. Clients register
// their restaurant or table over the socket afterwards.
type WSController struct {
	Hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewWSController accepts browser origins from the same comma separated
// list used for CORS.
func NewWSController(h *hub.Hub, origins string) *WSController {
	return &WSController{
		Hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
	}
}

func originChecker(origins string) func(*http.Request) bool {
	allowed := make(map[string]bool)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}

func (wc *WSController) Serve(c *gin.Context) {
	conn, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already answered the request
		utils.ErrorLogger.Warnf("WebSocket upgrade from %s failed: %v", c.ClientIP(), err)
		return
	}
	wc.Hub.ServeConn(conn)
}
