package api

import (
	"log/slog"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// wsHandler handles GET /api/v1/ws: upgrades the connection and hands it to
// the connection manager, which serves subscribe/unsubscribe requests for
// research progress channels.
func (s *Server) wsHandler(c *echo.Context) error {
	opts := &websocket.AcceptOptions{}
	if len(s.cfg.Server.AllowedWSOrigins) > 0 {
		opts.OriginPatterns = s.cfg.Server.AllowedWSOrigins
	} else {
		opts.InsecureSkipVerify = true
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), opts)
	if err != nil {
		slog.Warn("websocket_accept_failed", "error", err)
		return nil
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	s.connManager.HandleConnection(c.Request().Context(), conn)
	return nil
}
