package handler

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/meetscribe/backend/internal/infrastructure/log"
	"github.com/meetscribe/backend/internal/infrastructure/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// WSHandler 会议实时推送
// 客户端按会议订阅，录音期间的转录片段与会话状态变更实时下发
type WSHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
	logger   *slog.Logger
}

// NewWSHandler 创建实时推送处理器
func NewWSHandler(hub *websocket.Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 仅本机桌面端访问
			},
		},
		logger: log.NewModuleLogger("http", "ws"),
	}
}

// Subscribe 订阅一个会议的实时事件
// GET /ws/meetings/:id
func (h *WSHandler) Subscribe(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	wsConn := &websocket.Connection{
		MeetingID: c.Param("id"),
		Send:      make(chan []byte, 64),
	}
	h.hub.Register(wsConn)

	go h.writeLoop(conn, wsConn)
	go h.readLoop(conn, wsConn)
}

// writeLoop 把 hub 下发的数据写到连接，定期 ping 保活
func (h *WSHandler) writeLoop(conn *gorillaws.Conn, wsConn *websocket.Connection) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-wsConn.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(gorillaws.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(gorillaws.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(gorillaws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop 消费客户端帧，连接断开时从 hub 注销
func (h *WSHandler) readLoop(conn *gorillaws.Conn, wsConn *websocket.Connection) {
	defer h.hub.Unregister(wsConn)

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
