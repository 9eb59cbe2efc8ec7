package websocket

import (
	"encoding/json"
	"sync"
)

// Hub WebSocket 连接管理中心
// 连接按会议分组，录音会话产出的片段实时推送到订阅该会议的连接
type Hub struct {
	// 按会议 ID 分组的连接
	meetings map[string]map[*Connection]bool
	// 注册连接
	register chan *Connection
	// 注销连接
	unregister chan *Connection
	// 广播消息
	broadcast chan *Message
	mu        sync.RWMutex
}

// Connection WebSocket 连接
type Connection struct {
	MeetingID string
	Send      chan []byte
}

// Message 消息
type Message struct {
	MeetingID string
	Data      []byte
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		meetings:   make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *Message),
	}
}

// Run 运行 Hub（需要在 goroutine 中运行）
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.meetings[conn.MeetingID] == nil {
				h.meetings[conn.MeetingID] = make(map[*Connection]bool)
			}
			h.meetings[conn.MeetingID][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if meeting, ok := h.meetings[conn.MeetingID]; ok {
				if _, ok := meeting[conn]; ok {
					delete(meeting, conn)
					close(conn.Send)
					if len(meeting) == 0 {
						delete(h.meetings, conn.MeetingID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if meeting, ok := h.meetings[msg.MeetingID]; ok {
				for conn := range meeting {
					select {
					case conn.Send <- msg.Data:
					default:
						close(conn.Send)
						delete(meeting, conn)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Start 启动 Hub（启动后台 goroutine）
func (h *Hub) Start() {
	go h.Run()
}

// Register 注册连接
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister 注销连接
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToMeeting 向订阅指定会议的连接广播消息
func (h *Hub) BroadcastToMeeting(meetingID string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	h.broadcast <- &Message{
		MeetingID: meetingID,
		Data:      jsonData,
	}
	return nil
}
