package replay

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	replayService "github.com/zhouzirui/agora/backend/internal/service/replay"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
)

// controlMessage 是客户端发送的播放控制指令
type controlMessage struct {
	Type  string `json:"type"`
	Index *int   `json:"index,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	ViewID    string      `json:"viewId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 推送回放状态变化，并接收 play/pause/restart/seek 控制指令
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	viewID, engine, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] replay connection view=%s", viewID)

	// 只保留最新状态，慢客户端跳过中间帧
	updates := make(chan replayService.State, 1)
	remove := engine.OnChange(func(s replayService.State) {
		select {
		case <-updates:
		default:
		}
		updates <- s
	})
	defer remove()

	replies := make(chan outgoingMessage, 8)
	stop := make(chan struct{})
	readDone := make(chan struct{})
	defer close(stop)
	go h.readLoop(conn, engine, replies, stop, readDone)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	if err := writeMessage(conn, outgoingMessage{Type: "state", ViewID: viewID, Data: engine.State()}); err != nil {
		return
	}

	for {
		select {
		case <-readDone:
			return
		case <-engine.Done():
			_ = writeMessage(conn, outgoingMessage{Type: "closed", ViewID: viewID})
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "view removed"),
				time.Now().Add(writeTimeout))
			return
		case state := <-updates:
			if err := writeMessage(conn, outgoingMessage{Type: "state", ViewID: viewID, Data: state}); err != nil {
				log.Printf("[websocket] write state failed: %v", err)
				return
			}
		case reply := <-replies:
			reply.ViewID = viewID
			if err := writeMessage(conn, reply); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

// readLoop 只负责读取；所有写操作都在 handleWebSocket 所在的 goroutine 完成
func (h *Handler) readLoop(conn *websocket.Conn, engine *replayService.Engine, replies chan<- outgoingMessage, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg controlMessage
		reply, ok := errorMessage("invalid control message"), false
		if err := json.Unmarshal(data, &msg); err == nil {
			reply, ok = applyControl(engine, msg)
		}
		if ok {
			continue
		}

		select {
		case replies <- reply:
		case <-stop:
			return
		}
	}
}

// applyControl 执行一条控制指令；返回 false 时 reply 为错误消息
func applyControl(engine *replayService.Engine, msg controlMessage) (outgoingMessage, bool) {
	switch msg.Type {
	case "play":
		engine.Play()
	case "pause":
		engine.Pause()
	case "restart":
		engine.RestartFromBeginning()
	case "seek":
		if msg.Index == nil {
			return errorMessage("seek requires index"), false
		}
		engine.SetIndex(*msg.Index)
	default:
		return errorMessage("unsupported message type: " + msg.Type), false
	}
	return outgoingMessage{}, true
}

func errorMessage(message string) outgoingMessage {
	return outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
}

func writeMessage(conn *websocket.Conn, msg outgoingMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}
