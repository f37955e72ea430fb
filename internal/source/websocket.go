package source

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/agora/backend/internal/model/debate"
	"github.com/zhouzirui/agora/backend/internal/service/transport"
)

// WebSocketOptions 描述 WebSocket 推送连接的超时设置
type WebSocketOptions struct {
	HandshakeTimeout time.Duration // 握手超时时间
	ReadTimeout      time.Duration // 读取超时时间，每次收到消息或pong后顺延
	WriteTimeout     time.Duration // 写入超时时间
	PingInterval     time.Duration // Ping间隔
}

// DefaultWebSocketOptions 默认连接选项
func DefaultWebSocketOptions() WebSocketOptions {
	return WebSocketOptions{
		HandshakeTimeout: 30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// WebSocketSubscriber streams debate events from {BaseURL}/debates/{id}/ws.
// An http(s) base URL is rewritten to ws(s).
type WebSocketSubscriber struct {
	BaseURL string
	Header  http.Header
	Options WebSocketOptions
}

// NewWebSocketSubscriber creates a subscriber with default options.
func NewWebSocketSubscriber(baseURL string) *WebSocketSubscriber {
	return &WebSocketSubscriber{BaseURL: baseURL, Options: DefaultWebSocketOptions()}
}

// Subscribe dials in the background; dial failures are reported through cb.OnError.
func (s *WebSocketSubscriber) Subscribe(ctx context.Context, debateID string, cb transport.Callbacks) (transport.Subscription, error) {
	target, err := debateURL(websocketBase(s.BaseURL), debateID, "ws")
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	go s.run(subCtx, target, cb)
	return cancelSubscription(cancel), nil
}

func (s *WebSocketSubscriber) run(ctx context.Context, target string, cb transport.Callbacks) {
	dialer := &websocket.Dialer{HandshakeTimeout: s.Options.HandshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, target, s.Header)
	if err != nil {
		if ctx.Err() == nil {
			cb.OnError(fmt.Errorf("websocket dial failed: %w", err))
		}
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(s.Options.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.Options.ReadTimeout))
	})

	// 取消时关闭连接以打断阻塞中的读取
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go s.pingLoop(ctx, conn)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			cb.OnError(fmt.Errorf("websocket read: %w", err))
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.Options.ReadTimeout))

		if messageType != websocket.TextMessage {
			continue
		}
		event, err := debate.DecodeEvent(data)
		if err != nil {
			log.Printf("[ws] dropping undecodable message: %v", err)
			continue
		}
		cb.OnEvent(event)
	}
}

// pingLoop 定期发送ping消息
func (s *WebSocketSubscriber) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.Options.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.Options.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func websocketBase(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
