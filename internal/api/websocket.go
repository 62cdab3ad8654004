package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/parser"
)

// WebSocket message types for the live parse protocol
const (
	// Client -> Server messages
	MsgTypeParseSubmit = "parse:submit"
	MsgTypePing        = "ping"

	// Server -> Client messages
	MsgTypeConnected     = "connected"
	MsgTypeParseProgress = "parse:progress"
	MsgTypeParseComplete = "parse:complete"
	MsgTypeError         = "error"
	MsgTypePong          = "pong"
)

// maxWSMessageBytes bounds a single inbound message.
const maxWSMessageBytes = 8 << 20

// parseTimeout bounds how long one submitted document may take.
const parseTimeout = time.Minute

// WSMessage is the envelope for every message in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ParseSubmitPayload carries a test file typed or pasted by an author.
type ParseSubmitPayload struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// WSProgressResponse reports parse progress.
type WSProgressResponse struct {
	SessionID string               `json:"sessionId"`
	Status    models.SessionStatus `json:"status"`
	Progress  float64              `json:"progress"`
}

// WSCompleteResponse carries the compiled document and its derived views.
type WSCompleteResponse struct {
	Session           *models.ParseSession      `json:"session"`
	Questions         []models.FlatQuestion     `json:"questions"`
	ImageRequirements []models.ImageRequirement `json:"imageRequirements"`
	Warnings          []models.ParseWarning     `json:"warnings"`
}

// WSErrorResponse describes a failed request.
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler gives authors live parse feedback over a WebSocket.
type WebSocketHandler struct {
	sessionMgr SessionManager
	upgrader   websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket parse handler
func NewWebSocketHandler(sessionMgr SessionManager) *WebSocketHandler {
	return &WebSocketHandler{
		sessionMgr: sessionMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// HandleWebSocket upgrades the HTTP connection and serves the parse protocol
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(maxWSMessageBytes)

	log.Debug("[WebSocket] Client connected for parsing")

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeConnected,
		Timestamp: time.Now().UnixMilli(),
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("[WebSocket] Connection error: %v", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			wsh.sendMessage(ws, WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
		case MsgTypeParseSubmit:
			wsh.handleParseSubmit(c.Request().Context(), ws, msg)
		default:
			wsh.sendError(ws, msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	log.Debug("[WebSocket] Client disconnected")
	return nil
}

// handleParseSubmit compiles the submitted text, streaming progress until the
// session completes or fails.
func (wsh *WebSocketHandler) handleParseSubmit(ctx context.Context, ws *websocket.Conn, msg WSMessage) {
	var payload ParseSubmitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(ws, msg.ID, "Invalid parse payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	if payload.Content == "" {
		wsh.sendError(ws, msg.ID, "content is required", "VALIDATION_ERROR")
		return
	}

	sess, err := wsh.sessionMgr.StartContentSession(payload.Title, payload.Content)
	if err != nil {
		wsh.sendError(ws, msg.ID, "Failed to start parse: "+err.Error(), "INTERNAL_ERROR")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, parseTimeout)
	defer cancel()

	done, err := wsh.sessionMgr.Wait(ctx, sess.ID, func(s models.ParseSession) {
		wsh.sendMessage(ws, WSMessage{
			Type:      MsgTypeParseProgress,
			ID:        msg.ID,
			Timestamp: time.Now().UnixMilli(),
			Payload: mustJSON(WSProgressResponse{
				SessionID: s.ID,
				Status:    s.Status,
				Progress:  s.Progress,
			}),
		})
	})
	if err != nil {
		wsh.sendError(ws, msg.ID, "Parse did not finish: "+err.Error(), "TIMEOUT")
		return
	}
	if done.Status == models.SessionStatusError {
		wsh.sendError(ws, msg.ID, done.Error, "PARSE_FAILED")
		return
	}

	doc, ok := wsh.sessionMgr.GetDocument(sess.ID)
	if !ok {
		wsh.sendError(ws, msg.ID, "document not available", "INTERNAL_ERROR")
		return
	}

	warnings := doc.Warnings
	if warnings == nil {
		warnings = []models.ParseWarning{}
	}
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeParseComplete,
		ID:        msg.ID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSCompleteResponse{
			Session:           done,
			Questions:         parser.ToFlatQuestions(doc),
			ImageRequirements: doc.ImageRequirements,
			Warnings:          warnings,
		}),
	})
}

// Helper methods

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		log.Warnf("[WebSocket] Failed to send message: %v", err)
	}
}

func (wsh *WebSocketHandler) sendError(ws *websocket.Conn, id, message, code string) {
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeError,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Message: message,
			Code:    code,
		}),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
