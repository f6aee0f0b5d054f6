package handlers

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/types"
)

// ProgressHub fans pipeline status changes out to websocket subscribers,
// keyed by project id. It implements pipeline.Publisher.
type ProgressHub struct {
	log *logrus.Logger

	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]bool
}

// NewProgressHub creates an empty hub.
func NewProgressHub(log *logrus.Logger) *ProgressHub {
	return &ProgressHub{
		log:  log,
		subs: make(map[string]map[*websocket.Conn]bool),
	}
}

type progressEvent struct {
	ProjectID string       `json:"project_id"`
	Status    types.Status `json:"status"`
	Detail    string       `json:"detail,omitempty"`
	Time      string       `json:"time"`
}

// Publish sends a status event to every subscriber of the project. Dead
// connections are dropped on write failure.
func (h *ProgressHub) Publish(projectID string, status types.Status, detail string) {
	event := progressEvent{
		ProjectID: projectID,
		Status:    status,
		Detail:    detail,
		Time:      time.Now().UTC().Format(time.RFC3339),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.subs[projectID] {
		if err := conn.WriteJSON(event); err != nil {
			delete(h.subs[projectID], conn)
			conn.Close()
		}
	}
}

// Serve is the websocket handler for GET /ws/:id. It holds the connection
// open until the client goes away; events arrive via Publish.
func (h *ProgressHub) Serve(conn *websocket.Conn) {
	projectID := conn.Params("id")
	h.subscribe(projectID, conn)
	defer h.unsubscribe(projectID, conn)

	h.log.WithField("project", projectID).Debug("[ws] subscriber connected")

	// Reads only serve to detect disconnects; clients do not send data.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ProgressHub) subscribe(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[projectID] == nil {
		h.subs[projectID] = make(map[*websocket.Conn]bool)
	}
	h.subs[projectID][conn] = true
}

func (h *ProgressHub) unsubscribe(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[projectID], conn)
	if len(h.subs[projectID]) == 0 {
		delete(h.subs, projectID)
	}
	conn.Close()
}
