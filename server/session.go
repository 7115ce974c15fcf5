package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jupark12/pdf-diff/coordinator"
	"github.com/jupark12/pdf-diff/models"
	"github.com/jupark12/pdf-diff/worker"
)

// clientMessage is what a websocket client sends.
type clientMessage struct {
	Type     string `json:"type"` // compare | clear
	Baseline string `json:"baseline,omitempty"`
	Revised  string `json:"revised,omitempty"`
}

type sessionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type statusMessage struct {
	Type     string            `json:"type"`
	JobID    int64             `json:"jobId"`
	State    coordinator.State `json:"state"`
	Advisory string            `json:"advisory,omitempty"`
}

type resultMessage struct {
	Type           string               `json:"type"`
	JobID          int64                `json:"jobId"`
	Mode           models.Mode          `json:"mode"`
	Advisory       string               `json:"advisory,omitempty"`
	TextDiff       []models.DiffSegment `json:"textDiff"`
	RemovedIndexes []int                `json:"removedIndexes"`
	AddedIndexes   []int                `json:"addedIndexes"`
	Stats          models.WordStats     `json:"stats"`
	Baseline       *models.Extraction   `json:"baseline"`
	Revised        *models.Extraction   `json:"revised"`
}

type errorMessage struct {
	Type      string `json:"type"`
	JobID     int64  `json:"jobId"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// invalidMessage rejects a client message without starting a job.
type invalidMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func eventMessage(e coordinator.Event) any {
	switch e.Type {
	case coordinator.EventResult:
		r := e.Result
		return resultMessage{
			Type:           "result",
			JobID:          r.JobID,
			Mode:           r.Mode,
			Advisory:       r.Advisory,
			TextDiff:       r.TextDiff,
			RemovedIndexes: r.Changes.Removed,
			AddedIndexes:   r.Changes.Added,
			Stats:          r.Stats,
			Baseline:       r.Baseline,
			Revised:        r.Revised,
		}
	case coordinator.EventError:
		return errorMessage{
			Type:      "error",
			JobID:     e.JobID,
			Kind:      models.ErrorKind(e.Err),
			Message:   e.Err.Error(),
			Retryable: models.Retryable(e.Err),
		}
	default:
		return statusMessage{Type: "status", JobID: e.JobID, State: e.State, Advisory: e.Advisory}
	}
}

// session is one websocket client with its own coordinator and worker.
type session struct {
	srv   *Server
	conn  *websocket.Conn
	coord *coordinator.Coordinator
	docs  []string
}

// handleWebSocket upgrades the connection and runs a comparison session on it until
// the client disconnects or the server shuts down.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.beginSession() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.sessions.Done()
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}
	s.wsManager.RegisterClient(conn)

	ctx, cancel := context.WithCancel(s.ctx)
	sess := &session{srv: s, conn: conn}

	wk := worker.NewWorker("ws-"+conn.RemoteAddr().String(), func(resp models.Response) {
		sess.coord.Deliver(resp)
	})
	sess.coord = coordinator.New(s.extractor, wk, s.recorder, func(e coordinator.Event) {
		s.wsManager.Send(conn, eventMessage(e))
	})
	wk.Start(ctx)

	go func() {
		<-ctx.Done()
		// Unblocks the read loop on server shutdown.
		conn.Close()
	}()
	go func() {
		defer s.sessions.Done()
		defer cancel()
		sess.serve()
	}()
}

func (sess *session) serve() {
	s := sess.srv
	log.Printf("Session %s opened", sess.coord.SessionID)
	s.wsManager.Send(sess.conn, sessionMessage{Type: "session", SessionID: sess.coord.SessionID})

	defer func() {
		s.wsManager.UnregisterClient(sess.conn)
		sess.coord.Close()
		sess.setDocuments()
		log.Printf("Session %s closed", sess.coord.SessionID)
	}()

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Session %s read failed: %v", sess.coord.SessionID, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.wsManager.Send(sess.conn, invalidMessage{Type: "invalid", Message: "malformed message"})
			continue
		}

		switch msg.Type {
		case "compare":
			sess.compare(msg)
		case "clear":
			sess.coord.Clear()
			sess.setDocuments()
		default:
			s.wsManager.Send(sess.conn, invalidMessage{Type: "invalid", Message: "unknown message type " + msg.Type})
		}
	}
}

func (sess *session) compare(msg clientMessage) {
	s := sess.srv
	basePath, err := s.lookupDocument(msg.Baseline)
	if err != nil {
		s.wsManager.Send(sess.conn, invalidMessage{Type: "invalid", Message: "unknown baseline document"})
		return
	}
	revPath, err := s.lookupDocument(msg.Revised)
	if err != nil {
		s.wsManager.Send(sess.conn, invalidMessage{Type: "invalid", Message: "unknown revised document"})
		return
	}

	sess.setDocuments(msg.Baseline, msg.Revised)
	sess.coord.Compare(coordinator.Inputs{
		Baseline: coordinator.Document{ID: msg.Baseline, Path: basePath},
		Revised:  coordinator.Document{ID: msg.Revised, Path: revPath},
	})
}

// setDocuments replaces the documents the session compares. Previews of documents that
// no session compares any more are cancelled.
func (sess *session) setDocuments(ids ...string) {
	old := sess.docs
	sess.docs = ids
	sess.srv.retain(ids...)
	sess.srv.release(old...)
}
