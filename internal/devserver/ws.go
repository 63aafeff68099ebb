package devserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/realtime"
)

// penaltyFraction is deducted from the exam's max score on the first
// reported violation.
const penaltyFraction = 0.20

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler serves the proctoring stream.
type WSHandler struct {
	store    *Store
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(store *Store, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		store:    store,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/student/exams/:exam_id/stream?token=...
// Receives cheating alerts and identity snapshots from the client and
// pushes penalty notices back.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", claims.UserID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected to proctoring stream")

	for {
		var env realtime.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch env.Event {
		case realtime.EventCheatingAlert:
			h.handleCheatingAlert(conn, wsLog, examID, &env)
		case realtime.EventMonitorSnapshot:
			h.handleSnapshot(wsLog, &env)
		default:
			wsLog.Warn().Str("event", string(env.Event)).Msg("Unknown event")
			writeEvent(conn, realtime.EventError, gin.H{"message": "unknown event: " + string(env.Event)})
		}
	}
}

// handleCheatingAlert records the violation and, on the first one, applies
// the penalty and pushes a points_deducted notice back to the client.
func (h *WSHandler) handleCheatingAlert(conn *websocket.Conn, wsLog zerolog.Logger, examID uuid.UUID, env *realtime.Envelope) {
	var violation model.ViolationEvent
	if err := json.Unmarshal(env.Data, &violation); err != nil {
		writeEvent(conn, realtime.EventError, gin.H{"message": "malformed cheating_alert payload"})
		return
	}

	count, err := h.store.RecordViolation(violation.AttemptID)
	if err != nil {
		writeEvent(conn, realtime.EventError, gin.H{"message": "attempt not found"})
		return
	}

	wsLog.Warn().
		Str("attempt_id", violation.AttemptID.String()).
		Str("type", string(violation.Type)).
		Int("violations", count).
		Msg("Cheating alert received")

	exam, err := h.store.Exam(examID)
	if err != nil {
		return
	}
	var maxScore float64
	for i := range exam.Questions {
		maxScore += exam.Questions[i].Points
	}

	penalty := maxScore * penaltyFraction
	if penalty <= 0 || !h.store.ApplyPenalty(violation.AttemptID, penalty) {
		return
	}

	wsLog.Info().
		Str("attempt_id", violation.AttemptID.String()).
		Float64("points_deducted", penalty).
		Msg("Penalty applied")

	writeEvent(conn, realtime.EventPointsDeducted, model.PenaltyNotice{
		AttemptID:      violation.AttemptID,
		PointsDeducted: penalty,
	})
}

// handleSnapshot counts a received identity capture. Images are not kept;
// the dev server only tracks that monitoring is flowing.
func (h *WSHandler) handleSnapshot(wsLog zerolog.Logger, env *realtime.Envelope) {
	var snap model.SnapshotEvent
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		wsLog.Debug().Msg("Malformed monitor_snapshot payload")
		return
	}

	h.store.RecordSnapshot(snap.AttemptID)
	wsLog.Debug().
		Str("attempt_id", snap.AttemptID.String()).
		Str("reason", string(snap.Reason)).
		Msg("Snapshot received")
}

// writeEvent marshals and sends one envelope, ignoring write failures;
// a broken connection surfaces on the next read.
func writeEvent(conn *websocket.Conn, event realtime.Event, payload interface{}) {
	env, err := realtime.NewEnvelope(event, payload)
	if err != nil {
		return
	}
	_ = conn.WriteJSON(env)
}
