package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/federicogiustii/carbonshift/internal/apierrors"
	"github.com/federicogiustii/carbonshift/internal/domain"
)

// submitRequestBody is the wire shape for POST /v1/requests. ID is
// optional: callers that don't supply one get a generated UUID back in the
// response.
type submitRequestBody struct {
	ID       string          `json:"id"`
	Deadline int             `json:"deadline"`
	Payload  json.RawMessage `json:"payload"`
	Callback string          `json:"callback"`
}

func (s *Server) submitRequest(c *gin.Context) {
	var body submitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.metrics.RequestsRejected.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if body.ID == "" {
		body.ID = uuid.NewString()
	}

	req := domain.Request{
		ID:       body.ID,
		Deadline: body.Deadline,
		Payload:  body.Payload,
		Callback: body.Callback,
		Status:   domain.StatusPending,
	}

	if err := s.pool.Admit(req); err != nil {
		s.metrics.RequestsRejected.Inc()
		status := http.StatusBadRequest
		if errors.Is(err, apierrors.ErrInvalidDeadline) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error(), "kind": string(apierrors.KindOf(err))})
		return
	}

	s.metrics.RequestsAdmitted.Inc()
	s.metrics.PendingRequests.Set(float64(s.pool.Size()))
	c.JSON(http.StatusAccepted, gin.H{"id": req.ID, "status": req.Status.String()})
}

func (s *Server) runSchedule(c *gin.Context) {
	result, assignment, err := s.runScheduleCycle(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apierrors.ErrNoFeasibleAssignment) || errors.Is(err, apierrors.ErrCatalogMalformed) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error(), "kind": string(apierrors.KindOf(err))})
		return
	}

	s.metrics.PendingRequests.Set(float64(s.pool.Size()))

	c.JSON(http.StatusOK, gin.H{
		"status":          string(result.Status),
		"objective_value": result.ObjectiveValue,
		"solve_time":      result.SolveTime.String(),
		"assigned":        len(assignment),
	})
}

func (s *Server) status(c *gin.Context) {
	admitted, drained := s.pool.Stats()
	dispatched, errs := s.dispatch.Stats()
	s.metrics.DispatcherTick.Set(float64(s.dispatch.CurrentTick()))

	c.JSON(http.StatusOK, gin.H{
		"pending_requests":    s.pool.Size(),
		"requests_admitted":   admitted,
		"requests_drained":    drained,
		"dispatcher_tick":     s.dispatch.CurrentTick(),
		"dispatcher_executed": dispatched,
		"dispatcher_errors":   errs,
	})
}
