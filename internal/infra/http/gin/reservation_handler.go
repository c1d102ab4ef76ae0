package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tablebook/internal/app/commands"
	"tablebook/internal/app/dto"
	reservationapp "tablebook/internal/app/handlers/reservation"
	"tablebook/internal/app/queries"
)

type ReservationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createReservationRequest struct {
	CustomerID string    `json:"customer_id"`
	VenueID    string    `json:"venue_id"`
	When       time.Time `json:"when"`
	Guests     int       `json:"guests"`
}

type modifyReservationRequest struct {
	When   time.Time `json:"when"`
	Guests int       `json:"guests"`
}

func (h ReservationHandler) Create(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := reservationapp.CreateReservationCommand{
		CommandID:       generateCommandID(),
		CustomerID:      req.CustomerID,
		VenueID:         req.VenueID,
		When:            req.When,
		Guests:          req.Guests,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[reservationapp.CreateReservationCommand, *dto.ReservationView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReservationHandler) Modify(c *gin.Context) {
	var req modifyReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := reservationapp.ModifyReservationCommand{
		ReservationID: c.Param("id"),
		When:          req.When,
		Guests:        req.Guests,
	}
	result, err := commands.Dispatch[reservationapp.ModifyReservationCommand, *dto.ReservationView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Complete(c *gin.Context) {
	cmd := reservationapp.CompleteReservationCommand{ReservationID: c.Param("id")}
	result, err := commands.Dispatch[reservationapp.CompleteReservationCommand, *dto.ReservationView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Cancel(c *gin.Context) {
	cmd := reservationapp.CancelReservationCommand{ReservationID: c.Param("id")}
	result, err := commands.Dispatch[reservationapp.CancelReservationCommand, *dto.ReservationView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Delete(c *gin.Context) {
	cmd := reservationapp.DeleteReservationCommand{ReservationID: c.Param("id")}
	result, err := commands.Dispatch[reservationapp.DeleteReservationCommand, *reservationapp.DeleteReservationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Get(c *gin.Context) {
	q := reservationapp.GetReservationQuery{ReservationID: c.Param("id")}
	result, err := queries.Ask[reservationapp.GetReservationQuery, *dto.ReservationView](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) List(c *gin.Context) {
	result, err := queries.Ask[reservationapp.ListReservationsQuery, dto.ReservationCollection](c.Request.Context(), h.Queries, reservationapp.ListReservationsQuery{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) History(c *gin.Context) {
	q := reservationapp.GetHistoryQuery{ReservationID: c.Param("id")}
	result, err := queries.Ask[reservationapp.GetHistoryQuery, dto.HistoryCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ ReservationHTTP = ReservationHandler{}
