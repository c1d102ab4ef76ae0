package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	domainavailability "tablebook/internal/domain/availability"
	domaincustomer "tablebook/internal/domain/customer"
	domainreservation "tablebook/internal/domain/reservation"
	domainvenue "tablebook/internal/domain/venue"
	"tablebook/internal/infra/locks"
)

// writeError translates domain failures into HTTP responses. Rule violations
// carry the failed rule and offending value so clients can fix the request.
func writeError(c *gin.Context, err error) {
	var violation *domainavailability.Violation
	if errors.As(err, &violation) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": violation.Detail,
			"rule":  violation.Rule,
			"value": violation.Value,
		})
		return
	}
	switch {
	case errors.Is(err, domainreservation.ErrReservationNotFound),
		errors.Is(err, domainvenue.ErrVenueNotFound),
		errors.Is(err, domaincustomer.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, locks.ErrAcquireTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "venue is busy, retry shortly"})
	case errors.Is(err, domainavailability.ErrUnreservable),
		errors.Is(err, domainreservation.ErrInvalidState),
		errors.Is(err, domainreservation.ErrStillUpcoming),
		errors.Is(err, domainreservation.ErrInvalidGuests):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
