package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"tablebook/internal/app/dto"
	VenueApp "tablebook/internal/app/handlers/venues"
	"tablebook/internal/app/queries"
)

type VenueHandler struct {
	Queries queries.Bus
}

func (h VenueHandler) Get(c *gin.Context) {
	q := VenueApp.GetVenueQuery{VenueID: c.Param("id")}
	result, err := queries.Ask[VenueApp.GetVenueQuery, *dto.VenueView](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h VenueHandler) List(c *gin.Context) {
	result, err := queries.Ask[VenueApp.ListVenuesQuery, dto.VenueCollection](c.Request.Context(), h.Queries, VenueApp.ListVenuesQuery{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ VenueHTTP = VenueHandler{}
