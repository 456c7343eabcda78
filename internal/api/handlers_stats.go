package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// getStatistics handles GET /api/stats
// @Summary Inventory counts
// @Description Returns the number of IPs, used and unused IPs, roles, hosts and role assignments
// @Tags stats
// @Produce json
// @Success 200 {object} ResultResponse{result=storage.Counts}
// @Router /api/stats [get]
func (s *Server) getStatistics(c echo.Context) error {
	counts, err := s.inventory.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ResultResponse{Result: counts})
}
