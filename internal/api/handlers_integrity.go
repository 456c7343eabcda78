package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// scanIntegrity handles GET /api/integrity
// @Summary Scan the inventory for integrity issues
// @Description Reports dangling, orphaned and duplicate role assignments, wrong is_used flags and hosts bound to unknown IPs
// @Tags integrity
// @Produce json
// @Success 200 {object} integrity.ScanReport
// @Failure 500 {object} ErrorResponse
// @Router /api/integrity [get]
func (s *Server) scanIntegrity(c echo.Context) error {
	report, err := s.integrity.Scan(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// repairIntegrity handles POST /api/integrity/repair
// @Summary Scan and repair low-risk integrity issues
// @Description Runs a fresh scan and applies its low-risk fixes in one transaction
// @Tags integrity
// @Produce json
// @Param dry_run query bool false "Simulate without writing" default(true)
// @Success 200 {object} integrity.RepairResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/integrity/repair [post]
func (s *Server) repairIntegrity(c echo.Context) error {
	dryRun := true
	if v := c.QueryParam("dry_run"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return BadRequestError("dry_run must be a boolean")
		}
		dryRun = parsed
	}

	ctx := c.Request().Context()
	report, err := s.integrity.Scan(ctx)
	if err != nil {
		return err
	}
	result, err := s.integrity.Repair(ctx, report, dryRun)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// lastIntegrity handles GET /api/integrity/last
// @Summary Latest scheduled integrity scan
// @Description Returns the report of the most recent scheduled scan. 404 when scheduled scans are disabled or none has finished yet.
// @Tags integrity
// @Produce json
// @Success 200 {object} integrity.ScanReport
// @Failure 404 {object} ErrorResponse
// @Router /api/integrity/last [get]
func (s *Server) lastIntegrity(c echo.Context) error {
	if s.scheduler == nil {
		return NewAPIError(http.StatusNotFound, MessageNotFound, "scheduled scans are disabled")
	}
	report := s.scheduler.Last()
	if report == nil {
		return NewAPIError(http.StatusNotFound, MessageNotFound, "no scheduled scan has finished yet")
	}
	return c.JSON(http.StatusOK, report)
}
