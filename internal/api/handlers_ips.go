package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hiroakis/host-management-app/internal/inventory"
	"github.com/hiroakis/host-management-app/internal/validation"
	"github.com/hiroakis/host-management-app/models"
)

// listIPs handles GET /api/list/ip
// @Summary List IP addresses
// @Description Lists every registered address
// @Tags ip
// @Produce json,plain
// @Param format query string false "csv, space or json"
// @Success 200 {object} ResultResponse{result=[]string}
// @Router /api/list/ip [get]
func (s *Server) listIPs(c echo.Context) error {
	ips, err := s.inventory.ListIPs(c.Request().Context())
	if err != nil {
		return err
	}
	return renderList(c, ips)
}

// listUsedIPs handles GET /api/list/ip/used
// @Summary List used IP addresses
// @Tags ip
// @Produce json,plain
// @Param format query string false "csv, space or json"
// @Success 200 {object} ResultResponse{result=[]string}
// @Router /api/list/ip/used [get]
func (s *Server) listUsedIPs(c echo.Context) error {
	ips, err := s.inventory.ListUsedIPs(c.Request().Context())
	if err != nil {
		return err
	}
	return renderList(c, ips)
}

// listUnusedIPs handles GET /api/list/ip/unused
// @Summary List unused IP addresses
// @Tags ip
// @Produce json,plain
// @Param format query string false "csv, space or json"
// @Success 200 {object} ResultResponse{result=[]string}
// @Router /api/list/ip/unused [get]
func (s *Server) listUnusedIPs(c echo.Context) error {
	ips, err := s.inventory.ListUnusedIPs(c.Request().Context())
	if err != nil {
		return err
	}
	return renderList(c, ips)
}

// listIPsByRole handles GET /api/list/ip/role/:role_name
// @Summary List IP addresses of hosts holding a role
// @Tags ip
// @Produce json,plain
// @Param role_name path string true "Role name"
// @Param format query string false "csv, space or json"
// @Success 200 {object} ResultResponse{result=[]string}
// @Router /api/list/ip/role/{role_name} [get]
func (s *Server) listIPsByRole(c echo.Context) error {
	ips, err := s.inventory.ListIPsByRole(c.Request().Context(), c.Param("role_name"))
	if err != nil {
		return err
	}
	return renderList(c, ips)
}

// allIPs handles GET /api/ip
// @Summary List IP records
// @Tags ip
// @Produce json
// @Success 200 {object} ResultResponse{result=[]models.IP}
// @Router /api/ip [get]
func (s *Server) allIPs(c echo.Context) error {
	ips, err := s.inventory.ListIPRecords(c.Request().Context())
	if err != nil {
		return err
	}
	if ips == nil {
		ips = []models.IP{}
	}
	return c.JSON(http.StatusOK, ResultResponse{Result: ips})
}

// searchByIP handles GET /api/ip/:ip
// @Summary Look up the host bound to an IP
// @Tags ip
// @Produce json
// @Param ip path string true "IP address"
// @Success 200 {object} ResultResponse{result=[]models.HostRecord}
// @Failure 404 {object} ErrorResponse
// @Router /api/ip/{ip} [get]
func (s *Server) searchByIP(c echo.Context) error {
	host, err := s.inventory.HostByIP(c.Request().Context(), c.Param("ip"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ResultResponse{Result: []models.HostRecord{*host}})
}

// addIP handles POST /api/ip
// @Summary Register an IP address
// @Tags ip
// @Accept json
// @Produce json
// @Param ip body inventory.IPInput true "Address"
// @Success 200 {object} ResultResponse{result=MutationResult}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/ip [post]
func (s *Server) addIP(c echo.Context) error {
	const op = "add ip"
	body, err := readBody(c)
	if err != nil {
		return err
	}
	in, err := inventory.ParseIPInput(op, body)
	if err != nil {
		return err
	}
	if err := s.inventory.AddIP(c.Request().Context(), in.IP); err != nil {
		return err
	}
	return mutationOK(c, op, body)
}

// updateIP handles PUT /api/ip/:ip
// @Summary Change an IP address
// @Description Renames the address and re-points the host bound to it
// @Tags ip
// @Accept json
// @Produce json
// @Param ip path string true "Current address"
// @Param body body inventory.IPInput true "New address"
// @Success 200 {object} ResultResponse{result=MutationResult}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/ip/{ip} [put]
func (s *Server) updateIP(c echo.Context) error {
	const op = "update ip"
	body, err := readBody(c)
	if err != nil {
		return err
	}
	in, err := inventory.ParseIPInput(op, body)
	if err != nil {
		return err
	}
	if err := s.inventory.UpdateIP(c.Request().Context(), c.Param("ip"), in.IP); err != nil {
		return err
	}
	return mutationOK(c, op, body)
}

// deleteIP handles DELETE /api/ip/:ip
// @Summary Remove an unused IP address
// @Tags ip
// @Produce json
// @Param ip path string true "IP address"
// @Success 200 {object} ResultResponse{result=MutationResult}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/ip/{ip} [delete]
func (s *Server) deleteIP(c echo.Context) error {
	const op = "delete ip"
	addr := c.Param("ip")
	if !validation.IsValidIP(addr) {
		return BadRequestError("invalid ip " + addr)
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}
	if err := s.inventory.DeleteIP(c.Request().Context(), addr); err != nil {
		return err
	}
	return mutationOK(c, op, body)
}
