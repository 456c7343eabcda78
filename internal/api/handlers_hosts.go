package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hiroakis/host-management-app/internal/inventory"
	"github.com/hiroakis/host-management-app/models"
)

// listHosts handles GET /api/list/host
// @Summary List host names
// @Tags host
// @Produce json,plain
// @Param format query string false "csv, space or json"
// @Success 200 {object} ResultResponse{result=[]string}
// @Router /api/list/host [get]
func (s *Server) listHosts(c echo.Context) error {
	hosts, err := s.inventory.ListHosts(c.Request().Context())
	if err != nil {
		return err
	}
	return renderList(c, hosts)
}

// allHosts handles GET /api/host
// @Summary List hosts with their roles
// @Tags host
// @Produce json
// @Success 200 {object} ResultResponse{result=[]models.HostRecord}
// @Failure 404 {object} ErrorResponse
// @Router /api/host [get]
func (s *Server) allHosts(c echo.Context) error {
	hosts, err := s.inventory.ListHostsWithRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ResultResponse{Result: hosts})
}

// searchByHost handles GET /api/host/:host_name
// @Summary Look up a host
// @Tags host
// @Produce json
// @Param host_name path string true "Host name"
// @Success 200 {object} ResultResponse{result=[]models.HostRecord}
// @Failure 404 {object} ErrorResponse
// @Router /api/host/{host_name} [get]
func (s *Server) searchByHost(c echo.Context) error {
	host, err := s.inventory.HostByName(c.Request().Context(), c.Param("host_name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ResultResponse{Result: []models.HostRecord{*host}})
}

// addHost handles POST /api/host
// @Summary Register a host
// @Description Binds a free IP to a new host and assigns existing roles
// @Tags host
// @Accept json
// @Produce json
// @Param host body inventory.HostInput true "Host"
// @Success 200 {object} ResultResponse{result=MutationResult}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/host [post]
func (s *Server) addHost(c echo.Context) error {
	const op = "add host"
	body, err := readBody(c)
	if err != nil {
		return err
	}
	in, err := inventory.ParseHostInput(op, body)
	if err != nil {
		return err
	}
	if _, err := s.inventory.RegisterHost(c.Request().Context(), *in); err != nil {
		return err
	}
	return mutationOK(c, op, body)
}

// updateHost handles PUT /api/host/:host_name
// @Summary Replace a host
// @Description Renames the host, moves it to another IP and replaces its roles
// @Tags host
// @Accept json
// @Produce json
// @Param host_name path string true "Current host name"
// @Param host body inventory.HostInput true "Host"
// @Success 200 {object} ResultResponse{result=MutationResult}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/host/{host_name} [put]
func (s *Server) updateHost(c echo.Context) error {
	const op = "update host"
	body, err := readBody(c)
	if err != nil {
		return err
	}
	in, err := inventory.ParseHostInput(op, body)
	if err != nil {
		return err
	}
	if _, err := s.inventory.UpdateHost(c.Request().Context(), c.Param("host_name"), *in); err != nil {
		return err
	}
	return mutationOK(c, op, body)
}

// deleteHost handles DELETE /api/host/:host_name
// @Summary Remove a host
// @Description Frees the host's IP. Removing an unknown host succeeds.
// @Tags host
// @Produce json
// @Param host_name path string true "Host name"
// @Success 200 {object} ResultResponse{result=MutationResult}
// @Router /api/host/{host_name} [delete]
func (s *Server) deleteHost(c echo.Context) error {
	const op = "delete host"
	body, err := readBody(c)
	if err != nil {
		return err
	}
	if err := s.inventory.DeleteHost(c.Request().Context(), c.Param("host_name")); err != nil {
		return err
	}
	return mutationOK(c, op, body)
}

// outputHosts handles GET /api/hosts_output/:role_name
// @Summary Render hosts holding a role as /etc/hosts lines
// @Tags host
// @Produce plain
// @Param role_name path string true "Role name"
// @Success 200 {string} string "ip<TAB>host_name lines"
// @Failure 404 {object} ErrorResponse
// @Router /api/hosts_output/{role_name} [get]
func (s *Server) outputHosts(c echo.Context) error {
	entries, err := s.inventory.HostsTable(c.Request().Context(), c.Param("role_name"))
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, HostsFile(entries))
}
