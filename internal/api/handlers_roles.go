package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hiroakis/host-management-app/internal/inventory"
	"github.com/hiroakis/host-management-app/models"
)

// listRoles handles GET /api/list/role
// @Summary List role names
// @Tags role
// @Produce json,plain
// @Param format query string false "csv, space or json"
// @Success 200 {object} ResultResponse{result=[]string}
// @Router /api/list/role [get]
func (s *Server) listRoles(c echo.Context) error {
	roles, err := s.inventory.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return renderList(c, roles)
}

// allRoles handles GET /api/role
// @Summary List role records
// @Tags role
// @Produce json
// @Success 200 {object} ResultResponse{result=[]models.Role}
// @Router /api/role [get]
func (s *Server) allRoles(c echo.Context) error {
	roles, err := s.inventory.ListRoleRecords(c.Request().Context())
	if err != nil {
		return err
	}
	if roles == nil {
		roles = []models.Role{}
	}
	return c.JSON(http.StatusOK, ResultResponse{Result: roles})
}

// searchByRole handles GET /api/role/:role_name
// @Summary List hosts holding a role
// @Tags role
// @Produce json
// @Param role_name path string true "Role name"
// @Success 200 {object} ResultResponse{result=[]models.HostRecord}
// @Failure 404 {object} ErrorResponse
// @Router /api/role/{role_name} [get]
func (s *Server) searchByRole(c echo.Context) error {
	hosts, err := s.inventory.HostsByRole(c.Request().Context(), c.Param("role_name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ResultResponse{Result: hosts})
}

// addRole handles POST /api/role
// @Summary Register a role
// @Tags role
// @Accept json
// @Produce json
// @Param role body inventory.RoleInput true "Role"
// @Success 200 {object} ResultResponse{result=MutationResult}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/role [post]
func (s *Server) addRole(c echo.Context) error {
	const op = "add role"
	body, err := readBody(c)
	if err != nil {
		return err
	}
	in, err := inventory.ParseRoleInput(op, body)
	if err != nil {
		return err
	}
	if err := s.inventory.AddRole(c.Request().Context(), in.Role); err != nil {
		return err
	}
	return mutationOK(c, op, body)
}

// updateRole handles PUT /api/role/:role_name
// @Summary Rename a role
// @Description Renames the role and rewrites its assignments
// @Tags role
// @Accept json
// @Produce json
// @Param role_name path string true "Current name"
// @Param body body inventory.RoleInput true "New name"
// @Success 200 {object} ResultResponse{result=MutationResult}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/role/{role_name} [put]
func (s *Server) updateRole(c echo.Context) error {
	const op = "update role"
	body, err := readBody(c)
	if err != nil {
		return err
	}
	in, err := inventory.ParseRoleInput(op, body)
	if err != nil {
		return err
	}
	if err := s.inventory.UpdateRole(c.Request().Context(), c.Param("role_name"), in.Role); err != nil {
		return err
	}
	return mutationOK(c, op, body)
}

// deleteRole handles DELETE /api/role/:role_name
// @Summary Remove a role
// @Description Assignments referencing the role are left in place
// @Tags role
// @Produce json
// @Param role_name path string true "Role name"
// @Success 200 {object} ResultResponse{result=MutationResult}
// @Failure 404 {object} ErrorResponse
// @Router /api/role/{role_name} [delete]
func (s *Server) deleteRole(c echo.Context) error {
	const op = "delete role"
	body, err := readBody(c)
	if err != nil {
		return err
	}
	if err := s.inventory.DeleteRole(c.Request().Context(), c.Param("role_name")); err != nil {
		return err
	}
	return mutationOK(c, op, body)
}
