package handler

import (
	"net/http"
	"strings"

	"staffdesk/internal/apierror"
	"staffdesk/internal/dto"
	"staffdesk/internal/service"

	"github.com/gin-gonic/gin"
)

type EmployeesHandler struct{ svc service.EmployeeService }

func NewEmployeesHandler(svc service.EmployeeService) *EmployeesHandler {
	return &EmployeesHandler{svc: svc}
}

func (h *EmployeesHandler) Create(c *gin.Context) {
	var req dto.CreateEmployeeRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *EmployeesHandler) List(c *gin.Context) {
	filter := dto.EmployeeFilter{
		Name:      c.Query("name"),
		Class:     c.Query("class"),
		Subject:   c.Query("subject"),
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EmployeesHandler) Get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update takes the id from the path, or from the body on /update-employee.
func (h *EmployeesHandler) Update(c *gin.Context) {
	var req dto.UpdateEmployeeRequest
	if !bindJSON(c, &req) {
		return
	}
	id := c.Param("id")
	if id == "" {
		id = strings.TrimSpace(req.ID)
	}
	if id == "" {
		respondError(c, apierror.Validation("Missing `id` in request body"))
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EmployeesHandler) Delete(c *gin.Context) {
	resp, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
