package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	employeedomain "github.com/smallbiznis/newsexpress/internal/employee/domain"
)

type createEmployeeRequest struct {
	Email       string                  `json:"email" binding:"required,email"`
	Password    string                  `json:"password" binding:"required"`
	DisplayName string                  `json:"display_name" binding:"required"`
	Phone       string                  `json:"phone"`
	Position    employeedomain.Position `json:"position" binding:"required"`
	Zone        string                  `json:"zone"`
	Salary      int64                   `json:"salary" binding:"gte=0"`
	HiredAt     string                  `json:"hired_at" binding:"omitempty,date"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (s *Server) CreateEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	hiredAt, err := parseOptionalDate("hired_at", req.HiredAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.employeeSvc.Create(c.Request.Context(), employeedomain.CreateEmployeeRequest{
		Email:       strings.TrimSpace(req.Email),
		Password:    req.Password,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Phone:       strings.TrimSpace(req.Phone),
		Position:    req.Position,
		Zone:        strings.TrimSpace(req.Zone),
		Salary:      req.Salary,
		HiredAt:     hiredAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListEmployees(c *gin.Context) {
	var query employeedomain.ListEmployeeRequest
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.employeeSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Employees, "page_info": resp.PageInfo})
}

func (s *Server) SetEmployeeActive(c *gin.Context) {
	var req setActiveRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.employeeSvc.SetActive(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.IsActive)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isEmployeeValidationError(err error) bool {
	switch {
	case errors.Is(err, employeedomain.ErrInvalidID),
		errors.Is(err, employeedomain.ErrInvalidPosition),
		errors.Is(err, employeedomain.ErrInvalidSalary),
		errors.Is(err, employeedomain.ErrInvalidPageToken),
		errors.Is(err, employeedomain.ErrNotDeliveryPerson),
		errors.Is(err, employeedomain.ErrEmployeeInactive):
		return true
	default:
		return false
	}
}
