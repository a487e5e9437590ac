package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	publicationdomain "github.com/smallbiznis/newsexpress/internal/publication/domain"
)

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

func (s *Server) CreatePublication(c *gin.Context) {
	var req publicationdomain.CreatePublicationRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.publicationSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// ListPublications shows customers only what they can subscribe to.
func (s *Server) ListPublications(c *gin.Context) {
	var query publicationdomain.ListPublicationRequest
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}
	if p, ok := currentPrincipal(c); ok && !p.Role.IsStaff() {
		query.AvailableOnly = true
	}
	query.Query = strings.TrimSpace(query.Query)

	resp, err := s.publicationSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Publications, "page_info": resp.PageInfo})
}

func (s *Server) GetPublication(c *gin.Context) {
	resp, err := s.publicationSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetPublicationAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.publicationSvc.SetAvailability(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.IsAvailable)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePublication(c *gin.Context) {
	if err := s.publicationSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func isPublicationValidationError(err error) bool {
	switch {
	case errors.Is(err, publicationdomain.ErrInvalidID),
		errors.Is(err, publicationdomain.ErrInvalidTitle),
		errors.Is(err, publicationdomain.ErrInvalidType),
		errors.Is(err, publicationdomain.ErrInvalidPrice),
		errors.Is(err, publicationdomain.ErrInvalidFrequency),
		errors.Is(err, publicationdomain.ErrInvalidPublisher),
		errors.Is(err, publicationdomain.ErrInvalidImageURL),
		errors.Is(err, publicationdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}
