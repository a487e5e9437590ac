package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/newsexpress/internal/report/domain"
)

// DownloadReport streams a generated report as an attachment.
func (s *Server) DownloadReport(c *gin.Context) {
	var req reportdomain.GenerateRequest
	if err := c.ShouldBindUri(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := bindQuery(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	file, err := s.reportSvc.Generate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func isReportValidationError(err error) bool {
	return errors.Is(err, reportdomain.ErrInvalidType) ||
		errors.Is(err, reportdomain.ErrInvalidFormat)
}
