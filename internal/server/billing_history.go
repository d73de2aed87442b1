package server

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	historydomain "github.com/mewayz/workspacebilling/internal/billinghistory/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) ListBillingHistory(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	offset, err := parseOptionalInt(c.Query("offset"))
	if err != nil {
		AbortWithError(c, newValidationError("offset", "invalid_offset", "invalid offset"))
		return
	}

	req := historydomain.ListRequest{WorkspaceID: workspaceID(c)}
	if limit != nil {
		req.Limit = *limit
	}
	if offset != nil {
		req.Offset = *offset
	}

	resp, err := s.historySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportBillingHistory(c *gin.Context) {
	workspace := workspaceID(c)

	body, err := s.historySvc.Export(c.Request.Context(), workspace)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", exportDisposition(workspace))
	c.Data(http.StatusOK, xlsxContentType, body)
}

// exportDisposition names the download after the workspace, keeping only filename-safe runes.
func exportDisposition(workspace string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, workspace)
	return mime.FormatMediaType("attachment", map[string]string{"filename": "billing-history-" + safe + ".xlsx"})
}
