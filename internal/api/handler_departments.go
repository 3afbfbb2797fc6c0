package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDepartments handles GET /departments: the full name to id table.
func (h *Handler) GetDepartments(c *gin.Context) {
	c.JSON(http.StatusOK, h.departments.Map())
}
