// Package params parses numeric identifiers out of gin requests
package params

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
)

func parseID(raw, name string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.InvalidArgument("Invalid %s", name)
	}
	return uint(id), nil
}

// ID parses a positive path parameter
func ID(c *gin.Context, name string) (uint, error) {
	return parseID(c.Param(name), name)
}

// QueryID parses a required positive query parameter
func QueryID(c *gin.Context, name string) (uint, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, apperr.InvalidArgument("%s is required", name)
	}
	return parseID(raw, name)
}
