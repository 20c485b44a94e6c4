package handler

import (
	"net/http"
	"strconv"
	"strings"

	"staffdesk/internal/apierror"

	"github.com/gin-gonic/gin"
)

// bindJSON binds the JSON body. Returns false and writes the error response
// on malformed input; field rules are validated by the services so that
// every transport applies them alike.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.Envelope(apierror.Validation("Invalid JSON body: "+err.Error())))
		return false
	}
	return true
}

// respondError writes the envelope for err. Internal causes are attached to
// the gin context for ErrorHandler to log and never reach the client.
func respondError(c *gin.Context, err error) {
	e := apierror.From(err)
	if e.Kind == apierror.KindInternal && e.Cause != nil {
		_ = c.Error(e.Cause)
	}
	c.JSON(e.Kind.HTTPStatus(), apierror.Envelope(e))
}

// queryInt returns nil for absent or non-numeric values so that paging
// falls back to its defaults.
func queryInt(c *gin.Context, key string) *int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}
