package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Abort records the original error on the gin context for the logging
// middleware and writes the public JSON body.
func Abort(c *gin.Context, status int, err error, msg string) {
	resp := Response{Status: status}
	resp.Error.Message = msg

	if err != nil {
		_ = c.Error(gin.Error{
			Err:  err,
			Type: gin.ErrorTypePublic,
			Meta: resp,
		})
	}
	c.AbortWithStatusJSON(status, resp)
}

func Internal(c *gin.Context, err error) {
	Abort(c, http.StatusInternalServerError, err, "Internal server error")
}
