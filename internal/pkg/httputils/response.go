// Package httputils provides HTTP utility functions.
package httputils

import (
	"github.com/gin-gonic/gin"

	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/errors"
	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/response"
)

// WriteResponse writes the response to the client.
// It handles both success and error cases, ensuring consistent envelope
// format.
func WriteResponse(c *gin.Context, err error, data interface{}) {
	if err != nil {
		WriteEnvelope(c, response.Err(errors.FromError(err)))
		return
	}

	// data can be a prepared *response.Response or a raw payload.
	if resp, ok := data.(*response.Response); ok {
		WriteEnvelope(c, resp)
		return
	}

	WriteEnvelope(c, response.Success(data))
}

// WriteEnvelope serializes a prepared envelope with its HTTP status.
func WriteEnvelope(c *gin.Context, resp *response.Response) {
	c.JSON(resp.HTTPStatus(), resp)
}
