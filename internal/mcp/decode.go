package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/kin/internal/errors"
)

// decode binds tool arguments into T. Malformed arguments are INVALID_REQUEST.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var args T
	if err := req.BindArguments(&args); err != nil {
		return args, errors.NewInvalidRequest("invalid arguments: " + err.Error())
	}
	return args, nil
}
