// Package mcp implements Roux's Model Context Protocol (MCP) server: the
// tool surface described by the specification's external interfaces,
// wrapping the store engine with input validation and output truncation.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexgetty/roux/internal/rerrors"
)

// JSON-RPC error codes returned to MCP clients.
const (
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
	ErrCodeTimeout        = -32001
)

// MCPError is an MCP protocol error with a JSON-RPC code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError translates an engine error into an MCPError, using the
// RouxError kind when present and falling back to a generic internal
// error otherwise.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "request timed out"}
	}

	var re *rerrors.RouxError
	if errors.As(err, &re) {
		return mapRouxError(re)
	}

	return &MCPError{Code: ErrCodeInternalError, Message: "internal server error"}
}

func mapRouxError(re *rerrors.RouxError) *MCPError {
	switch re.Kind {
	case rerrors.InvalidInput:
		return &MCPError{Code: ErrCodeInvalidParams, Message: re.Error()}
	case rerrors.NodeNotFound:
		return &MCPError{Code: ErrCodeInvalidParams, Message: re.Error()}
	case rerrors.NodeExists:
		return &MCPError{Code: ErrCodeInvalidParams, Message: re.Error()}
	case rerrors.LinkIntegrity:
		return &MCPError{Code: ErrCodeInvalidParams, Message: re.Error()}
	case rerrors.DimensionMismatch:
		return &MCPError{Code: ErrCodeInvalidParams, Message: re.Error()}
	case rerrors.ProviderError:
		return &MCPError{Code: ErrCodeInternalError, Message: re.Error()}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: re.Error()}
	}
}

// NewInvalidParamsError creates an invalid-params error with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for an unknown tool name.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("tool %q not found", name)}
}

// NewResourceNotFoundError creates an error for an unknown resource URI.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("resource %q not found", uri)}
}
