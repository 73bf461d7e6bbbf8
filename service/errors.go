// Package service holds the application logic shared by the HTTP API, the
// bot worker and the CLI.
package service

import (
	"errors"
	"strings"

	"friday/models"
)

var (
	ErrInvalidStatus      = errors.New("Invalid status. Must be one of: " + strings.Join(models.TodoStatuses, ", "))
	ErrRoomNotFound       = errors.New("room not found")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrTodoNotFound       = errors.New("todo not found")
	ErrEmptyDescription   = errors.New("description is required")
	ErrInvalidPlatform    = errors.New("platform must be one of: whatsapp, teams, matrix")
	ErrRoomLimit          = errors.New("room limit of the active plan reached")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("invalid input")
)
