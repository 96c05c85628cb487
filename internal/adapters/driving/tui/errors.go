package tui

import "errors"

// ErrMissingConversation is returned when the conversation service is not provided.
var ErrMissingConversation = errors.New("tui: conversation service is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
