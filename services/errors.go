package services

import "errors"

// Errors shared across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules.
	ErrValidationFailed       = errors.New("validation failed")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrNotEnoughEntries       = errors.New("not enough approved entries to generate a bracket")
	ErrBracketAlreadyExists   = errors.New("bracket already exists; use regenerate to replace it")
	ErrBracketNotGenerated    = errors.New("bracket has not been generated for this tournament")
	ErrGroupStageIncomplete   = errors.New("group stage is not complete")
	ErrKnockoutAlreadySeeded  = errors.New("knockout stage has already been seeded")
	ErrTournamentNotEditable  = errors.New("tournament is completed and can no longer be modified")

	// Authentication and authorization.
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Entity lookups.
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrEntryNotFound      = errors.New("team entry not found")
	ErrNodeNotFound       = errors.New("bracket node not found")
)
