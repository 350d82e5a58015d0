package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found") // General not found

	// Registration & Resolution Errors (idempotency guards)
	ErrAlreadyRegistered     = errors.New("chapter already has registered plot options")
	ErrWinnerAlreadyResolved = errors.New("winner already resolved for this chapter")

	// Voting state-machine guards.
	// Важно: эти ошибки должны быть отличимы от ошибок самой сделки,
	// чтобы UI мог показать "покупка прошла, но окно голосования закрылось".
	ErrVotingStillActive = errors.New("voting window is still active")
	ErrVotingClosed      = errors.New("voting window is closed")

	// External Ledger Errors
	ErrLedgerUnavailable = errors.New("ledger is unavailable")
	ErrTradeNotSettled   = errors.New("trade is not settled on ledger")

	// Chapter lifecycle Errors
	ErrChapterNotPublishable = errors.New("chapter cannot be published in its current status")
	ErrChapterHasNoChoice    = errors.New("chapter has no choice point")
	ErrStoryHasActiveVoting  = errors.New("story has a chapter with active voting")
	ErrChapterPositionTaken  = errors.New("chapter position is already taken")

	// User & Authentication Errors
	ErrUnauthorized = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden    = errors.New("forbidden")    // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)
