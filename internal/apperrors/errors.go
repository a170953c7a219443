// Package apperrors defines sentinel errors for all RPCs and match handlers.
// Return these unwrapped — wrapping changes the gRPC code on the wire.
package apperrors

import "github.com/heroiclabs/nakama-common/runtime"

// gRPC status codes.
const (
	CodeInternal        = 13 // codes.Internal
	CodeInvalidArg      = 3  // codes.InvalidArgument
	CodeForbidden       = 7  // codes.PermissionDenied
	CodeFailedPrecond   = 9  // codes.FailedPrecondition
	CodeAlreadyExists   = 6  // codes.AlreadyExists
	CodeUnavailable     = 14 // codes.Unavailable
	CodeResourceExhaust = 8  // codes.ResourceExhausted
)

// Validation — malformed event payload. No state change.
var (
	ErrUnmarshal      = runtime.NewError("cannot unmarshal payload", CodeInvalidArg)
	ErrInvalidPayload = runtime.NewError("invalid request payload", CodeInvalidArg)
	ErrInvalidAmount  = runtime.NewError("amount must be positive", CodeInvalidArg)
	ErrUnknownEvent   = runtime.NewError("unknown event", CodeInvalidArg)
)

// Authorization — connection's user is not a participant of the referenced room.
var (
	ErrNoUserID        = runtime.NewError("no user ID in context", CodeInvalidArg)
	ErrNotParticipant  = runtime.NewError("not a participant of this room", CodeForbidden)
	ErrNotYourTurn     = runtime.NewError("not your turn", CodeForbidden)
	ErrSignatureInvalid = runtime.NewError("gateway signature invalid", CodeForbidden)
	ErrForbidden       = runtime.NewError("forbidden", CodeForbidden)
)

// State — action attempted in the wrong room/game state.
var (
	ErrRoomNotWaiting  = runtime.NewError("room is not waiting for players", CodeFailedPrecond)
	ErrRoomNotPlaying  = runtime.NewError("room is not in play", CodeFailedPrecond)
	ErrRoomNotFound    = runtime.NewError("room not found", CodeInvalidArg)
	ErrIllegalMove     = runtime.NewError("illegal move", CodeFailedPrecond)
	ErrAlreadyQueued   = runtime.NewError("already queued for matchmaking", CodeFailedPrecond)
	ErrNotQueued       = runtime.NewError("not queued for matchmaking", CodeFailedPrecond)
)

// Resource — insufficient funds / exhausted resource.
var (
	ErrInsufficientBalance = runtime.NewError("insufficient balance", CodeResourceExhaust)
)

// Conflict — duplicate idempotent operation; callers should treat as success.
var (
	ErrDuplicateReceipt = runtime.NewError("duplicate gateway receipt", CodeAlreadyExists)
	ErrAlreadySettled   = runtime.NewError("room already settled", CodeAlreadyExists)
)

// Transient storage — caller may retry reads; writes are not retried within a handler.
var (
	ErrStorageUnavailable = runtime.NewError("storage temporarily unavailable", CodeUnavailable)
)

// Fatal — invariant violation. Operation aborts, state unchanged, no auto-recovery.
var (
	ErrLedgerInvariant = runtime.NewError("internal ledger invariant violated", CodeInternal)
	ErrInternal        = runtime.NewError("internal server error", CodeInternal)
)
