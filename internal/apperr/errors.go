package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotAuthorized indicates that the actor does not own the resource.
var ErrNotAuthorized = errors.New("not authorized")

// ErrInvalidStatus indicates a status transition outside the allowed machine.
var ErrInvalidStatus = errors.New("invalid status transition")

// ErrNoCandidates indicates a broadcast with an empty candidate set.
var ErrNoCandidates = errors.New("no candidate couriers")

// ErrNotBroadcasted indicates an acceptance by a courier the assignment was
// never broadcasted to, or of an assignment no longer open.
var ErrNotBroadcasted = errors.New("assignment not broadcasted to courier")

// ErrAlreadyTaken indicates that another courier accepted first.
var ErrAlreadyTaken = errors.New("assignment already taken")

// ErrCourierBusy indicates that the courier already holds a live assignment.
var ErrCourierBusy = errors.New("courier busy")

// ErrInvalidOrExpiredOTP indicates a wrong or expired delivery code. The two
// cases are deliberately indistinguishable to the caller.
var ErrInvalidOrExpiredOTP = errors.New("invalid or expired code")
