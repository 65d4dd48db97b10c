// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotAuthorized indicates the caller lacks the required permission or role.
var ErrNotAuthorized = errors.New("not authorized")

// ErrInvalidState indicates the operation is not valid for the entity's
// current lifecycle state.
var ErrInvalidState = errors.New("invalid task state")

// ErrInvalidOwner indicates an ownership precondition failed.
var ErrInvalidOwner = errors.New("invalid owner")

// ErrInvalidArgument indicates malformed or missing input.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrConcurrency indicates an optimistic-lock mismatch: the entity was
// modified by another request since it was read.
var ErrConcurrency = errors.New("concurrent modification")

// ErrAlreadyExists indicates a uniqueness violation, such as a duplicate
// workbasket key+domain or a duplicate access item.
var ErrAlreadyExists = errors.New("already exists")

// ErrInvalidRequest indicates a malformed query construction, such as a
// duplicate sort directive.
var ErrInvalidRequest = errors.New("invalid request")
