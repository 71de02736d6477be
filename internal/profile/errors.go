package profile

import "errors"

// Domain errors for the profile package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, profile.ErrNoSuggestion) {
//	    // report the link as unresolved
//	}
var (
	// ErrUnsupportedChannelKind is returned when a channel is neither STATE nor TRIGGER.
	ErrUnsupportedChannelKind = errors.New("profile: unsupported channel kind")

	// ErrNoSuggestion is returned when no advisor, including the fallback, suggests a type.
	ErrNoSuggestion = errors.New("profile: no suggestion")

	// ErrUnresolvedProfile is returned when no factory produces a profile for a type UID.
	ErrUnresolvedProfile = errors.New("profile: unresolved profile")

	// ErrKindMismatch is returned when the produced profile does not handle the channel's kind.
	ErrKindMismatch = errors.New("profile: kind mismatch")

	// ErrNilCallback is returned when resolution is attempted without a callback.
	ErrNilCallback = errors.New("profile: nil callback")

	// ErrInvalidTypeUID is returned when a type UID is not of the form "namespace:id".
	ErrInvalidTypeUID = errors.New("profile: invalid type uid")
)
