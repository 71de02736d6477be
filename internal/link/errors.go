package link

import "errors"

// Domain errors for the link package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, link.ErrLinkNotFound) {
//	    // handle not found case
//	}
var (
	// ErrLinkNotFound is returned when a link ID does not exist.
	ErrLinkNotFound = errors.New("link: not found")

	// ErrLinkExists is returned when a channel is already linked to the same item.
	ErrLinkExists = errors.New("link: already exists")

	// ErrInvalidLink is returned when link validation fails.
	ErrInvalidLink = errors.New("link: invalid")

	errNilFactory = errors.New("link: nil callback factory")
)
