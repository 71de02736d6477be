package link

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-link/internal/profile"
)

// Validation constants.
const (
	maxChannelUIDLength = 255
	maxItemNameLength   = 100
	maxItemTypeLength   = 50
	maxConfigKeys       = 20
	itemNamePattern     = `^[A-Za-z_][A-Za-z0-9_]*$`
	itemTypePattern     = `^[A-Za-z][A-Za-z0-9:_-]*$`
)

var (
	itemNameRegex = regexp.MustCompile(itemNamePattern)
	itemTypeRegex = regexp.MustCompile(itemTypePattern)
)

// ValidateLink checks a link before it is persisted or activated.
// Returns an error wrapping ErrInvalidLink describing the first failure.
func ValidateLink(l *Link) error {
	if l == nil {
		return ErrInvalidLink
	}

	if err := ValidateChannelUID(l.ChannelUID); err != nil {
		return err
	}

	if _, err := profile.ParseChannelKind(string(l.ChannelKind)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLink, err)
	}

	if err := ValidateItemName(l.ItemName); err != nil {
		return err
	}

	if l.ItemType != "" {
		if len(l.ItemType) > maxItemTypeLength || !itemTypeRegex.MatchString(l.ItemType) {
			return fmt.Errorf("%w: invalid item type %q", ErrInvalidLink, l.ItemType)
		}
	}

	if !l.ProfileTypeUID.IsZero() {
		if _, err := profile.ParseTypeUID(string(l.ProfileTypeUID)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidLink, err)
		}
	}

	if len(l.Configuration) > maxConfigKeys {
		return fmt.Errorf("%w: configuration exceeds %d keys", ErrInvalidLink, maxConfigKeys)
	}

	return nil
}

// ValidateChannelUID checks that a channel UID is usable as a single MQTT
// topic level.
func ValidateChannelUID(uid string) error {
	if uid == "" {
		return fmt.Errorf("%w: channel uid is required", ErrInvalidLink)
	}
	if len(uid) > maxChannelUIDLength {
		return fmt.Errorf("%w: channel uid exceeds %d characters", ErrInvalidLink, maxChannelUIDLength)
	}
	if strings.ContainsAny(uid, "/+# \t\n") {
		return fmt.Errorf("%w: channel uid %q contains reserved characters", ErrInvalidLink, uid)
	}
	return nil
}

// ValidateItemName checks an item name.
func ValidateItemName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: item name is required", ErrInvalidLink)
	}
	if len(name) > maxItemNameLength {
		return fmt.Errorf("%w: item name exceeds %d characters", ErrInvalidLink, maxItemNameLength)
	}
	if !itemNameRegex.MatchString(name) {
		return fmt.Errorf("%w: item name %q must match %s", ErrInvalidLink, name, itemNamePattern)
	}
	return nil
}

// normalize canonicalises fields that are accepted in more than one
// spelling. Unknown kinds are left alone for ValidateLink to reject.
func (l *Link) normalize() {
	if kind, err := profile.ParseChannelKind(string(l.ChannelKind)); err == nil {
		l.ChannelKind = kind
	}
	l.ChannelUID = strings.TrimSpace(l.ChannelUID)
	l.ItemName = strings.TrimSpace(l.ItemName)
	l.ItemType = strings.TrimSpace(l.ItemType)
}

// GenerateID creates a new unique identifier for a link.
func GenerateID() string {
	return uuid.New().String()
}
