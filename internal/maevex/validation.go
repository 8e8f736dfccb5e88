package maevex

import (
	"fmt"
	"unicode"
)

const (
	// MaxFriendlyNameLength is the longest friendly name appliances accept
	MaxFriendlyNameLength = 64

	// MaxChannelBitrate is the highest per-channel bitrate in kbit/s
	MaxChannelBitrate = 80000

	// MaxDownloadRate is the highest allowed download rate cap in bytes/s
	MaxDownloadRate = 32 << 20
)

// ValidateFriendlyName validates an appliance friendly name.
// Names must be non-empty, at most 64 characters, and printable.
func ValidateFriendlyName(name string) error {
	if name == "" {
		return NewValidationError("friendly name cannot be empty")
	}
	if len(name) > MaxFriendlyNameLength {
		return NewValidationError(fmt.Sprintf("friendly name too long (max %d chars): %d chars", MaxFriendlyNameLength, len(name)))
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return NewValidationError(fmt.Sprintf("friendly name contains non-printable character %q", r))
		}
	}
	return nil
}

// ValidateChannel validates a single channel configuration
func ValidateChannel(ch *ChannelSettings) error {
	if ch.ID < 0 {
		return NewValidationError(fmt.Sprintf("channel id must be non-negative, got %d", ch.ID))
	}
	if ch.Bitrate < 0 || ch.Bitrate > MaxChannelBitrate {
		return NewValidationError(fmt.Sprintf("channel %d bitrate must be 0-%d kbit/s, got %d", ch.ID, MaxChannelBitrate, ch.Bitrate))
	}
	return nil
}

// ValidateSettings validates a complete settings record.
// Returns a slice of validation errors (empty if valid).
func ValidateSettings(s *Settings) []error {
	var errs []error

	if err := ValidateFriendlyName(s.FriendlyName); err != nil {
		errs = append(errs, err)
	}

	for i := range s.Channels {
		if err := ValidateChannel(&s.Channels[i]); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// ValidateRateLimit validates a download rate cap in bytes per second
func ValidateRateLimit(rate int64) error {
	if rate <= 0 {
		return NewValidationError(fmt.Sprintf("rate limit must be positive, got %d", rate))
	}
	if rate > MaxDownloadRate {
		return NewValidationError(fmt.Sprintf("rate limit too high (max %d bytes/s): %d", int64(MaxDownloadRate), rate))
	}
	return nil
}
