package bot

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

var errUsage = errors.New("usage")

// ParseTargetArgs splits /sub and /unsub arguments into an optional target
// chat and a feed URL. Accepted forms: "<url>" and "<target> <url>".
func ParseTargetArgs(args []string) (target, feedURL string, err error) {
	switch len(args) {
	case 1:
		return "", args[0], nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", errUsage
	}
}

// ParseListArgs returns the optional target chat of /list.
func ParseListArgs(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		return args[0], nil
	default:
		return "", errUsage
	}
}

// ValidateFeedURL checks that raw is an absolute http or https URL.
func ValidateFeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

// isSelfTarget reports whether target names the chat the command came from.
func isSelfTarget(target string, chatID int64) bool {
	if target == "" {
		return true
	}
	id, err := strconv.ParseInt(strings.TrimSpace(target), 10, 64)
	return err == nil && id == chatID
}

// ParseCallbackData splits "action:id" callback payloads.
func ParseCallbackData(data string) (string, int64, error) {
	action, idStr, ok := strings.Cut(data, ":")
	if !ok {
		return "", 0, errors.New("malformed callback data")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "", 0, err
	}
	return action, id, nil
}
