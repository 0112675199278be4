package problem

import (
	"strings"

	"github.com/pkg/errors"
)

// NoSubmission is the option label for an empty status.
const NoSubmission = "no submission"

// StatusOptions are the selectable statuses, as lowercase option labels.
var StatusOptions = []string{NoSubmission, "tl", "re", "wa", "ac", "ni"}

var ErrInvalidStatus = errors.New("invalid status")

// NormalizeStatus converts an option label or code into the stored code:
// "" for no submission, upper case otherwise.
func NormalizeStatus(s string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == NoSubmission {
		return "", nil
	}
	for _, opt := range StatusOptions {
		if v == opt {
			return strings.ToUpper(v), nil
		}
	}
	return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
}

// StatusOption converts a stored code back to its option label.
func StatusOption(code string) string {
	v := strings.TrimSpace(code)
	if v == "" {
		return NoSubmission
	}
	return strings.ToLower(v)
}

// StatusClass returns the display class for a status code.
func StatusClass(code string) string {
	switch code {
	case "AC":
		return "status-solved"
	case "":
		return "status-nosub"
	default:
		return "status-unsolved"
	}
}
