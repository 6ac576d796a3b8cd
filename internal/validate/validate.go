// Package validate decodes object keys and classifies them by file suffix.
// Validation is modelled as a tagged outcome so callers decide the
// upsert vs. no-op path instead of branching on panics or bare errors.
package validate

import (
	"fmt"
	"net/url"
	"strings"

	queueErrors "github.com/imageops/eda-pipeline/internal/queue/errors"
)

// AcceptedTypes is the suffix allow-list enforced inside the ingest
// consumer, independently of the topic-level filter.
var AcceptedTypes = map[string]bool{
	"jpeg": true,
	"png":  true,
}

type Status int

const (
	Accepted Status = iota
	Rejected
)

// Outcome is the result of checking one object key.
type Outcome struct {
	// FileName is the decoded key (percent-decoded, "+" mapped to space).
	FileName string
	// ImageType is the lowercased file suffix, empty when none was found.
	ImageType string
	Status    Status
	// Reason is the rejection cause; nil when the key was accepted.
	Reason error
}

// CheckKey decodes a raw object key and classifies it. Keys with no
// trailing-dot suffix or a suffix outside AcceptedTypes are rejected.
func CheckKey(rawKey string) Outcome {
	fileName, err := url.QueryUnescape(rawKey)
	if err != nil {
		return Outcome{
			FileName: rawKey,
			Status:   Rejected,
			Reason:   fmt.Errorf("%w: bad key encoding %q: %v", queueErrors.ErrUnknownImageType, rawKey, err),
		}
	}

	suffix := suffixOf(fileName)
	if suffix == "" {
		return Outcome{
			FileName: fileName,
			Status:   Rejected,
			Reason:   fmt.Errorf("%w: key %q has no file suffix", queueErrors.ErrUnknownImageType, fileName),
		}
	}

	imageType := strings.ToLower(suffix)
	if !AcceptedTypes[imageType] {
		return Outcome{
			FileName:  fileName,
			ImageType: imageType,
			Status:    Rejected,
			Reason:    fmt.Errorf("%w: %s", queueErrors.ErrUnsupportedImageType, imageType),
		}
	}

	return Outcome{FileName: fileName, ImageType: imageType, Status: Accepted}
}

// AttributeFor derives the imageType message attribute for a raw key at
// publish time, e.g. ".jpeg". It returns "" when the key has no suffix,
// in which case the attribute must be omitted from the notification.
func AttributeFor(rawKey string) string {
	fileName, err := url.QueryUnescape(rawKey)
	if err != nil {
		fileName = rawKey
	}
	suffix := suffixOf(fileName)
	if suffix == "" {
		return ""
	}
	return "." + strings.ToLower(suffix)
}

// suffixOf extracts the part after the last dot. A trailing dot or a name
// with no dot yields "".
func suffixOf(name string) string {
	i := strings.LastIndex(name, ".")
	if i == -1 || i == len(name)-1 {
		return ""
	}
	return name[i+1:]
}
