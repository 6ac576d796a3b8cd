package errors

import "errors"

// Failure kinds surfaced by the pipeline. Any of them fails the whole
// invocation; the owning queue's redrive budget decides what happens next.
var (
	ErrMalformedEnvelope    = errors.New("malformed notification envelope")
	ErrUnknownImageType     = errors.New("could not determine the image type")
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrStoreWrite           = errors.New("image record write failed")
	ErrNotificationDelivery = errors.New("notification delivery failed")
)
