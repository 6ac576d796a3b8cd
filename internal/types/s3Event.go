package types

// S3Event is the raw object-created payload the notification source emits,
// embedded as a JSON string inside a Notification envelope.
type S3Event struct {
	Records []S3EventRecord `json:"Records"`
}

type S3EventRecord struct {
	EventSource string `json:"eventSource"`
	EventName   string `json:"eventName"`
	EventTime   string `json:"eventTime"`
	AwsRegion   string `json:"awsRegion"`
	S3          S3Data `json:"s3"`
}

type S3Data struct {
	Bucket S3BucketData `json:"bucket"`
	Object S3ObjectData `json:"object"`
}

type S3BucketData struct {
	Name string `json:"name"`
}

// Key may be percent-encoded, with spaces encoded as "+".
type S3ObjectData struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}
