package types

// ImageRecord is the persisted entity for one accepted image. FileName is
// the decoded object key and the table's partition key; the write is an
// unconditional upsert, so redeliveries are harmless.
type ImageRecord struct {
	FileName string `json:"fileName" dynamodbav:"FileName"`
}
