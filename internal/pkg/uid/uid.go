// Package uid generates identifiers.
//
// Record identifiers are snowflake numbers so they sort by creation time and
// fit a BIGINT column. Correlation ids and token ids are UUID strings.
package uid

// NumberID generates unique numeric identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates unique string identifiers.
type StringID interface {
	Generate() string
}
