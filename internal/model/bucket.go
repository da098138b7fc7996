package model

import (
	"errors"
	"fmt"
	"strings"
)

// NumericBucket is the catch-all bucket for names starting with a digit.
const NumericBucket Bucket = "0-9"

// ErrInvalidBucket is returned when a string does not name one of the index buckets.
var ErrInvalidBucket = errors.New("invalid bucket: must be a single letter a-z or \"0-9\"")

// Bucket identifies one alphabetic (or numeric catch-all) partition of the
// site's A-Z index. It is substituted into the index URL template.
type Bucket string

// String returns the bucket identifier as used in URLs.
func (b Bucket) String() string {
	return string(b)
}

// Valid reports whether b is one of the 27 known buckets.
func (b Bucket) Valid() bool {
	return b.index() >= 0
}

// index returns the position of b in the canonical crawl order, or -1.
func (b Bucket) index() int {
	if b == NumericBucket {
		return 26
	}
	if len(b) == 1 && b[0] >= 'a' && b[0] <= 'z' {
		return int(b[0] - 'a')
	}
	return -1
}

// Buckets returns all 27 buckets in canonical crawl order: a through z,
// followed by "0-9". A new slice is returned on every call.
func Buckets() []Bucket {
	buckets := make([]Bucket, 0, 27)
	for c := 'a'; c <= 'z'; c++ {
		buckets = append(buckets, Bucket(string(c)))
	}
	return append(buckets, NumericBucket)
}

// ParseBucket converts user input into a Bucket.
// Input is trimmed and lowercased; "0-9" and "#" both name the numeric bucket.
func ParseBucket(s string) (Bucket, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "#" {
		return NumericBucket, nil
	}
	b := Bucket(s)
	if !b.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBucket, s)
	}
	return b, nil
}

// ParseBuckets parses a comma-separated bucket list.
// Duplicates are dropped and the result is returned in canonical crawl order,
// regardless of the order given. An empty string yields all buckets.
func ParseBuckets(list string) ([]Bucket, error) {
	if strings.TrimSpace(list) == "" {
		return Buckets(), nil
	}

	var selected [27]bool
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		b, err := ParseBucket(part)
		if err != nil {
			return nil, err
		}
		selected[b.index()] = true
	}

	result := make([]Bucket, 0, len(selected))
	for i, b := range Buckets() {
		if selected[i] {
			result = append(result, b)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: empty bucket list", ErrInvalidBucket)
	}
	return result, nil
}
