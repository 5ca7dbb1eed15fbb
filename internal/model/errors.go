package model

import "fmt"

var _ error = KeyNotFoundError{}

type KeyNotFoundError struct {
	Key string
}

func (err KeyNotFoundError) Error() string {
	return fmt.Sprintf("document %s not found", err.Key)
}

var _ error = StreamClosedError{}

type StreamClosedError struct {
	Key string
}

func (err StreamClosedError) Error() string {
	return fmt.Sprintf("live feed for %s closed by backend", err.Key)
}
