package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const MaxBodyBytes = 1 << 20

var ErrTooLarge = errors.New("payload too large")

// Decode strictly unmarshals one JSON value from data into dst. Unknown
// fields and trailing data are rejected.
func Decode(data []byte, dst any) error {
	if len(data) > MaxBodyBytes {
		return ErrTooLarge
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value")
	}

	return nil
}
