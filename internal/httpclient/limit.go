package httpclient

import (
	"errors"
	"fmt"
	"io"
)

// ErrBodyTooLarge marks a response body that exceeded the caller's cap.
var ErrBodyTooLarge = errors.New("httpclient: response body too large")

// ReadBody drains r up to limit bytes. One byte past the cap yields
// ErrBodyTooLarge; a limit of zero or less reads everything.
func ReadBody(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (limit %d bytes)", ErrBodyTooLarge, limit)
	}
	return data, nil
}
