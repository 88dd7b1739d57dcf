package geoip

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var ErrLookupFailed = errors.New("geolocation lookup failed")

type ResponseError struct {
	Status string
	Body   []byte
	Code   int
}

// Error converts the response error to string, but does not print body!
func (e *ResponseError) Error() string {
	return fmt.Sprintf("code: %d status: %s", e.Code, e.Status)
}

// errorFromResponse provides properly typed errors for further handling
func errorFromResponse(err error, resp *req.Response) error {
	if err != nil {
		return err
	}

	if resp.IsSuccessState() {
		return nil
	}

	return &ResponseError{
		Code:   resp.StatusCode,
		Status: resp.Status,
		Body:   resp.Bytes(),
	}
}
