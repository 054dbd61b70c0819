package errors

import (
	"errors"
	"fmt"
)

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	UpstreamStatus  int    `json:"upstream_status,omitempty"`
	UpstreamCode    string `json:"upstream_code,omitempty"`
	UpstreamMessage string `json:"upstream_message,omitempty"`
	UpstreamPath    string `json:"upstream_path,omitempty"`
}

// upstreamFailure is implemented by transport errors that carry the remote response.
type upstreamFailure interface {
	error
	UpstreamStatus() int
	UpstreamCode() string
	UpstreamMessage() string
	UpstreamPath() string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var up upstreamFailure
	if errors.As(err, &up) {
		d.UpstreamStatus = up.UpstreamStatus()
		d.UpstreamCode = up.UpstreamCode()
		d.UpstreamMessage = up.UpstreamMessage()
		d.UpstreamPath = up.UpstreamPath()
	}

	return d
}
