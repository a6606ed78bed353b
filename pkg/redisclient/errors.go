package redisclient

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"redisclient-go/pkg/hashdesc"
)

var (
	ErrEmptyAddress        = errors.New("redisclient: empty server address")
	ErrFailedToParseURL    = errors.New("redisclient: failed to parse connection URL")
	ErrConnectionFailed    = errors.New("redisclient: failed to establish connection")
	ErrSelectFailed        = errors.New("redisclient: failed to select database")
	ErrClientClosed        = errors.New("redisclient: client is closed")
	ErrHealthcheckFailed   = errors.New("redisclient: healthcheck failed")
	ErrInvalidArgument     = errors.New("redisclient: invalid argument")
	ErrNotFound            = errors.New("redisclient: not found")
	ErrUnexpectedReply     = errors.New("redisclient: unexpected reply")
	ErrPipelineUnsupported = errors.New("redisclient: command has no result in pipeline mode")
	ErrDBMismatch          = errors.New("redisclient: pipeline commands must target the same database")
	ErrPipelineClosed      = errors.New("redisclient: pipeline already executed or discarded")
	ErrPipelineExec        = errors.New("redisclient: pipeline execution failed")

	ErrUnknownField = hashdesc.ErrUnknownField
	ErrNoFields     = errors.New("redisclient: no field values to write")
)

// isReplyError reports whether err came back from the server as a reply
// (including the nil reply). Anything else is a transport or client error
// and leaves the connection in an unknown state.
func isReplyError(err error) bool {
	var rerr redis.Error
	return errors.As(err, &rerr)
}
