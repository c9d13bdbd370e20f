package service

import (
	"errors"

	"github.com/edunexus/edunexus-api/internal/shard"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

// shardWrap preserves typed errors and classifies the rest: connectivity
// failures surface as shard-unavailable, everything else as internal.
func shardWrap(err error, message string) error {
	if isAppError(err) {
		return err
	}
	if shard.Unavailable(err) {
		return appErrors.Wrap(err, appErrors.ErrShardUnavailable.Code, appErrors.ErrShardUnavailable.Status, appErrors.ErrShardUnavailable.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func isAppError(err error) bool {
	var appErr *appErrors.Error
	return errors.As(err, &appErr)
}
