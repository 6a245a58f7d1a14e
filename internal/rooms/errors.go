package rooms

import "errors"

var ErrInvalidParticipant = errors.New("invalid participant")
