package dialogue

import "errors"

var errEmptyReply = errors.New("generator returned an empty reply")
