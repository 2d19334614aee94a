package index

import "github.com/scigolib/mdf4/internal/utils"

// Sentinel errors returned by Index query and load operations.
var (
	ErrGroupNotFound   = utils.ErrGroupNotFound
	ErrChannelNotFound = utils.ErrChannelNotFound
	ErrIndex           = utils.ErrIndex
)
