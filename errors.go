package mdf4

import "github.com/scigolib/mdf4/internal/utils"

// Sentinel errors identifying the category of a parse, decode, or write
// failure. Use errors.Is against these.
var (
	ErrIO              = utils.ErrIO
	ErrTruncatedBlock  = utils.ErrTruncatedBlock
	ErrBlockID         = utils.ErrBlockID
	ErrBlockSize       = utils.ErrBlockSize
	ErrUnsupported     = utils.ErrUnsupported
	ErrChannelNotFound = utils.ErrChannelNotFound
	ErrGroupNotFound   = utils.ErrGroupNotFound
	ErrState           = utils.ErrState
	ErrConversion      = utils.ErrConversion
	ErrIndex           = utils.ErrIndex
)
