// Package mdf4 reads and writes ASAM MDF 4.1x measurement data files: the
// de-facto standard container for automotive and industrial time-series
// recordings, where one file holds many channel groups, each a table of
// records sampled against a master (time) channel.
//
// Open reads a file; Writer builds one from scratch through an explicit
// state machine (add a channel group, add its channels, open a data
// block, write records, close the block, finalize). Package index builds
// a compact, serializable summary of a file sufficient to decode any
// single channel's samples from byte ranges alone, enabling partial or
// remote (HTTP range) reads without re-parsing the container.
package mdf4
