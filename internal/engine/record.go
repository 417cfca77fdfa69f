package engine

import (
	"encoding/json"
	"errors"
	"io"
)

// CommandType tags a record as a write or a tombstone.
type CommandType uint8

const (
	// CommandSet records a key/value write.
	CommandSet CommandType = 0
	// CommandRemove records a tombstone for a key.
	CommandRemove CommandType = 1
)

// Command is the on-disk and on-wire shape of a single log record: a
// self-delimiting JSON object with three fields. Value is empty for a
// Remove record.
type Command struct {
	CommandType CommandType `json:"command_type"`
	Key         string      `json:"key"`
	Value       string      `json:"value"`
}

// encodeCommand serializes a command to the bytes that get appended to
// a segment. JSON objects are self-delimiting on their own (no
// separator is written between records in the stream).
func encodeCommand(cmd Command) ([]byte, error) {
	b, err := json.Marshal(cmd)
	if err != nil {
		return nil, wrapCodec("encode command", err)
	}
	return b, nil
}

// decodeCommand decodes exactly one command from b, which must contain
// precisely one JSON object (the caller already knows its length from
// a CommandPos).
func decodeCommand(b []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(b, &cmd); err != nil {
		return Command{}, wrapCodec("decode command", err)
	}
	return cmd, nil
}

// commandStreamReplay streams commands out of r from the start,
// invoking fn with each decoded command and the absolute byte range
// [start, end) it occupied in the stream. It stops cleanly at EOF and
// treats a trailing partial object (a decode failure with no further
// bytes available) as "not written" per §7's crash-recovery rule:
// replay stops at the last successfully decoded record.
func commandStreamReplay(r io.Reader, fn func(cmd Command, start, end uint64) error) error {
	dec := json.NewDecoder(r)

	var start int64
	for {
		var cmd Command
		err := dec.Decode(&cmd)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// A trailing partial record (the process crashed mid-append)
			// decodes as an unexpected EOF; treat it as "not written" and
			// stop replay here rather than failing the whole open. Any
			// other decode error is a real corruption earlier in the file.
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return wrapCodec("replay segment", err)
		}

		end := dec.InputOffset()
		if ferr := fn(cmd, uint64(start), uint64(end)); ferr != nil {
			return ferr
		}
		start = end
	}
}
