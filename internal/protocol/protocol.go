// Package protocol implements the length-prefixed JSON-over-TCP framing
// the client and server collaborators exchange: one request, one response,
// per connection, each as `u32 LE length || UTF-8 JSON` (spec.md §4.5/§6).
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Action names the operation a Command carries out.
type Action string

const (
	ActionGet Action = "GET"
	ActionSet Action = "SET"
	ActionRM  Action = "RM"
)

// Command is the request a client sends: {"action":...,"key":...,"value":...}.
type Command struct {
	Action Action `json:"action"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// Response is the reply a server sends: {"Ok":null|"…"} or {"Err":"…"}.
// At most one of the two fields is non-nil: Err for a failure, Ok for a
// returned value, neither for a bare ok. This mirrors the tagged-union
// shape of the original Rust enum it's JSON-compatible with.
type Response struct {
	Ok    *string `json:"Ok,omitempty"`
	Err   *string `json:"Err,omitempty"`
	isErr bool
}

// OkResponse builds a successful response. value is nil for a bare ok
// (e.g. a successful set/rm); non-nil for a get's returned value.
func OkResponse(value *string) Response {
	return Response{Ok: value}
}

// ErrResponse builds a failed response carrying msg.
func ErrResponse(msg string) Response {
	return Response{Err: &msg, isErr: true}
}

// IsErr reports whether r represents an error response.
func (r Response) IsErr() bool {
	return r.isErr || r.Err != nil
}

// MarshalJSON emits exactly one of {"Ok":...} or {"Err":"..."}, matching
// spec.md §6's wire shape (never both fields, never an empty object).
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(struct {
			Err string `json:"Err"`
		}{Err: *r.Err})
	}

	return json.Marshal(struct {
		Ok *string `json:"Ok"`
	}{Ok: r.Ok})
}

// UnmarshalJSON accepts either wire shape and reconstructs isErr.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Ok  *string `json:"Ok"`
		Err *string `json:"Err"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Ok = raw.Ok
	r.Err = raw.Err
	r.isErr = raw.Err != nil
	return nil
}

const maxFrameLength = 64 * 1024 * 1024

// WriteCommand frames and writes cmd to w: u32 LE length, then JSON bytes.
func WriteCommand(w io.Writer, cmd Command) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("protocol: encode command: %w", err)
	}
	return writeFrame(w, body)
}

// ReadCommand reads one framed Command from r.
func ReadCommand(r io.Reader) (Command, error) {
	body, err := readFrame(r)
	if err != nil {
		return Command{}, err
	}

	var cmd Command
	if err := json.Unmarshal(body, &cmd); err != nil {
		return Command{}, fmt.Errorf("protocol: decode command: %w", err)
	}
	return cmd, nil
}

// WriteResponse frames and writes resp to w.
func WriteResponse(w io.Writer, resp Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("protocol: encode response: %w", err)
	}
	return writeFrame(w, body)
}

// ReadResponse reads one framed Response from r.
func ReadResponse(r io.Reader) (Response, error) {
	body, err := readFrame(r)
	if err != nil {
		return Response{}, err
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return Response{}, fmt.Errorf("protocol: decode response: %w", err)
	}
	return resp, nil
}

func writeFrame(w io.Writer, body []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))

	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("protocol: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("protocol: write frame body: %w", err)
	}
	return nil
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("protocol: read length prefix: %w", err)
	}

	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxFrameLength {
		return nil, fmt.Errorf("protocol: frame length %d exceeds maximum %d", n, maxFrameLength)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("protocol: read frame body: %w", err)
	}
	return body, nil
}
