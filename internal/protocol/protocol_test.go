package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	cmd := Command{Action: ActionSet, Key: "k", Value: "v"}

	require.NoError(t, WriteCommand(&buf, cmd))

	got, err := ReadCommand(&buf)
	require.NoError(t, err)
	require.Equal(t, cmd, got)
}

func TestResponseOkWithValueRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	value := "hello"
	resp := OkResponse(&value)

	require.NoError(t, WriteResponse(&buf, resp))

	got, err := ReadResponse(&buf)
	require.NoError(t, err)
	require.False(t, got.IsErr())
	require.NotNil(t, got.Ok)
	require.Equal(t, "hello", *got.Ok)
}

func TestResponseBareOkRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	resp := OkResponse(nil)

	require.NoError(t, WriteResponse(&buf, resp))

	got, err := ReadResponse(&buf)
	require.NoError(t, err)
	require.False(t, got.IsErr())
	require.Nil(t, got.Ok)
}

func TestResponseErrRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	resp := ErrResponse("Key not found")

	require.NoError(t, WriteResponse(&buf, resp))

	got, err := ReadResponse(&buf)
	require.NoError(t, err)
	require.True(t, got.IsErr())
	require.Equal(t, "Key not found", *got.Err)
}

func TestResponseWireShapeOmitsOtherField(t *testing.T) {
	okBytes, err := OkResponse(nil).MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"Ok":null}`, string(okBytes))

	errBytes, err := ErrResponse("boom").MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"Err":"boom"}`, string(errBytes))
}

func TestReadCommandTruncatedLengthPrefixFails(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x01, 0x00})
	_, err := ReadCommand(buf)
	require.Error(t, err)
}

func TestReadCommandTruncatedBodyFails(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCommand(&buf, Command{Action: ActionGet, Key: "k"}))

	full := buf.Bytes()
	truncated := full[:len(full)-2]

	_, err := ReadCommand(bytes.NewReader(truncated))
	require.Error(t, err)
}

func TestMultipleFramesOnSameStreamAreIndependent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCommand(&buf, Command{Action: ActionSet, Key: "a", Value: "1"}))
	require.NoError(t, WriteCommand(&buf, Command{Action: ActionGet, Key: "a"}))

	first, err := ReadCommand(&buf)
	require.NoError(t, err)
	require.Equal(t, Command{Action: ActionSet, Key: "a", Value: "1"}, first)

	second, err := ReadCommand(&buf)
	require.NoError(t, err)
	require.Equal(t, Command{Action: ActionGet, Key: "a"}, second)
}
