package record

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := Record{Key: "k1", Value: "v1", Tag: Put, Timestamp: 1234}

	frame, err := Encode(r)
	require.NoError(t, err)

	got, err := Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	require.Equal(t, r, got)
}

func TestEncodeDecodeTombstone(t *testing.T) {
	r := Record{Key: "k1", Tag: Tombstone}

	frame, err := Encode(r)
	require.NoError(t, err)

	got, err := Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	require.Equal(t, Tombstone, got.Tag)
	require.Empty(t, got.Value)
}

func TestEncodeDecodePreservesUTF8(t *testing.T) {
	r := Record{Key: "日本語", Value: "héllo 🎉", Tag: Put}

	frame, err := Encode(r)
	require.NoError(t, err)

	got, err := Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	require.Equal(t, r.Key, got.Key)
	require.Equal(t, r.Value, got.Value)
}

func TestDecodeEmptyValueDistinctFromTombstone(t *testing.T) {
	put, err := Encode(Record{Key: "k", Value: "", Tag: Put})
	require.NoError(t, err)

	tomb, err := Encode(Record{Key: "k", Value: "", Tag: Tombstone})
	require.NoError(t, err)

	gotPut, err := Decode(bytes.NewReader(put))
	require.NoError(t, err)
	require.Equal(t, Put, gotPut.Tag)

	gotTomb, err := Decode(bytes.NewReader(tomb))
	require.NoError(t, err)
	require.Equal(t, Tombstone, gotTomb.Tag)
}

func TestDecodeTruncatedFrameFailsCleanly(t *testing.T) {
	frame, err := Encode(Record{Key: "k1", Value: "v1", Tag: Put})
	require.NoError(t, err)

	truncated := frame[:len(frame)-3]
	_, err = Decode(bytes.NewReader(truncated))
	require.ErrorIs(t, err, ErrShortRead)
}

func TestDecodeTruncatedLengthPrefixFailsCleanly(t *testing.T) {
	frame, err := Encode(Record{Key: "k1", Value: "v1", Tag: Put})
	require.NoError(t, err)

	_, err = Decode(bytes.NewReader(frame[:2]))
	require.ErrorIs(t, err, ErrShortRead)
}

func TestDecodeCorruptedPayloadChecksumMismatch(t *testing.T) {
	frame, err := Encode(Record{Key: "k1", Value: "v1", Tag: Put})
	require.NoError(t, err)

	corrupted := append([]byte(nil), frame...)
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err = Decode(bytes.NewReader(corrupted))
	require.Error(t, err)
}

func TestDecodeAtDoesNotDisturbOtherOffsets(t *testing.T) {
	f1, err := Encode(Record{Key: "a", Value: "1", Tag: Put})
	require.NoError(t, err)
	f2, err := Encode(Record{Key: "b", Value: "2", Tag: Put})
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.Write(f1)
	off2 := int64(buf.Len())
	buf.Write(f2)

	ra := bytes.NewReader(buf.Bytes())

	r1, n1, err := DecodeAt(ra, 0)
	require.NoError(t, err)
	require.Equal(t, "a", r1.Key)
	require.Equal(t, len(f1), n1)

	r2, _, err := DecodeAt(ra, off2)
	require.NoError(t, err)
	require.Equal(t, "b", r2.Key)
}
