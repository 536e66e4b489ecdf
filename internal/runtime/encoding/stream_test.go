package encoding

import (
	"bytes"
	"errors"
	"io"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int32
	Name string
}

func (p *point) EncodingTag() string { return "test.point" }

func (p *point) EncodeTo(out *DataOutputStream) error {
	if err := out.WriteInt32(p.X); err != nil {
		return err
	}
	if err := out.WriteInt32(p.Y); err != nil {
		return err
	}
	return out.WriteString(p.Name)
}

func decodePoint(in *DataInputStream) (Encodable, error) {
	var p point
	var err error
	if p.X, err = in.ReadInt32(); err != nil {
		return nil, err
	}
	if p.Y, err = in.ReadInt32(); err != nil {
		return nil, err
	}
	if p.Name, err = in.ReadString(); err != nil {
		return nil, err
	}
	return &p, nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func init() {
	Register("test.point", decodePoint)
}

func TestPrimitives(t *testing.T) {
	var buf bytes.Buffer
	out := NewDataOutputStream(&buf)
	require.NoError(t, out.WriteBool(true))
	require.NoError(t, out.WriteInt32(-7))
	require.NoError(t, out.WriteInt64(1<<40))
	require.NoError(t, out.WriteString("héllo"))
	require.NoError(t, out.WriteStrings([]string{"a", "", "c"}))
	require.NoError(t, out.WriteBytes(nil))

	assert.Equal(t, []byte{1, 0xff, 0xff, 0xff, 0xf9}, buf.Bytes()[:5])

	in := NewDataInputStream(&buf)
	b, err := in.ReadBool()
	require.NoError(t, err)
	assert.True(t, b)
	i32, err := in.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i32)
	i64, err := in.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), i64)
	s, err := in.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)
	strs, err := in.ReadStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "c"}, strs)
	p, err := in.ReadBytes()
	require.NoError(t, err)
	assert.Empty(t, p)

	_, err = in.ReadByte()
	assert.Error(t, err)
}

func TestEncodable(t *testing.T) {
	var buf bytes.Buffer
	out := NewDataOutputStream(&buf)
	require.NoError(t, out.WriteEncodable(&point{X: 1, Y: 2, Name: "origin"}))
	require.NoError(t, out.WriteEncodable(nil))
	require.NoError(t, out.WriteEncodables([]Encodable{&point{X: 3}, nil}))

	in := NewDataInputStream(&buf)
	got, err := ReadEncodableAs[*point](in)
	require.NoError(t, err)
	assert.Equal(t, &point{X: 1, Y: 2, Name: "origin"}, got)

	empty, err := in.ReadEncodable()
	require.NoError(t, err)
	assert.Nil(t, empty)

	list, err := in.ReadEncodables()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int32(3), list[0].(*point).X)
	assert.Nil(t, list[1])

	assert.Contains(t, Tags(), "test.point")
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{name: "unknown tag", input: append([]byte{1, 0, 0, 0, 3}, "nop"...), wantErr: ErrUnknownTag},
		{name: "negative length", input: []byte{1, 0xff, 0xff, 0xff, 0xff}, wantErr: ErrTooLong},
		{name: "oversized length", input: []byte{1, 0x7f, 0, 0, 0}, wantErr: ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDataInputStream(bytes.NewReader(tt.input)).ReadEncodable()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := NewDataInputStream(bytes.NewReader([]byte{2})).ReadBool()
	assert.Error(t, err)
}

func TestReadTruncatedLengths(t *testing.T) {
	bigHeader := []byte{0x00, 0xff, 0xff, 0xff}
	tests := []struct {
		name string
		read func(in *DataInputStream) error
	}{
		{name: "bytes", read: func(in *DataInputStream) error { _, err := in.ReadBytes(); return err }},
		{name: "strings", read: func(in *DataInputStream) error { _, err := in.ReadStrings(); return err }},
		{name: "encodables", read: func(in *DataInputStream) error { _, err := in.ReadEncodables(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := append(append([]byte(nil), bigHeader...), 1, 2, 3)
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			err := tt.read(NewDataInputStream(bytes.NewReader(input)))
			runtime.ReadMemStats(&after)

			require.Error(t, err)
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
			assert.NotErrorIs(t, err, ErrTooLong)
		})
	}

	in := NewDataInputStream(bytes.NewReader([]byte{0, 0, 0, 5, 'a', 'b'}))
	_, err := in.ReadBytes()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	empty, err := NewDataInputStream(bytes.NewReader([]byte{0, 0, 0, 0})).ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{}, empty)
}

func TestWriteErrors(t *testing.T) {
	out := NewDataOutputStream(failingWriter{})
	assert.ErrorContains(t, out.WriteInt32(1), "disk full")
	assert.ErrorIs(t, NewDataOutputStream(&bytes.Buffer{}).WriteBytes(make([]byte, MaxLength+1)), ErrTooLong)
}

func TestRegister_Duplicate(t *testing.T) {
	assert.Panics(t, func() { Register("test.point", decodePoint) })
	assert.Panics(t, func() { Register("test.nil", nil) })
}
