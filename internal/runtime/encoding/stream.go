// Package encoding provides the binary stream used to ship mementos: big-endian primitives plus
// self-describing Encodable values looked up by tag.
package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MaxLength bounds every length prefix read from a stream.
const MaxLength = 16 << 20

// Lengths read from a stream only size the first allocation up to these; the rest grows as data
// actually arrives.
const (
	initialBytes    = 512
	initialElements = 64
)

var (
	// ErrUnknownTag is returned when a stream names an Encodable nobody registered.
	ErrUnknownTag = errors.New("unknown encodable tag")

	// ErrTooLong is returned when a length prefix exceeds MaxLength.
	ErrTooLong = errors.New("encoded length exceeds limit")
)

// Encodable is a value that writes itself to a stream and is read back by the Decoder registered
// under its tag.
type Encodable interface {
	EncodingTag() string
	EncodeTo(out *DataOutputStream) error
}

// Decoder reads the body of an Encodable whose tag has already been consumed.
type Decoder func(in *DataInputStream) (Encodable, error)

var registry = struct {
	sync.RWMutex
	decoders map[string]Decoder
}{decoders: make(map[string]Decoder)}

// Register makes a decoder available by tag. It panics if called twice with the same tag or with
// a nil decoder.
func Register(tag string, dec Decoder) {
	registry.Lock()
	defer registry.Unlock()
	if dec == nil {
		panic("encoding: Register decoder is nil")
	}
	if _, dup := registry.decoders[tag]; dup {
		panic("encoding: Register called twice for tag " + tag)
	}
	registry.decoders[tag] = dec
}

// Tags lists the registered tags in sorted order.
func Tags() []string {
	registry.RLock()
	defer registry.RUnlock()
	tags := make([]string, 0, len(registry.decoders))
	for tag := range registry.decoders {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func decoder(tag string) (Decoder, bool) {
	registry.RLock()
	defer registry.RUnlock()
	dec, ok := registry.decoders[tag]
	return dec, ok
}

// DataOutputStream writes primitives in network byte order.
type DataOutputStream struct {
	w   io.Writer
	buf [8]byte
}

func NewDataOutputStream(w io.Writer) *DataOutputStream {
	return &DataOutputStream{w: w}
}

func (o *DataOutputStream) write(p []byte) error {
	if _, err := o.w.Write(p); err != nil {
		return fmt.Errorf("failed to write stream: %w", err)
	}
	return nil
}

func (o *DataOutputStream) WriteByte(b byte) error {
	o.buf[0] = b
	return o.write(o.buf[:1])
}

func (o *DataOutputStream) WriteBool(v bool) error {
	if v {
		return o.WriteByte(1)
	}
	return o.WriteByte(0)
}

func (o *DataOutputStream) WriteInt32(v int32) error {
	binary.BigEndian.PutUint32(o.buf[:4], uint32(v))
	return o.write(o.buf[:4])
}

func (o *DataOutputStream) WriteInt64(v int64) error {
	binary.BigEndian.PutUint64(o.buf[:8], uint64(v))
	return o.write(o.buf[:8])
}

// WriteBytes writes a length-prefixed byte slice.
func (o *DataOutputStream) WriteBytes(p []byte) error {
	if len(p) > MaxLength {
		return fmt.Errorf("%w: %d bytes", ErrTooLong, len(p))
	}
	if err := o.WriteInt32(int32(len(p))); err != nil {
		return err
	}
	return o.write(p)
}

func (o *DataOutputStream) WriteString(s string) error {
	return o.WriteBytes([]byte(s))
}

func (o *DataOutputStream) WriteStrings(values []string) error {
	if err := o.WriteInt32(int32(len(values))); err != nil {
		return err
	}
	for _, s := range values {
		if err := o.WriteString(s); err != nil {
			return err
		}
	}
	return nil
}

// WriteEncodable writes a presence flag, then the tag and body of e. A nil e writes only the flag.
func (o *DataOutputStream) WriteEncodable(e Encodable) error {
	if e == nil {
		return o.WriteBool(false)
	}
	if err := o.WriteBool(true); err != nil {
		return err
	}
	if err := o.WriteString(e.EncodingTag()); err != nil {
		return err
	}
	return e.EncodeTo(o)
}

func (o *DataOutputStream) WriteEncodables(values []Encodable) error {
	if err := o.WriteInt32(int32(len(values))); err != nil {
		return err
	}
	for _, e := range values {
		if err := o.WriteEncodable(e); err != nil {
			return err
		}
	}
	return nil
}

// DataInputStream reads what DataOutputStream wrote.
type DataInputStream struct {
	r   io.Reader
	buf [8]byte
}

func NewDataInputStream(r io.Reader) *DataInputStream {
	return &DataInputStream{r: r}
}

func (i *DataInputStream) read(n int) ([]byte, error) {
	if _, err := io.ReadFull(i.r, i.buf[:n]); err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	return i.buf[:n], nil
}

func (i *DataInputStream) ReadByte() (byte, error) {
	b, err := i.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (i *DataInputStream) ReadBool() (bool, error) {
	b, err := i.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean byte %#x", b)
}

func (i *DataInputStream) ReadInt32() (int32, error) {
	b, err := i.read(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (i *DataInputStream) ReadInt64() (int64, error) {
	b, err := i.read(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (i *DataInputStream) readLength() (int, error) {
	n, err := i.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 || n > MaxLength {
		return 0, fmt.Errorf("%w: %d", ErrTooLong, n)
	}
	return int(n), nil
}

func (i *DataInputStream) ReadBytes() ([]byte, error) {
	n, err := i.readLength()
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, min(n, initialBytes)))
	copied, err := io.CopyN(buf, i.r, int64(n))
	if err != nil {
		if errors.Is(err, io.EOF) && copied > 0 {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	return buf.Bytes(), nil
}

func (i *DataInputStream) ReadString() (string, error) {
	p, err := i.ReadBytes()
	return string(p), err
}

func (i *DataInputStream) ReadStrings() ([]string, error) {
	n, err := i.readLength()
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, min(n, initialElements))
	for j := 0; j < n; j++ {
		s, err := i.ReadString()
		if err != nil {
			return nil, err
		}
		values = append(values, s)
	}
	return values, nil
}

// ReadEncodable reads a value written by WriteEncodable. A nil value reads back as nil.
func (i *DataInputStream) ReadEncodable() (Encodable, error) {
	present, err := i.ReadBool()
	if err != nil || !present {
		return nil, err
	}
	tag, err := i.ReadString()
	if err != nil {
		return nil, err
	}
	dec, ok := decoder(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	e, err := dec(i)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", tag, err)
	}
	return e, nil
}

func (i *DataInputStream) ReadEncodables() ([]Encodable, error) {
	n, err := i.readLength()
	if err != nil {
		return nil, err
	}
	values := make([]Encodable, 0, min(n, initialElements))
	for j := 0; j < n; j++ {
		e, err := i.ReadEncodable()
		if err != nil {
			return nil, err
		}
		values = append(values, e)
	}
	return values, nil
}

// ReadEncodableAs reads an Encodable and checks that it is a T. A nil value yields the zero T.
func ReadEncodableAs[T Encodable](in *DataInputStream) (T, error) {
	var zero T
	e, err := in.ReadEncodable()
	if err != nil || e == nil {
		return zero, err
	}
	v, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("expected %T, read %T", zero, e)
	}
	return v, nil
}
