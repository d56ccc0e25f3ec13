// Package guazzo implements Guazzo's arithmetic coding algorithm over a 24 bit interval,
// as used by Cormack and Horspool's Dynamic Markov Compression.
//
// The coder keeps an interval [min, max) and narrows it once per bit.
// Whenever the interval becomes narrower than 256, its top byte is shifted out to the stream.
// The stream carries no header and no length: the value max-1 is reserved at every byte boundary,
// so that a stream ending with min = max-1 can be recognized by the decoder.
//
// Reference:
// M. Guazzo, A General Minimum-Redundancy Source-Coding Algorithm, IEEE Transactions on Information Theory 26 (1980).
package guazzo

import (
	"io"

	"github.com/fumin/dmc/ac"
	"github.com/pkg/errors"
)

const (
	// Top is the exclusive upper bound of the coding interval.
	Top uint32 = 1 << 24

	// MinRange is the narrowest interval allowed after renormalization.
	MinRange uint32 = 256

	// windowBytes is the number of bytes the decoder holds in its value register.
	windowBytes = 3

	mask uint32 = 0xffff00
)

// Split returns the point dividing [min, max) into the subinterval [min, mid) for a zero bit,
// and [mid, max) for a one bit, given the probability p0 of a zero bit.
// Both subintervals are non-empty whenever max-min >= 3.
//
// Encoder and Decoder must agree on mid exactly, so this is the only place it is computed.
// The arithmetic is done in single precision, and the explicit conversions prevent fused multiply-adds.
func Split(min, max uint32, p0 float64) uint32 {
	width := float32(float32(max-min-1) * float32(p0))
	mid := uint32(float32(float32(min) + width))
	if mid <= min {
		mid = min + 1
	}
	if mid >= max-1 {
		mid = max - 2
	}
	return mid
}

// An Encoder carries the state required to encode a stream of bits.
type Encoder struct {
	w       io.ByteWriter
	min     uint32
	max     uint32
	written int64
}

// NewEncoder returns an Encoder writing coded bytes to w.
func NewEncoder(w io.ByteWriter) *Encoder {
	return &Encoder{w: w, max: Top}
}

// Encode codes bit under the probability model.Prob0(), and then informs model of bit.
func (e *Encoder) Encode(model ac.Model, bit int) error {
	mid := Split(e.min, e.max, model.Prob0())
	model.Observe(bit)

	// narrow range
	if bit == 1 {
		e.min = mid
	} else {
		e.max = mid
	}

	for e.max-e.min < MinRange {
		if bit == 1 {
			e.max--
		}
		if err := e.w.WriteByte(byte(e.min >> 16)); err != nil {
			return errors.Wrap(err, "")
		}
		e.written++
		e.min = (e.min << 8) & mask
		e.max = (e.max << 8) & mask
		if e.min >= e.max {
			e.max = Top
		}
	}
	return nil
}

// EncodeByte codes the 8 bits of c, most significant first.
func (e *Encoder) EncodeByte(model ac.Model, c byte) error {
	// max-1 is reserved for the end of stream.
	e.max--
	for i := 7; i >= 0; i-- {
		if err := e.Encode(model, int(c>>uint(i))&1); err != nil {
			return err
		}
	}
	return nil
}

// Close terminates the stream by flushing the three bytes of max-1.
// The Encoder must not be used after Close.
func (e *Encoder) Close() error {
	e.min = e.max - 1
	for _, b := range []byte{byte(e.min >> 16), byte(e.min >> 8), byte(e.min)} {
		if err := e.w.WriteByte(b); err != nil {
			return errors.Wrap(err, "")
		}
		e.written++
	}
	return nil
}

// Written returns the number of coded bytes written so far.
func (e *Encoder) Written() int64 {
	return e.written
}

// Interval returns the current coding interval [min, max).
func (e *Encoder) Interval() (min, max uint32) {
	return e.min, e.max
}

// A Decoder carries the state required to decode a stream produced by an Encoder.
type Decoder struct {
	r       io.ByteReader
	min     uint32
	max     uint32
	val     uint32
	read    int64
	missing int
}

// NewDecoder returns a Decoder reading coded bytes from r.
// It reads the first three bytes of the stream immediately.
//
// Bytes missing at the end of r are taken to be 0xff.
// A Decoder that needs more than three such bytes fails with ac.ErrDecodeInsufficientBytes.
func NewDecoder(r io.ByteReader) (*Decoder, error) {
	d := &Decoder{r: r, max: Top}
	for i := 0; i < windowBytes; i++ {
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		d.val = d.val<<8 | b
	}
	return d, nil
}

func (d *Decoder) readByte() (uint32, error) {
	d.read++
	b, err := d.r.ReadByte()
	if err == io.EOF {
		d.missing++
		if d.missing > windowBytes {
			return 0, ac.ErrDecodeInsufficientBytes
		}
		return 0xff, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	return uint32(b), nil
}

// Done reports whether the stream has ended.
// It is only meaningful at byte boundaries, that is before a call to DecodeByte.
func (d *Decoder) Done() bool {
	return d.val == d.max-1
}

// Decode decodes one bit under the probability model.Prob0(), and then informs model of the bit.
func (d *Decoder) Decode(model ac.Model) (int, error) {
	mid := Split(d.min, d.max, model.Prob0())
	bit := 0
	if d.val >= mid {
		bit = 1
		d.min = mid
	} else {
		d.max = mid
	}
	model.Observe(bit)

	for d.max-d.min < MinRange {
		if bit == 1 {
			d.max--
		}
		b, err := d.readByte()
		if err != nil {
			return -1, err
		}
		d.val = (d.val<<8)&mask | b
		d.min = (d.min << 8) & mask
		d.max = (d.max << 8) & mask
		if d.min >= d.max {
			d.max = Top
		}
	}
	return bit, nil
}

// DecodeByte decodes 8 bits, most significant first.
func (d *Decoder) DecodeByte(model ac.Model) (byte, error) {
	d.max--
	var c byte
	for i := 0; i < 8; i++ {
		bit, err := d.Decode(model)
		if err != nil {
			return 0, err
		}
		c = c<<1 | byte(bit)
	}
	return c, nil
}

// Read returns the number of coded bytes consumed so far, including bytes missing at the end of the stream.
func (d *Decoder) Read() int64 {
	return d.read
}

// Interval returns the current coding interval [min, max).
func (d *Decoder) Interval() (min, max uint32) {
	return d.min, d.max
}
