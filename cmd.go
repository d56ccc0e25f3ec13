package dmc

import (
	"bufio"
	"io"

	"github.com/docker/go-units"
	"github.com/fumin/dmc/ac/guazzo"
	"github.com/pkg/errors"
)

// Stats summarizes a run of Compress or Decompress.
type Stats struct {
	BytesIn  int64
	BytesOut int64
	Resets   int
}

// Ratio returns BytesOut / BytesIn.
func (st Stats) Ratio() float64 {
	if st.BytesIn == 0 {
		return 0
	}
	return float64(st.BytesOut) / float64(st.BytesIn)
}

// Compress compresses src into dst.
func Compress(dst io.Writer, src io.Reader, cfg Config) (Stats, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger
	var st Stats

	model, err := NewPredictor(cfg.MemSize, log)
	if err != nil {
		return st, err
	}
	log.Infof("using %s of predictor memory", units.BytesSize(float64(cfg.MemSize)))

	r := bufio.NewReader(src)
	w := bufio.NewWriter(dst)
	enc := guazzo.NewEncoder(w)
	var pout int64
	for {
		c, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, errors.Wrap(err, "")
		}
		if err := enc.EncodeByte(model, c); err != nil {
			return st, err
		}

		st.BytesIn++
		if st.BytesIn%cfg.Window != 0 {
			continue
		}
		if st.BytesIn%progressInterval == 0 {
			log.Debugw("compressing...", "in", st.BytesIn, "out", enc.Written(), "ratio", float64(enc.Written())/float64(st.BytesIn))
		}
		if enc.Written()-pout > cfg.FailLimit {
			log.Debugw("compression failing", "in", st.BytesIn, "window", enc.Written()-pout)
			model.Reset()
		}
		pout = enc.Written()
	}

	if err := enc.Close(); err != nil {
		return st, err
	}
	if err := w.Flush(); err != nil {
		return st, errors.Wrap(err, "")
	}
	st.BytesOut = enc.Written()
	st.Resets = model.Resets()
	log.Infow("compress done", "in", st.BytesIn, "out", st.BytesOut, "ratio", st.Ratio(), "resets", st.Resets)
	return st, nil
}

// Decompress decompresses src, a stream produced by Compress under the same cfg, into dst.
// The stream carries no checksum, so corrupted input goes undetected.
func Decompress(dst io.Writer, src io.Reader, cfg Config) (Stats, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger
	var st Stats

	model, err := NewPredictor(cfg.MemSize, log)
	if err != nil {
		return st, err
	}
	log.Infof("using %s of predictor memory", units.BytesSize(float64(cfg.MemSize)))

	w := bufio.NewWriter(dst)
	dec, err := guazzo.NewDecoder(bufio.NewReader(src))
	if err != nil {
		return st, err
	}
	pin := dec.Read()
	for !dec.Done() {
		c, err := dec.DecodeByte(model)
		if err != nil {
			st.BytesIn = dec.Read()
			return st, errors.Wrapf(err, "after %d bytes of output", st.BytesOut)
		}
		if err := w.WriteByte(c); err != nil {
			return st, errors.Wrap(err, "")
		}

		st.BytesOut++
		if st.BytesOut%cfg.Window != 0 {
			continue
		}
		if st.BytesOut%progressInterval == 0 {
			log.Debugw("expanding...", "in", dec.Read(), "out", st.BytesOut)
		}
		if dec.Read()-pin > cfg.FailLimit {
			log.Debugw("compression was failing", "out", st.BytesOut, "window", dec.Read()-pin)
			model.Reset()
		}
		pin = dec.Read()
	}

	if err := w.Flush(); err != nil {
		return st, errors.Wrap(err, "")
	}
	st.BytesIn = dec.Read()
	st.Resets = model.Resets()
	log.Infow("expand done", "in", st.BytesIn, "out", st.BytesOut, "resets", st.Resets)
	return st, nil
}
