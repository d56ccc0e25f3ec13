package dmc

import (
	"bytes"
	"math/rand"
	"os"
	"testing"

	"github.com/fumin/dmc/ac"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func compress(t *testing.T, in []byte, cfg Config) ([]byte, Stats) {
	var buf bytes.Buffer
	st, err := Compress(&buf, bytes.NewReader(in), cfg)
	require.NoError(t, err)
	require.Equal(t, int64(len(in)), st.BytesIn)
	require.Equal(t, int64(buf.Len()), st.BytesOut)
	return buf.Bytes(), st
}

func decompress(t *testing.T, in []byte, cfg Config) ([]byte, Stats) {
	var buf bytes.Buffer
	st, err := Decompress(&buf, bytes.NewReader(in), cfg)
	require.NoError(t, err)
	require.Equal(t, int64(len(in)), st.BytesIn)
	require.Equal(t, int64(buf.Len()), st.BytesOut)
	return buf.Bytes(), st
}

func TestCompress(t *testing.T) {
	gettys, err := os.ReadFile("testdata/gettysburg.txt")
	require.NoError(t, err)

	cfg := Config{Logger: zaptest.NewLogger(t).Sugar()}
	com, cst := compress(t, gettys, cfg)
	t.Logf("compressed %d bytes to %d", len(gettys), len(com))
	require.Less(t, len(com), len(gettys))

	decom, dst := decompress(t, com, cfg)
	require.Equal(t, gettys, decom)
	require.Equal(t, cst.Resets, dst.Resets)
}

func TestCompressMemSizes(t *testing.T) {
	gettys, err := os.ReadFile("testdata/gettysburg.txt")
	require.NoError(t, err)
	in := bytes.Repeat(gettys, 4)

	for _, states := range []int64{SeedSize + ResetMargin, SeedSize + ResetMargin + 16, SeedSize + 1000, SeedSize + 10000} {
		cfg := Config{MemSize: StateSize * states}
		com, cst := compress(t, in, cfg)
		if states < SeedSize+1000 {
			require.Greater(t, cst.Resets, 0, "states %d", states)
		}

		decom, dst := decompress(t, com, cfg)
		require.Equal(t, in, decom, "states %d", states)
		require.Equal(t, cst.Resets, dst.Resets)
	}
}

func TestCompressDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	in := make([]byte, 20000)
	for i := range in {
		in[i] = byte('a' + rng.Intn(4))
	}

	cfg := Config{MemSize: StateSize * (SeedSize + 2000)}
	com1, _ := compress(t, in, cfg)
	com2, _ := compress(t, in, cfg)
	require.Equal(t, com1, com2)

	decom, _ := decompress(t, com1, cfg)
	require.Equal(t, in, decom)
}

func TestCompressEmpty(t *testing.T) {
	com, st := compress(t, nil, Config{})
	require.Equal(t, []byte{0xff, 0xff, 0xff}, com)
	require.Zero(t, st.Ratio())

	decom, _ := decompress(t, com, Config{})
	require.Empty(t, decom)
}

func TestCompressEdgeBytes(t *testing.T) {
	cases := [][]byte{
		{0x00},
		{0xff},
		{0xff, 0xff},
		bytes.Repeat([]byte{0xff}, 1000),
		bytes.Repeat([]byte{0x00}, 1000),
		append([]byte("abc"), 0xff, 0xff, 0xff),
	}
	for _, in := range cases {
		com, _ := compress(t, in, Config{})
		decom, _ := decompress(t, com, Config{})
		require.Equal(t, in, decom)
	}
}

func TestCompressRepeatedByte(t *testing.T) {
	small := bytes.Repeat([]byte{'a'}, 1<<16)
	large := bytes.Repeat([]byte{'a'}, 1<<18)

	comSmall, _ := compress(t, small, Config{})
	comLarge, _ := compress(t, large, Config{})
	t.Logf("%d -> %d, %d -> %d", len(small), len(comSmall), len(large), len(comLarge))
	require.Less(t, len(comLarge), len(large)/100)
	require.Less(t, len(comLarge), 4*len(comSmall))

	decom, _ := decompress(t, comLarge, Config{})
	require.Equal(t, large, decom)
}

func TestCompressFailing(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	in := make([]byte, 1<<16)
	rng.Read(in)

	core, logs := observer.New(zap.InfoLevel)
	cfg := Config{Logger: zap.New(core).Sugar()}
	com, cst := compress(t, in, cfg)
	require.Greater(t, cst.Resets, 0)
	require.Equal(t, cst.Resets, logs.FilterMessage("model reset").Len())

	decom, dst := decompress(t, com, cfg)
	require.Equal(t, in, decom)
	require.Equal(t, cst.Resets, dst.Resets)

	// The failing heuristic is the only source of resets here.
	cfg = Config{FailLimit: 1 << 30}
	com, cst = compress(t, in, cfg)
	require.Zero(t, cst.Resets)
	decom, _ = decompress(t, com, cfg)
	require.Equal(t, in, decom)
}

func TestCompressOutOfMemory(t *testing.T) {
	var buf bytes.Buffer
	_, err := Compress(&buf, bytes.NewReader([]byte("abc")), Config{MemSize: StateSize * SeedSize})
	require.Equal(t, ErrOutOfMemory, errors.Cause(err))

	_, err = Decompress(&buf, bytes.NewReader([]byte{0xff, 0xff, 0xff}), Config{MemSize: -1})
	require.Equal(t, ErrOutOfMemory, errors.Cause(err))
}

func TestDecompressTruncated(t *testing.T) {
	gettys, err := os.ReadFile("testdata/gettysburg.txt")
	require.NoError(t, err)
	com, _ := compress(t, gettys, Config{})

	var buf bytes.Buffer
	_, err = Decompress(&buf, bytes.NewReader(com[:len(com)/2]), Config{})
	if err != nil {
		require.Equal(t, ac.ErrDecodeInsufficientBytes, errors.Cause(err))
	} else {
		require.NotEqual(t, gettys, buf.Bytes())
	}
}

func TestParseMemSize(t *testing.T) {
	cases := []struct {
		s string
		n int64
	}{
		{s: "16777216", n: 0x1000000},
		{s: "16m", n: 0x1000000},
		{s: "16MiB", n: 0x1000000},
		{s: "2g", n: 2 << 30},
	}
	for _, c := range cases {
		n, err := ParseMemSize(c.s)
		require.NoError(t, err)
		require.Equal(t, c.n, n, c.s)
	}

	_, err := ParseMemSize("lots")
	require.Error(t, err)
	_, err = ParseMemSize("0")
	require.Equal(t, ErrOutOfMemory, errors.Cause(err))
}
