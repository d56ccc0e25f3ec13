// Command cluster prints the normalized compression distance between every pair of files in a directory.
// The complexity of a file is estimated by the size of its DMC compression.
//
// Reference:
// R. Cilibrasi and P. M. B. Vitanyi, Clustering by Compression, IEEE Transactions on Information Theory 51 (4), 2005.
package main

import (
	"bytes"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fumin/dmc"
	"github.com/pkg/errors"
)

var (
	dataDir = flag.String("d", "mammals10", "data directory")
	memSize = flag.String("m", "16MiB", "predictor memory")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if err := run(*dataDir, *memSize); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(dir, mem string) error {
	n, err := dmc.ParseMemSize(mem)
	if err != nil {
		return errors.Wrap(err, "")
	}
	data, err := listFiles(dir)
	if err != nil {
		return errors.Wrap(err, "")
	}
	c := newComplexity(dmc.Config{MemSize: n})
	distMat, err := distanceMatrix(c, data)
	if err != nil {
		return errors.Wrap(err, "")
	}

	names := make([]string, 0, len(data))
	for _, fpath := range data {
		name := filepath.Base(fpath)
		names = append(names, strconv.Quote(strings.TrimSuffix(name, filepath.Ext(name))))
	}
	log.Printf("[%s]", strings.Join(names, ","))

	dists := make([]string, 0, len(distMat))
	for _, d := range distMat {
		dists = append(dists, strconv.FormatFloat(d, 'f', -1, 64))
	}
	log.Printf("[%s]", strings.Join(dists, ","))
	return nil
}

// complexity memoizes the compressed sizes of files.
type complexity struct {
	cfg   dmc.Config
	sizes map[string]float64
}

func newComplexity(cfg dmc.Config) *complexity {
	return &complexity{cfg: cfg, sizes: make(map[string]float64)}
}

// of returns the compressed size of the concatenation of fpaths.
func (c *complexity) of(fpaths ...string) (float64, error) {
	key := strings.Join(fpaths, "\x00")
	if size, ok := c.sizes[key]; ok {
		return size, nil
	}

	readers := make([]io.Reader, 0, len(fpaths))
	for _, fpath := range fpaths {
		b, err := os.ReadFile(fpath)
		if err != nil {
			return -1, errors.Wrap(err, "")
		}
		readers = append(readers, bytes.NewReader(b))
	}
	st, err := dmc.Compress(io.Discard, io.MultiReader(readers...), c.cfg)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}

	size := float64(st.BytesOut)
	c.sizes[key] = size
	return size, nil
}

// distance returns the normalized compression distance between the files x and y.
func (c *complexity) distance(x, y string) (float64, error) {
	kxy, err := c.of(x, y)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	kx, err := c.of(x)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	ky, err := c.of(y)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}

	minxy, maxxy := kx, ky
	if ky < kx {
		minxy, maxxy = ky, kx
	}
	return (kxy - minxy) / maxxy, nil
}

func distanceMatrix(c *complexity, data []string) ([]float64, error) {
	n := len(data)
	if n < 2 {
		return nil, errors.Errorf("need at least 2 files, got %d", n)
	}
	mat := make([]float64, 0, n*(n-1)/2)
	for i, dx := range data[:n-1] {
		for _, dy := range data[i+1:] {
			dist, err := c.distance(dx, dy)
			if err != nil {
				return nil, errors.Wrap(err, "")
			}
			mat = append(mat, dist)
			log.Printf("%q-%q: %f", dx, dy, dist)
		}
	}
	return mat, nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	data := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data = append(data, filepath.Join(dir, e.Name()))
	}
	return data, nil
}
