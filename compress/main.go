package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fumin/dmc"
)

var verbose = flag.Bool("verbose", false, "verbosity")
var window = flag.Int64("window", dmc.DefaultWindow, "bytes between checks for failing compression")
var failLimit = flag.Int64("faillimit", dmc.DefaultFailLimit, "coded bytes per window above which the model is reset")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [memsize] <infile >outfile\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(1)
	}

	logger, err := dmc.NewLogger(*verbose)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	defer logger.Sync()

	cfg := dmc.Config{MemSize: dmc.DefaultMemSize, Window: *window, FailLimit: *failLimit, Logger: logger}
	if s := flag.Arg(0); s != "" {
		if cfg.MemSize, err = dmc.ParseMemSize(s); err != nil {
			log.Fatalf("%+v", err)
		}
	}

	if _, err := dmc.Compress(os.Stdout, os.Stdin, cfg); err != nil {
		log.Fatalf("%+v", err)
	}
}
