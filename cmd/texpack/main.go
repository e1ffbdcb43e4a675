// Command texpack packs every image under a directory into atlas pages and
// writes them with their manifest, the same way the viewer does at startup.
package main

import (
	"flag"
	"fmt"
	"os"

	"packed-flame/internal/logging"
	"packed-flame/internal/texpack"

	"github.com/schollz/progressbar/v3"
)

func main() {
	dir := flag.String("dir", "assets", "directory to collect images from")
	out := flag.String("out", "assets/packed_textures", "directory for pages and manifest")
	side := flag.Int("side", texpack.DefaultSideLength, "page side length in pixels")
	padding := flag.Int("padding", 1, "pixels reserved right of and below each texture")
	workers := flag.Int("workers", 0, "concurrent decoders, 0 for GOMAXPROCS")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	log, closeLog, err := logging.New([]logging.Sink{{Kind: "console", Level: *level}})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer closeLog()

	sources, err := texpack.CollectSources(*dir, *out)
	if err != nil {
		log.Error("collect failed", "error", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		log.Error("no images found", "dir", *dir)
		os.Exit(1)
	}

	bar := progressbar.Default(int64(len(sources)), "decoding")
	p, err := texpack.Pack(sources, *out, texpack.Options{
		SideLength: *side,
		Padding:    *padding,
		Workers:    *workers,
		Logger:     log,
		OnDecoded:  func(string) { _ = bar.Add(1) },
	})
	_ = bar.Finish()
	if err != nil {
		log.Error("pack failed", "error", err)
		os.Exit(1)
	}

	for _, name := range p.Names() {
		sub, _ := p.SubTexture(name)
		log.Debug("packed", "texture", name, "page", sub.PageIndex, "bbox", sub.BBox)
	}
	log.Info("done", "textures", len(sources), "pages", p.PageCount(), "reused", p.Reused())
}
