package osmparser

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/cheggaaa/pb/v3/termutil"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
)

type scanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

type pass struct {
	name          string
	skipNodes     bool
	skipWays      bool
	skipRelations bool
}

// scan reads the whole input once. Files ending in .osm or .xml are read as OSM XML,
// everything else as PBF.
func (p *Parser) scan(ctx context.Context, path string, ps pass, it func(osm.Object)) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening input: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	var bar *pb.ProgressBar
	if p.cfg.Progress {
		bar = newProgressBar(stat.Size(), ps.name)
		defer bar.Finish()
	}

	var (
		sc       scanner
		progress func() int64
	)
	if isXML(path) {
		var r io.Reader = file
		if bar != nil {
			r = bar.NewProxyReader(file)
		}
		sc = osmxml.New(ctx, r)
	} else {
		s := osmpbf.New(ctx, file, p.cfg.Threads)
		s.SkipNodes = ps.skipNodes
		s.SkipWays = ps.skipWays
		s.SkipRelations = ps.skipRelations
		progress = s.FullyScannedBytes
		sc = s
	}
	defer sc.Close()

	for sc.Scan() {
		if bar != nil && progress != nil {
			bar.SetCurrent(progress())
		}
		it(sc.Object())
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	return nil
}

func isXML(path string) bool {
	return strings.HasSuffix(path, ".osm") || strings.HasSuffix(path, ".xml")
}

func newProgressBar(size int64, name string) *pb.ProgressBar {
	bar := pb.Start64(size)
	bar.Set("prefix", name)
	bar.Set(pb.Bytes, true)
	bar.SetRefreshRate(time.Second * 5)
	if w, err := termutil.TerminalWidth(); w == 0 || err != nil {
		bar.SetTemplateString(`{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{bar . }} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}{{with string . "suffix"}} {{.}}{{end}}` + "\n")
	}
	return bar
}
