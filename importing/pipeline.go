// Package importing drives the two-pass ingest pipeline: pass 1 bulk
// loads every node into the node store, pass 2 re-reads the input to
// assemble ways against that store and insert them into the R-tree.
package importing

import (
	"io"
	"os"
	"time"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"

	"o5mindex/bytesource"
	"o5mindex/config"
	"o5mindex/nodestore"
	"o5mindex/o5m"
	"o5mindex/pagestore"
	"o5mindex/rtree"
	"o5mindex/wayindex"
)

// Import runs both passes over inputFile and leaves nodeStoreDir and
// pageStoreDir populated. If nodeStoreDir already exists, pass 1 is
// skipped and the existing store is reopened as-is for pass 2 - the
// same "skip if already there" behavior spec.md §2 allows for a
// re-run against an already-imported node store.
func Import(inputFile, nodeStoreDir, pageStoreDir string) error {
	sigolo.Infof("Start import of file %s", inputFile)
	start := time.Now()

	skipPass1 := false
	if _, err := os.Stat(nodeStoreDir); err == nil {
		sigolo.Infof("Node store %s already exists, skipping pass 1", nodeStoreDir)
		skipPass1 = true
	}

	if !skipPass1 {
		if err := Pass1Nodes(inputFile, nodeStoreDir); err != nil {
			return errors.Wrap(err, "pass 1 (nodes)")
		}
	}

	nodes, err := nodestore.Open(nodeStoreDir)
	if err != nil {
		return errors.Wrap(err, "opening node store for pass 2")
	}

	pages, err := pagestore.Open(pageStoreDir)
	if err != nil {
		nodes.Close()
		return errors.Wrap(err, "opening page store")
	}
	ways, err := rtree.Open(pages)
	if err != nil {
		pages.Close()
		nodes.Close()
		return errors.Wrap(err, "opening r-tree")
	}

	err = Pass2Ways(inputFile, nodes, ways)

	// Destruction order per the pipeline's resource-ownership contract:
	// flush/destroy the R-tree first, then the paged storage it borrows
	// (whose Flush also compacts the way store), then the node store.
	if flushErr := ways.Flush(); flushErr != nil && err == nil {
		err = errors.Wrap(flushErr, "flushing r-tree")
	}
	if closeErr := pages.Close(); closeErr != nil && err == nil {
		err = errors.Wrap(closeErr, "closing page store")
	}
	if closeErr := nodes.Close(); closeErr != nil && err == nil {
		err = errors.Wrap(closeErr, "closing node store")
	}
	if err != nil {
		return err
	}

	sigolo.Infof("Finished import in %s", time.Since(start))
	return nil
}

// Pass1Nodes bulk loads every node dataset in inputFile into a fresh
// node store at nodeStoreDir.
func Pass1Nodes(inputFile, nodeStoreDir string) error {
	f, err := os.Open(inputFile)
	if err != nil {
		return errors.Wrap(err, "opening input file")
	}
	defer f.Close()

	d, err := openDecoder(f)
	if err != nil {
		return err
	}
	defer d.Close()

	store, err := nodestore.Open(nodeStoreDir)
	if err != nil {
		return errors.Wrap(err, "opening node store")
	}

	var count int
	for {
		ds, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			store.Close()
			return errors.Wrap(err, "decoding pass 1")
		}
		if ds.Kind != o5m.KindNode {
			continue
		}
		if !ds.IsEmpty {
			if err := store.Put(ds.ID, nodestore.NodeValue{Lon: ds.Lon, Lat: ds.Lat}); err != nil {
				store.Close()
				return errors.Wrapf(err, "storing node %d", ds.ID)
			}
		}
		count++
		if count%config.ProgressPrintEveryNodes == 0 {
			sigolo.Debugf("Processed %d nodes", count)
		}
	}

	if err := store.Seal(); err != nil {
		store.Close()
		return errors.Wrap(err, "sealing node store")
	}
	return store.Close()
}

// Pass2Ways re-reads inputFile and assembles every way dataset against
// nodes, inserting the result into ways.
func Pass2Ways(inputFile string, nodes *nodestore.Store, ways *rtree.Index) error {
	f, err := os.Open(inputFile)
	if err != nil {
		return errors.Wrap(err, "opening input file")
	}
	defer f.Close()

	d, err := openDecoder(f)
	if err != nil {
		return err
	}
	defer d.Close()

	var count int
	for {
		ds, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "decoding pass 2")
		}
		if ds.Kind != o5m.KindWay {
			continue
		}
		if ds.IsEmpty {
			continue
		}

		way, diag, err := wayindex.Assemble(d, osm.WayID(ds.ID), nodes)
		if err != nil {
			return errors.Wrapf(err, "assembling way %d", ds.ID)
		}
		wayindex.LogBrokenWay(diag)

		if len(way.Vertices) > 0 {
			if err := ways.Insert(way); err != nil {
				return errors.Wrapf(err, "inserting way %d", ds.ID)
			}
		}

		count++
		if count%config.ProgressPrintEveryWays == 0 {
			sigolo.Debugf("Processed %d ways", count)
		}
	}
	return nil
}

func openDecoder(f *os.File) (*o5m.Decoder, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "statting input file")
	}
	src := bytesource.New(f, info.Size())
	d, err := o5m.Open(src)
	if err != nil {
		return nil, errors.Wrap(err, "opening o5m decoder")
	}
	return d, nil
}
