package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"

	"o5mindex/importing"
	"o5mindex/nodestore"
	"o5mindex/pagestore"
	"o5mindex/rtree"
	"o5mindex/wayindex"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Import  struct {
		Input string `help:"The o5m input file." placeholder:"<input-file>" arg:"" type:"existingfile"`
	} `cmd:"" help:"Imports the given o5m file into the node and way stores."`
	Query struct {
		MinLon float64 `help:"Minimum longitude, in 1e7-scaled integer degrees." arg:""`
		MinLat float64 `help:"Minimum latitude, in 1e7-scaled integer degrees." arg:""`
		MaxLon float64 `help:"Maximum longitude, in 1e7-scaled integer degrees." arg:""`
		MaxLat float64 `help:"Maximum latitude, in 1e7-scaled integer degrees." arg:""`
		TagKey string  `help:"Only return ways carrying this tag key." optional:""`
	} `cmd:"" help:"Writes the ways intersecting the given bounding box to stdout as GeoJSON."`
}

var (
	nodeStoreDir = "o5mindex-nodes"
	pageStoreDir = "o5mindex-ways"
)

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("o5mindex"),
		kong.Description("Builds and queries a node/way index over an o5m OSM dump."),
		kong.Vars{
			"version": VERSION,
		},
	)

	switch strings.ToLower(cli.Logging) {
	case "debug":
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	case "trace":
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	case "info":
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	default:
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	switch ctx.Command() {
	case "import <input>":
		err := importing.Import(cli.Import.Input, nodeStoreDir, pageStoreDir)
		sigolo.FatalCheck(err)

	case "query <min-lon> <min-lat> <max-lon> <max-lat>":
		nodes, err := nodestore.Open(nodeStoreDir)
		sigolo.FatalCheck(err)
		defer nodes.Close()

		pages, err := pagestore.Open(pageStoreDir)
		sigolo.FatalCheck(err)
		defer pages.Close()

		index, err := rtree.Open(pages)
		sigolo.FatalCheck(err)

		region := rtree.Region{
			MinLon: cli.Query.MinLon, MinLat: cli.Query.MinLat,
			MaxLon: cli.Query.MaxLon, MaxLat: cli.Query.MaxLat,
			MinSize: 0, MaxSize: 1e9,
		}

		err = wayindex.QueryGeoJSON(index, region, cli.Query.TagKey, os.Stdout)
		sigolo.FatalCheck(err)

	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}
