// Command unpackqa decodes a stored QA raster into per-flag masks.
//
// The input is a UQA1 blob (see package codec) read from a local directory,
// S3 or a MinIO server. Masks are written back to the same store, one blob
// per flag, or as a single stacked array with -stacked.
//
//	unpackqa -product landsat8_c2_l2_qa_pixel -root ./data -in scene/qa.uqa -out scene/masks \
//	    -flags cloud,cloud_confidence -where "cloud=1,cloud_confidence>=2"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/hupe1980/unpackqa"
	"github.com/hupe1980/unpackqa/blobstore"
	minioblob "github.com/hupe1980/unpackqa/blobstore/minio"
	"github.com/hupe1980/unpackqa/blobstore/s3"
	"github.com/hupe1980/unpackqa/codec"
	"github.com/hupe1980/unpackqa/filter"
	"github.com/hupe1980/unpackqa/ndarray"
	"github.com/hupe1980/unpackqa/products"
	"github.com/hupe1980/unpackqa/raster"
	"github.com/hupe1980/unpackqa/resource"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type config struct {
	product     string
	productFile string

	store     string
	root      string
	bucket    string
	prefix    string
	endpoint  string
	region    string
	accessKey string
	secretKey string
	insecure  bool

	in          string
	out         string
	flags       string
	where       string
	compression string
	stacked     bool
	listFlags   bool
	report      string

	workers     int
	tile        int
	memoryLimit int64
	ioLimit     int64

	logLevel string
	jsonLog  bool
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("unpackqa", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.product, "product", "", "built-in product name ("+strings.Join(products.Names(), ", ")+")")
	fs.StringVar(&cfg.productFile, "product-file", "", "JSON product definition (overrides -product)")

	fs.StringVar(&cfg.store, "store", "local", "blob store: local, s3 or minio")
	fs.StringVar(&cfg.root, "root", ".", "root directory for the local store")
	fs.StringVar(&cfg.bucket, "bucket", "", "bucket for s3 and minio stores")
	fs.StringVar(&cfg.prefix, "prefix", "", "key prefix inside the bucket")
	fs.StringVar(&cfg.endpoint, "endpoint", "", "custom S3 endpoint or MinIO host:port")
	fs.StringVar(&cfg.region, "region", "", "AWS region")
	fs.StringVar(&cfg.accessKey, "access-key", os.Getenv("MINIO_ACCESS_KEY"), "MinIO access key")
	fs.StringVar(&cfg.secretKey, "secret-key", os.Getenv("MINIO_SECRET_KEY"), "MinIO secret key")
	fs.BoolVar(&cfg.insecure, "insecure", false, "use plain HTTP for MinIO")

	fs.StringVar(&cfg.in, "in", "", "name of the QA blob")
	fs.StringVar(&cfg.out, "out", "", "output prefix for masks (empty: no masks written)")
	fs.StringVar(&cfg.flags, "flags", "all", "comma-separated flags to decode, or all")
	fs.StringVar(&cfg.where, "where", "", "pixel condition to count, e.g. \"cloud=1,cloud_confidence>=2\"")
	fs.StringVar(&cfg.compression, "compression", "zstd", "mask compression: none, lz4 or zstd")
	fs.BoolVar(&cfg.stacked, "stacked", false, "write one stacked array instead of one blob per flag")
	fs.BoolVar(&cfg.listFlags, "list-flags", false, "print the product's flags and exit")
	fs.StringVar(&cfg.report, "report", "", "write a JSON report to this blob")

	fs.IntVar(&cfg.workers, "workers", runtime.GOMAXPROCS(0), "decode and upload workers")
	fs.IntVar(&cfg.tile, "tile", unpackqa.DefaultTileSize, "pixels per decode tile")
	fs.Int64Var(&cfg.memoryLimit, "memory-limit", 0, "bit-plane memory budget in bytes (0: unlimited)")
	fs.Int64Var(&cfg.ioLimit, "io-limit", 0, "store IO limit in bytes per second (0: unlimited)")

	fs.StringVar(&cfg.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.BoolVar(&cfg.jsonLog, "json-log", false, "log as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.product == "" && cfg.productFile == "" {
		return nil, errors.New("one of -product or -product-file is required")
	}
	if cfg.in == "" && !cfg.listFlags {
		return nil, errors.New("-in is required")
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "unpackqa:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}

	product, err := loadProduct(cfg)
	if err != nil {
		return err
	}

	if cfg.listFlags {
		for _, name := range product.AvailableFlags() {
			bits, _ := product.Flags.Lookup(name)
			fmt.Fprintf(stdout, "%s\t%v\n", name, bits)
		}
		return nil
	}

	comp, err := codec.ParseCompression(cfg.compression)
	if err != nil {
		return err
	}

	var cond filter.Condition
	if cfg.where != "" {
		if cond, err = filter.Parse(cfg.where); err != nil {
			return err
		}
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	ctrl := resource.NewController(resource.Config{
		MemoryLimitBytes:   cfg.memoryLimit,
		MaxWorkers:         int64(cfg.workers),
		IOLimitBytesPerSec: cfg.ioLimit,
	})

	metrics := &unpackqa.BasicMetricsCollector{}
	u, err := unpackqa.New(product,
		unpackqa.WithLogger(logger),
		unpackqa.WithMetricsCollector(metrics),
		unpackqa.WithTileSize(cfg.tile),
		unpackqa.WithWorkers(cfg.workers),
		unpackqa.WithResourceController(ctrl),
	)
	if err != nil {
		return err
	}

	start := time.Now()
	qa, err := raster.Read(ctx, store, cfg.in, ctrl)
	if err != nil {
		return err
	}
	logger.Debug("qa raster loaded", "name", cfg.in, "shape", qa.Shape(), "dtype", qa.DType().String())

	sel := unpackqa.ParseSelector(cfg.flags)
	if cond != nil && !sel.IsAll() {
		// The condition may reference flags that were not requested.
		sel = unpackqa.Named(mergeFlags(sel.Names(), cond.Flags())...)
	}

	masks, err := u.UnpackToDict(ctx, qa, sel)
	if err != nil {
		return err
	}

	rep := report{
		Product: product.Name,
		Input:   cfg.in,
		Shape:   qa.Shape(),
		Pixels:  qa.Size(),
	}

	for name, mask := range masks.All() {
		bm, err := filter.Bitmap(mask)
		if err != nil {
			return err
		}
		rep.Flags = append(rep.Flags, flagReport{Name: name, DType: mask.DType().String(), NonZero: bm.GetCardinality()})
	}

	if cond != nil {
		bm, err := filter.Evaluate(masks, cond)
		if err != nil {
			return err
		}
		rep.Where = &whereReport{Condition: cond.String(), Matches: bm.GetCardinality()}
	}

	if cfg.out != "" {
		rep.Outputs, err = writeOutputs(ctx, store, cfg, u, qa, sel, masks, comp, ctrl)
		if err != nil {
			return err
		}
	}

	rep.Elapsed = time.Since(start).String()
	stats := metrics.GetStats()
	logger.Info("unpack complete",
		"product", product.Name,
		"pixels", qa.Size(),
		"flags", masks.Len(),
		"outputs", len(rep.Outputs),
		"unpack_avg", time.Duration(stats.UnpackAvgNanos),
	)

	data, err := codec.GoJSON{}.MarshalIndent(rep)
	if err != nil {
		return err
	}
	if cfg.report != "" {
		if err := store.Put(ctx, cfg.report, data); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

type report struct {
	Product string       `json:"product"`
	Input   string       `json:"input"`
	Shape   []int        `json:"shape"`
	Pixels  int          `json:"pixels"`
	Flags   []flagReport `json:"flags"`
	Where   *whereReport `json:"where,omitempty"`
	Outputs []string     `json:"outputs,omitempty"`
	Elapsed string       `json:"elapsed"`
}

type flagReport struct {
	Name    string `json:"name"`
	DType   string `json:"dtype"`
	NonZero uint64 `json:"non_zero"`
}

type whereReport struct {
	Condition string `json:"condition"`
	Matches   uint64 `json:"matches"`
}

func writeOutputs(ctx context.Context, store blobstore.BlobStore, cfg *config, u *unpackqa.Unpacker, qa *ndarray.Array, sel unpackqa.FlagSelector, masks *unpackqa.FlagMasks, comp codec.Compression, ctrl *resource.Controller) ([]string, error) {
	if !cfg.stacked {
		return raster.WriteMasks(ctx, store, cfg.out, masks, comp, ctrl)
	}

	stacked, err := u.UnpackToArray(ctx, qa, sel)
	if err != nil {
		return nil, err
	}
	name := path.Join(cfg.out, "stacked"+raster.Ext)
	if err := raster.Write(ctx, store, name, stacked, comp, ctrl); err != nil {
		return nil, err
	}
	return []string{name}, nil
}

func newLogger(cfg *config, w io.Writer) (*unpackqa.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid -log-level %q", cfg.logLevel)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.jsonLog {
		return unpackqa.NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return unpackqa.NewLogger(slog.NewTextHandler(w, opts)), nil
}

func loadProduct(cfg *config) (unpackqa.Product, error) {
	if cfg.productFile == "" {
		return products.ByName(cfg.product)
	}
	f, err := os.Open(cfg.productFile)
	if err != nil {
		return unpackqa.Product{}, err
	}
	defer f.Close()
	return products.LoadJSON(f)
}

func openStore(ctx context.Context, cfg *config) (blobstore.BlobStore, error) {
	switch cfg.store {
	case "local", "":
		return blobstore.NewLocalStore(cfg.root), nil
	case "s3":
		if cfg.bucket == "" {
			return nil, errors.New("-bucket is required for the s3 store")
		}
		var opts []s3.Option
		if cfg.prefix != "" {
			opts = append(opts, s3.WithPrefix(cfg.prefix))
		}
		if cfg.region != "" {
			opts = append(opts, s3.WithRegion(cfg.region))
		}
		if cfg.endpoint != "" {
			opts = append(opts, s3.WithEndpoint(cfg.endpoint))
		}
		return s3.New(ctx, cfg.bucket, opts...)
	case "minio":
		if cfg.bucket == "" || cfg.endpoint == "" {
			return nil, errors.New("-bucket and -endpoint are required for the minio store")
		}
		client, err := minio.New(cfg.endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretKey, ""),
			Secure: !cfg.insecure,
			Region: cfg.region,
		})
		if err != nil {
			return nil, err
		}
		return minioblob.NewStore(client, cfg.bucket, cfg.prefix), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.store)
	}
}

func mergeFlags(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, names := range [][]string{a, b} {
		for _, name := range names {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
