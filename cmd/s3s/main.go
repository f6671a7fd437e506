// Command s3s reads and writes objects through a scope from the shell.
//
//	s3s [-root bucket/prefix] [-v] <uri|get|put|ls|rm|size|exists> key...
//
// Each key argument is one path segment. put reads the value from stdin and
// decodes it with the codec picked by the last segment.
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
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/passwordkeyorg/s3s/internal/backend"
	"github.com/passwordkeyorg/s3s/internal/config"
	"github.com/passwordkeyorg/s3s/scope"
)

var errAbsent = errors.New("absent")

func main() {
	root := flag.String("root", "", "bucket/prefix to work under (defaults to S3S_ROOT)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: s3s [flags] <uri|get|put|ls|rm|size|exists> key...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := config.LoadDotenv(".env"); err != nil {
		logger.Error("dotenv failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}
	sc, closer, err := openScope(ctx, cfg.WithRoot(*root), logger)
	if err != nil {
		logger.Error("open failed", "backend", cfg.Backend, "err", err)
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	err = run(ctx, sc, flag.Args(), os.Stdin, os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, errAbsent):
		stop()
		os.Exit(1)
	default:
		logger.Error(flag.Arg(0)+" failed", "err", err)
		stop()
		os.Exit(1)
	}
}

// openScope opens the backend for cfg and roots a scope at cfg.Root.
func openScope(ctx context.Context, cfg config.Config, logger *slog.Logger) (*scope.Scope, io.Closer, error) {
	st, closer, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	sc, err := backend.Scope(st, cfg, logger)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return sc, closer, nil
}

func run(ctx context.Context, sc *scope.Scope, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd := args[0]
	key := make(scope.Key, 0, len(args)-1)
	for _, a := range args[1:] {
		key = append(key, a)
	}
	if len(key) == 0 && cmd != "uri" && cmd != "ls" {
		return fmt.Errorf("%s needs a key", cmd)
	}

	switch cmd {
	case "uri":
		_, err := fmt.Fprintln(stdout, sc.URI(key...))
		return err
	case "get":
		res, err := sc.Get(ctx, key)
		if err != nil {
			return err
		}
		if sub, ok := res.Scope(); ok {
			return list(ctx, sub, stdout)
		}
		v, _ := res.Value()
		c, _ := sc.Codec(key)
		return c.Encode(stdout, v)
	case "put":
		c, ok := sc.Codec(key)
		if !ok {
			return sc.Set(ctx, key, nil)
		}
		v, err := c.DecodeValue(stdin)
		if err != nil {
			return err
		}
		if err := sc.Set(ctx, key, v); err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, sc.URI(key...))
		return err
	case "ls":
		return list(ctx, sc.Sub(key...), stdout)
	case "rm":
		return sc.Delete(ctx, key)
	case "size":
		n, err := sc.Size(ctx, key...)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, n)
		return err
	case "exists":
		ok, err := sc.Contains(ctx, key)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(stdout, ok); err != nil {
			return err
		}
		if !ok {
			return errAbsent
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func list(ctx context.Context, sc *scope.Scope, w io.Writer) error {
	items, err := sc.List(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		if _, err := fmt.Fprintln(w, it); err != nil {
			return err
		}
	}
	return nil
}
