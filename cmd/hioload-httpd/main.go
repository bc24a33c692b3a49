// File: cmd/hioload-httpd/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hioload-httpd serves a document root through the epoll reactor and worker pool.
//
//	hioload-httpd [flags] <port>

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-httpd/api"
	"github.com/momentics/hioload-httpd/server"
)

func main() {
	// one-time process configuration: writes to a vanished peer report EPIPE instead of killing us
	signal.Ignore(syscall.SIGPIPE)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, stop))
}

// run returns the process exit code: 0 for usage or a signalled shutdown,
// 1 for any startup failure.
func run(args []string, stdout, stderr io.Writer, stop <-chan os.Signal) int {
	def := server.DefaultConfig()
	fs := flag.NewFlagSet("hioload-httpd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	host := fs.String("host", "", "IPv4 address to bind (empty = all interfaces)")
	workers := fs.Int("workers", def.Workers, "worker goroutines")
	queueCap := fs.Int("queue", def.QueueCapacity, "task queue capacity")
	root := fs.String("root", def.DocRoot, "document root")
	overflow := fs.String("overflow", def.Overflow.String(), "full queue policy: reject or retry")
	maxRequest := fs.Int("max-request", def.MaxRequestBytes, "max request line + header bytes")
	level := fs.String("log-level", "info", "log level")
	fs.Usage = func() {
		fmt.Fprintf(stdout, "usage: hioload-httpd [flags] <port>\n")
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		fs.SetOutput(stderr)
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 0
	}

	port, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "invalid port %q\n", fs.Arg(0))
		return 1
	}
	policy, err := api.ParseOverflowPolicy(*overflow)
	if err != nil {
		fmt.Fprintf(stderr, "invalid overflow policy %q\n", *overflow)
		return 1
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(*level)
	if err != nil {
		fmt.Fprintf(stderr, "invalid log level %q\n", *level)
		return 1
	}
	logger.SetLevel(lvl)

	cfg := def
	cfg.Host = *host
	cfg.Port = port
	cfg.Workers = *workers
	cfg.QueueCapacity = *queueCap
	cfg.DocRoot = *root
	cfg.Overflow = policy
	cfg.MaxRequestBytes = *maxRequest

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.WithError(err).Error("startup failed")
		return 1
	}

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	select {
	case sig := <-stop:
		logger.WithField("signal", sig.String()).Info("shutting down")
		srv.Shutdown()
		<-served
		return 0
	case err := <-served:
		srv.Shutdown()
		if err != nil {
			logger.WithError(err).Error("reactor stopped")
			return 1
		}
		return 0
	}
}
