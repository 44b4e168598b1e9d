// Package main is the entry point for the phab gRPC server.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"phab/internal/grpcserver"
	"phab/internal/logging"
)

func main() {
	addr := pflag.String("addr", grpcserver.DefaultAddr, "listen address")
	debug := pflag.Bool("debug", false, "log every call to stderr")
	pflag.Parse()

	logger := logging.New(os.Stderr, *debug)

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	srv := grpcserver.New(logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		srv.GracefulStop()
	}()

	fmt.Fprintf(os.Stderr, "server running on %s\n", lis.Addr())
	if err := srv.Serve(lis); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
