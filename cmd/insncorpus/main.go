package main

import (
	"log/slog"
	"net/http"
	"os"

	_ "net/http/pprof" // profiling

	"github.com/xyproto/env/v2"

	"insncorpus/internal/insncorpus/cmd"
	"insncorpus/internal/insncorpus/log"
)

func main() {
	defer log.RecoverPanic("main", func() {
		slog.Error("insncorpus terminated by an unhandled panic")
		os.Exit(cmd.ExitFatal)
	})

	if addr := env.Str("INSNCORPUS_PROFILE"); addr != "" {
		if addr == "1" {
			addr = "localhost:6060"
		}
		go func() {
			slog.Info("Serving pprof", "addr", addr)
			if httpErr := http.ListenAndServe(addr, nil); httpErr != nil {
				slog.Error("Failed to pprof listen", "error", httpErr)
			}
		}()
	}

	cmd.Execute()
}
