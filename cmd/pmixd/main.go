/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command pmixd is the rendezvous daemon: it binds the Unix-domain socket
// clients dial into, runs the opcode dispatcher against the local KV store,
// registry, collective and pubsub state, and serves Prometheus metrics
// alongside it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"

	"github.com/sabouaram/pmix/internal/config"
	"github.com/sabouaram/pmix/internal/logging"
	"github.com/sabouaram/pmix/internal/server"
	"github.com/sabouaram/pmix/internal/server/host"
	"github.com/sabouaram/pmix/internal/transport"
	loglvl "github.com/sabouaram/pmix/logger/level"
)

func main() {
	cfg := config.DefaultServerConfig()
	v := spfvpr.New()

	root := &spfcbr.Command{
		Use:   "pmixd",
		Short: "PMIx rendezvous daemon",
		Long:  "pmixd serves the PMIx rendezvous socket local client processes dial into.",
	}

	var configFile string
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file to load before flags are applied")

	serveCmd := &spfcbr.Command{
		Use:   "serve",
		Short: "run the rendezvous daemon in the foreground",
		RunE: func(cmd *spfcbr.Command, args []string) error {
			if configFile != "" {
				loaded, err := config.LoadServerConfigFile(configFile)
				if err != nil {
					return fmt.Errorf("load config file %s: %w", configFile, err)
				}
				cfg = loaded
			}
			cfg.LoadFromViper(v)
			return runServe(cfg)
		},
	}
	if err := cfg.RegisterFlag(serveCmd, v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	defaultsCmd := &spfcbr.Command{
		Use:   "defaults",
		Short: "print the default server config as YAML",
		RunE: func(cmd *spfcbr.Command, args []string) error {
			b, err := config.DefaultServerConfig().DefaultConfig()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}

	root.AddCommand(serveCmd, defaultsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cfg config.ServerConfig) error {
	log := logging.New(context.Background())
	log.SetLevel(loglvl.Parse(cfg.LogLevel))
	log.SetSPF13Level(loglvl.Parse(cfg.LogLevel), nil)

	groupPerm := int32(-1)
	if cfg.GroupPerm != "" {
		if grp, err := user.LookupGroup(cfg.GroupPerm); err == nil {
			if gid, err2 := strconv.ParseInt(grp.Gid, 10, 32); err2 == nil {
				groupPerm = int32(gid)
			}
		} else {
			log.Warning(fmt.Sprintf("could not resolve group %q: %v", cfg.GroupPerm, err), nil)
		}
	}

	registry := prometheus.NewRegistry()
	h := host.New(log)

	srv, err := server.New(server.Config{
		Transport: transport.Config{
			SocketPath: cfg.SocketPath,
			PermFile:   0700,
			GroupPerm:  groupPerm,
		},
		Metrics:              registry,
		SubmissionQueueDepth: cfg.SendQueueDepth,
	}, h, log)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error(fmt.Sprintf("metrics server: %v", err), nil)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received", nil)
		cancel()
	}()

	log.Info(fmt.Sprintf("listening on %s", cfg.SocketPath), nil)
	err = srv.Run(ctx)

	if metricsServer != nil {
		_ = metricsServer.Close()
	}
	_ = srv.Close()

	return err
}
