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

// Command pmixctl is a diagnostic client: it dials a running pmixd and
// exercises Put/Commit/Get/Fence/Publish/Lookup/Unpublish/Spawn against it,
// printing results to stdout, the same role the sample PMIx client tools
// play against a production server.
package main

import (
	"context"
	"fmt"
	"os"

	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"

	"github.com/sabouaram/pmix/internal/client"
	"github.com/sabouaram/pmix/internal/config"
	"github.com/sabouaram/pmix/internal/logging"
	"github.com/sabouaram/pmix/internal/server/pubsub"
	loglvl "github.com/sabouaram/pmix/logger/level"
	"github.com/sabouaram/pmix/pkg/wire"
)

var (
	cfg     = config.DefaultClientConfig()
	v       = spfvpr.New()
	verbose int

	barrier     bool
	collect     bool
	nonBlocking bool
)

func main() {
	root := &spfcbr.Command{
		Use:   "pmixctl",
		Short: "diagnostic client for a running pmixd",
	}
	if err := cfg.RegisterFlag(root, v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	root.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase log verbosity (overrides -v bound by RegisterFlag)")
	root.PersistentFlags().BoolVar(&barrier, "barrier", false, "wait for every named participant before returning (fence commands)")
	root.PersistentFlags().BoolVar(&collect, "collect", false, "request data-exchange rather than a bare synchronization barrier")
	root.PersistentFlags().BoolVar(&nonBlocking, "non-blocking", false, "return immediately instead of waiting on the result")

	root.PersistentPreRun = func(cmd *spfcbr.Command, args []string) {
		cfg.LoadFromViper(v)
	}

	root.AddCommand(
		putCmd(),
		getCmd(),
		fenceCmd(),
		publishCmd(),
		lookupCmd(),
		unpublishCmd(),
		spawnCmd(),
		abortCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial(ctx context.Context) (*client.Client, error) {
	log := logging.New(ctx)
	log.SetLevel(loglvl.ParseFromInt(int(loglvl.InfoLevel) + verbose))
	log.SetStdLogger(log.GetLevel(), 0)

	return client.Dial(ctx, client.Config{
		SocketPath: cfg.SocketPath,
		Namespace:  cfg.Namespace,
		Rank:       cfg.Rank,
		IsTool:     cfg.IsTool,
	})
}

func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if cfg.Timeout.Time() <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, cfg.Timeout.Time())
}

func putCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "put <key> <value>",
		Short: "stage a key/value pair and commit it",
		Args:  spfcbr.ExactArgs(2),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background())
			defer cancel()

			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			c.Put(args[0], wire.NewStringV(args[1]))
			sc, err := c.Commit(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sc)
			return nil
		},
	}
}

func getCmd() *spfcbr.Command {
	var namespace string
	var rank int32
	cc := &spfcbr.Command{
		Use:   "get <key>",
		Short: "block until key is committed by its owner, then print it",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background())
			defer cancel()

			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ns := namespace
			if ns == "" {
				ns = cfg.Namespace
			}
			val, sc, err := c.Get(ctx, ns, rank, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", sc, val.StringOrEmpty())
			return nil
		},
	}
	cc.Flags().StringVar(&namespace, "owner-namespace", "", "namespace owning the key (defaults to -n)")
	cc.Flags().Int32Var(&rank, "owner-rank", 0, "rank owning the key")
	return cc
}

func fenceCmd() *spfcbr.Command {
	var ranks []int32
	cc := &spfcbr.Command{
		Use:   "fence",
		Short: "join a collective barrier (optionally exchanging data) with the named ranks",
		RunE: func(cmd *spfcbr.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background())
			defer cancel()

			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			participants := make([]client.Participant, 0, len(ranks))
			for _, r := range ranks {
				participants = append(participants, client.Participant{Namespace: cfg.Namespace, Rank: r})
			}

			if nonBlocking {
				go func() { _, _, _ = c.Fence(ctx, participants) }()
				fmt.Fprintln(cmd.OutOrStdout(), "fence submitted")
				return nil
			}

			data, sc, err := c.Fence(ctx, participants)
			if err != nil {
				return err
			}
			if collect {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %q\n", sc, data)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), sc)
			}
			return nil
		},
	}
	cc.Flags().Int32SliceVar(&ranks, "ranks", nil, "ranks participating in the fence, alongside the caller")
	return cc
}

func publishCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "publish <key> <value>",
		Short: "publish a key/value pair for cross-namespace lookup",
		Args:  spfcbr.ExactArgs(2),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background())
			defer cancel()

			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			sc, err := c.Publish(ctx, pubsub.Session, []pubsub.KV{{Key: args[0], Value: wire.NewStringV(args[1])}})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sc)
			return nil
		},
	}
}

func lookupCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "lookup <key>",
		Short: "look up a published key, waiting if --barrier is set",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background())
			defer cancel()

			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			found, sc, err := c.Lookup(ctx, pubsub.Session, barrier, cfg.Timeout.Time(), []string{args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", sc, found[args[0]].StringOrEmpty())
			return nil
		},
	}
}

func unpublishCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "unpublish <key>",
		Short: "remove a previously published key",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background())
			defer cancel()

			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			sc, err := c.Unpublish(ctx, pubsub.Session, []string{args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sc)
			return nil
		},
	}
}

func spawnCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "spawn <app-description>",
		Short: "ask the host to spawn a new namespace",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background())
			defer cancel()

			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ns, sc, err := c.Spawn(ctx, []byte(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", sc, ns)
			return nil
		},
	}
}

func abortCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "abort <reason>",
		Short: "abort the job with the given reason",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background())
			defer cancel()

			c, err := dial(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			sc, err := c.Abort(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sc)
			return nil
		},
	}
}
