package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/exodash/internal/ai"
	"github.com/KaramelBytes/exodash/internal/server"
	"github.com/KaramelBytes/exodash/internal/state"
	"github.com/KaramelBytes/exodash/internal/watch"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP dashboard",
	Example: `  exodash serve
  exodash serve --addr 127.0.0.1:8080 --data ./planets.csv --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		ctx := cmd.Context()
		ds := loadDataset(ctx)

		svc, closeSvc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer closeSvc()

		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") && serveAddr != "" {
			addr = serveAddr
		}
		// Image runs chain two model calls.
		featureTimeout := 2*httpTimeout() + 30*time.Second

		h := server.NewHandler(ds, svc, logger)
		h.SetFeatureTimeout(featureTimeout)
		if cfg.ImageSize != "" && ai.ValidImageSize(cfg.ImageSize) {
			h.Session().Dispatch(state.SetImageSize{Size: cfg.ImageSize})
		}
		success(cmd.ErrOrStderr(), "Loaded %d planets from %s", ds.Len(), ds.Source())
		if serveWatch {
			if err := watchData(ctx, h); err != nil {
				warn(cmd.ErrOrStderr(), "not watching data: %v", err)
			}
		}
		success(cmd.ErrOrStderr(), "Dashboard at http://%s/charts/dashboard", displayAddr(addr))
		return server.Run(ctx, h, server.Options{Addr: addr, WriteTimeout: featureTimeout}, logger)
	},
}

// watchData reloads the dataset into h whenever the local data file changes.
func watchData(ctx context.Context, h *server.Handler) error {
	src := dataSource()
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return fmt.Errorf("%s is remote", src)
	}
	w, err := watch.New(src)
	if err != nil {
		return err
	}
	w.Log = logger
	go func() {
		_ = w.Run(ctx, func() {
			ds := loadDataset(ctx)
			if ds.Empty() && !h.Dataset().Empty() {
				logger.Warn("reload produced no planets, keeping previous data", "source", src)
				return
			}
			h.Reload(ds)
		})
	}()
	logger.Info("watching data file", "path", w.Path)
	return nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the dataset when the local data file changes")
}
