package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	api "github.com/mind-engage/mindengage-scorm/internal/api/http"
	auth "github.com/mind-engage/mindengage-scorm/internal/auth/middleware"
	"github.com/mind-engage/mindengage-scorm/internal/config"
	"github.com/mind-engage/mindengage-scorm/internal/rbac"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveAddr != "" {
			a.cfg.HTTPAddr = serveAddr
		}
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		st, err := a.store(openCtx)
		cancel()
		if err != nil {
			return err
		}
		blobs, err := storage.NewFSStore(a.cfg.OutputDir)
		if err != nil {
			return err
		}
		if a.cfg.EnableAuth && a.cfg.AuthHMACSecret == config.DefaultHMACSecret {
			if a.cfg.Mode == config.ModeOnline {
				return errors.New("online mode with auth needs auth_hmac_secret")
			}
			a.log.Warn("signing tokens with the default secret")
		}
		authSvc := auth.NewAuthService(a.cfg.AuthHMACSecret,
			auth.Account{User: a.cfg.AdminUser, PassHash: a.cfg.AdminPassHash, Role: rbac.RoleAdmin})

		srv := &http.Server{
			Addr: a.cfg.HTTPAddr,
			Handler: api.NewRouter(api.Deps{
				Cfg:   a.cfg,
				Store: st,
				Blobs: blobs,
				Auth:  authSvc,
				Log:   a.log,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.log.Info("listening", "addr", a.cfg.HTTPAddr, "mode", a.cfg.Mode,
				"db", a.cfg.DBDriver, "auth", a.cfg.EnableAuth)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			a.log.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	}),
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}
