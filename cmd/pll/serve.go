package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pll.link/configs/configslog"
	"pll.link/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var noWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Hook API'sini ve (varsayılan olarak) görev worker'ını başlatır",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app := fiber.New(fiber.Config{
				AppName:               "pll",
				DisableStartupMessage: cfg.AppEnv == "production",
				ReadTimeout:           15 * time.Second,
				WriteTimeout:          30 * time.Second,
			})
			routes.SetupRoutes(app, rt.engine)

			workerDone := make(chan struct{})
			if noWorker {
				close(workerDone)
			} else {
				go func() {
					defer close(workerDone)
					rt.queue.Start(ctx)
				}()
			}

			go func() {
				<-ctx.Done()
				configslog.SLog.Info("Kapatma sinyali alındı, sunucu durduruluyor...")
				if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
					configslog.Log.Error("Sunucu düzgün kapatılamadı", zap.Error(err))
				}
			}()

			addr := ":" + cfg.AppPort
			configslog.SLog.Infof("Sunucu %s adresinde dinliyor", addr)
			if err := app.Listen(addr); err != nil {
				stop()
				<-workerDone
				return err
			}
			<-workerDone
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "görev worker'ını bu süreçte çalıştırma")
	return cmd
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Yalnızca görev worker'ını çalıştırır",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			rt.queue.Start(ctx)
			return nil
		},
	}
}
