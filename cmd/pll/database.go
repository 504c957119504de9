package main

import (
	"time"

	"pll.link/configs/configsdatabase"
	"pll.link/configs/configslog"
	"pll.link/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Veritabanı migrasyonlarını çalıştırır",
		RunE: func(cmd *cobra.Command, args []string) error {
			configsdatabase.InitDB(cfg)
			defer configsdatabase.CloseDB()
			return database.Initialize(configsdatabase.GetDB(), true, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "migrasyonlardan sonra seeder'ları da çalıştır")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Varsayılan sadakat şemalarını yükler",
		RunE: func(cmd *cobra.Command, args []string) error {
			configsdatabase.InitDB(cfg)
			defer configsdatabase.CloseDB()
			return database.Initialize(configsdatabase.GetDB(), false, true)
		},
	}
}

func retryStuckCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "retry-stuck",
		Short: "ACTIVATING/DEACTIVATING durumunda takılı kalan aktivasyonları yeniden kuyruğa alır",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			n, err := rt.engine.Activation.RequeueStuck(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			configslog.SLog.Infof("%d aktivasyon kaydı yeniden kuyruğa alındı", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*time.Minute, "bu süreden uzun süredir değişmeyen kayıtlar")
	return cmd
}
