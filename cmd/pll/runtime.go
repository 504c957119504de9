package main

import (
	"fmt"

	"pll.link/configs/configsdatabase"
	"pll.link/configs/configsenv"
	"pll.link/configs/configslog"
	"pll.link/configs/configsnetwork"
	"pll.link/pkg/cardnetwork"
	"pll.link/pkg/events"
	"pll.link/pkg/taskqueue"
	"pll.link/services"
)

// runtime serve/worker/retry-stuck komutlarının paylaştığı bağımlılıklar.
type runtime struct {
	queue  *taskqueue.Queue
	engine *services.Engine
}

func newRuntime(cfg configsenv.Config) (*runtime, error) {
	configsdatabase.InitDB(cfg)
	db := configsdatabase.GetDB()

	netCfg, err := configsnetwork.Load(cfg.NetworkConfigPath)
	if err != nil {
		return nil, fmt.Errorf("kart ağı yapılandırması: %w", err)
	}

	qcfg := taskqueue.DefaultConfig()
	qcfg.Concurrency = cfg.WorkerConcurrency
	qcfg.PollInterval = cfg.WorkerPollInterval
	qcfg.MaxAttempts = cfg.TaskMaxAttempts
	queue := taskqueue.New(db, qcfg)

	if cfg.UserRefSalt == "" {
		configslog.SLog.Warn("USER_REF_SALT tanımlı değil, kullanıcı referansları tuzsuz hash'lenecek")
	}
	engine := services.NewEngine(db, queue, cardnetwork.NewClient(netCfg), netCfg, cfg.UserRefSalt)

	var publisher events.Publisher
	if cfg.EventsURL != "" {
		publisher = events.NewHTTPPublisher(cfg.EventsURL, netCfg.Timeout)
		configslog.SLog.Infof("Olaylar %s adresine gönderilecek", cfg.EventsURL)
	} else {
		publisher = events.NewLogPublisher(nil)
		configslog.SLog.Info("EVENTS_URL tanımlı değil, olaylar yalnızca loglanacak")
	}
	engine.RegisterTasks(queue, publisher)

	return &runtime{queue: queue, engine: engine}, nil
}

func (r *runtime) close() {
	configsdatabase.CloseDB()
}
