package services

import (
	"pll.link/configs/configsnetwork"
	"pll.link/pkg/cardnetwork"
	"pll.link/pkg/events"
	"pll.link/pkg/taskqueue"

	"gorm.io/gorm"
)

// Engine link motorunun bileşenlerini birbirine bağlar.
type Engine struct {
	Emitter    *EventEmitter
	Views      *UserLinkViewStore
	Activation *ActivationStateMachine
	Links      *BaseLinkStore
	Cleanup    *CleanupCoordinator
	Hooks      *StatusHookService
	Wallet     *WalletService
}

// NewEngine tüm servisleri aynı veritabanı ve kuyruk üzerinde oluşturur.
func NewEngine(db *gorm.DB, queue TaskEnqueuer, client cardnetwork.IClient, netCfg configsnetwork.Config, userRefSalt string) *Engine {
	emitter := NewEventEmitter(db, queue, userRefSalt)
	views := NewUserLinkViewStore(db, emitter)
	activation := NewActivationStateMachine(db, queue, client, netCfg)
	links := NewBaseLinkStore(db, views, activation)
	cleanup := NewCleanupCoordinator(db, views, links, activation, emitter)
	hooks := NewStatusHookService(db, links)
	return &Engine{
		Emitter:    emitter,
		Views:      views,
		Activation: activation,
		Links:      links,
		Cleanup:    cleanup,
		Hooks:      hooks,
		Wallet:     NewWalletService(db, links, cleanup, hooks),
	}
}

// TaskRegistrar görev türü için handler kaydedebilen kuyruk.
type TaskRegistrar interface {
	Register(kind string, h taskqueue.Handler)
}

// RegisterTasks aktivasyon ve olay görevlerinin handler'larını kaydeder.
func (e *Engine) RegisterTasks(r TaskRegistrar, publisher events.Publisher) {
	r.Register(TaskKindActivate, e.Activation.HandleActivate)
	r.Register(TaskKindDeactivate, e.Activation.HandleDeactivate)
	r.Register(events.TaskKindPublish, events.TaskHandler(publisher))
}
