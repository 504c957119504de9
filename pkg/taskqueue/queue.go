// Package taskqueue veritabanı tabanlı, en az bir kez (at-least-once) teslim eden görev kuyruğudur.
// Görevler tetikleyen transaction içinde yazılır; yani yalnızca commit edilen değişikliklerin görevleri çalışır.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handler bir görev türünü işler. Aynı görev birden fazla kez teslim edilebilir.
type Handler func(ctx context.Context, payload []byte) error

// Config kuyruk ayarları.
type Config struct {
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	Backoff      time.Duration // deneme başına doğrusal artış
	Lease        time.Duration // alınan görevin kilitli kalacağı süre
	BatchSize    int
}

// DefaultConfig makul varsayılanlar.
func DefaultConfig() Config {
	return Config{
		Concurrency:  4,
		PollInterval: time.Second,
		MaxAttempts:  10,
		Backoff:      5 * time.Second,
		Lease:        2 * time.Minute,
		BatchSize:    20,
	}
}

// ErrUnknownKind kayıtlı olmayan görev türü.
var ErrUnknownKind = errors.New("bilinmeyen görev türü")

// Queue görev kuyruğu.
type Queue struct {
	db       *gorm.DB
	cfg      Config
	mu       sync.RWMutex
	handlers map[string]Handler
	now      func() time.Time
}

// New yeni bir Queue oluşturur.
func New(db *gorm.DB, cfg Config) *Queue {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.Lease <= 0 {
		cfg.Lease = def.Lease
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &Queue{db: db, cfg: cfg, handlers: map[string]Handler{}, now: time.Now}
}

// Register görev türü için handler kaydeder.
func (q *Queue) Register(kind string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = h
}

func (q *Queue) handler(kind string) (Handler, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	h, ok := q.handlers[kind]
	return h, ok
}

// Enqueue görevi verilen bağlantıya (genellikle tetikleyen transaction) yazar.
func (q *Queue) Enqueue(ctx context.Context, db *gorm.DB, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("görev verisi serileştirilemedi (%s): %w", kind, err)
	}
	if db == nil {
		db = q.db
	}
	task := &models.Task{Kind: kind, Payload: datatypes.JSON(raw), RunAfter: q.now()}
	if err := db.WithContext(ctx).Create(task).Error; err != nil {
		configslog.Log.Error("Görev kuyruğa yazılamadı", zap.String("kind", kind), zap.Error(err))
		return err
	}
	configslog.SLog.Debugf("Görev kuyruğa eklendi: %s (%s)", task.ID, kind)
	return nil
}

// claim teslim zamanı gelmiş görevleri kiralar. Postgres'te SKIP LOCKED sayesinde
// birden fazla worker aynı satırı almaz; sqlite bu ifadeyi yok sayar.
func (q *Queue) claim(ctx context.Context, limit int) ([]models.Task, error) {
	var tasks []models.Task
	now := q.now()
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("run_after <= ? AND attempts < ? AND (locked_until IS NULL OR locked_until < ?)", now, q.cfg.MaxAttempts, now).
			Order("run_after").
			Limit(limit).
			Find(&tasks).Error
		if err != nil || len(tasks) == 0 {
			return err
		}
		ids := make([]string, len(tasks))
		for i, t := range tasks {
			ids[i] = t.ID.String()
		}
		leaseUntil := now.Add(q.cfg.Lease)
		return tx.Model(&models.Task{}).Where("id IN ?", ids).Update("locked_until", leaseUntil).Error
	})
	return tasks, err
}

// process tek görevi çalıştırır; başarıda siler, hatada yeniden planlar.
func (q *Queue) process(ctx context.Context, task models.Task) error {
	h, ok := q.handler(task.Kind)
	var runErr error
	if !ok {
		runErr = fmt.Errorf("%w: %s", ErrUnknownKind, task.Kind)
	} else {
		runErr = safeRun(ctx, h, task.Payload)
	}

	if runErr == nil {
		return q.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", task.ID.String()).Error
	}

	attempts := task.Attempts + 1
	fields := map[string]interface{}{
		"attempts":     attempts,
		"last_error":   runErr.Error(),
		"locked_until": nil,
		"run_after":    q.now().Add(time.Duration(attempts) * q.cfg.Backoff),
	}
	if attempts >= q.cfg.MaxAttempts {
		configslog.Log.Error("Görev deneme sınırına ulaştı, bırakılıyor",
			zap.String("task_id", task.ID.String()), zap.String("kind", task.Kind), zap.Int("attempts", attempts), zap.Error(runErr))
	} else {
		configslog.Log.Warn("Görev başarısız, yeniden denenecek",
			zap.String("task_id", task.ID.String()), zap.String("kind", task.Kind), zap.Int("attempts", attempts), zap.Error(runErr))
	}
	return q.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", task.ID.String()).Updates(fields).Error
}

func safeRun(ctx context.Context, h Handler, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("görev panikledi: %v", r)
		}
	}()
	return h(ctx, payload)
}

// RunOnce teslim zamanı gelmiş bir grup görevi sırayla işler ve işlenen sayıyı döndürür.
func (q *Queue) RunOnce(ctx context.Context) (int, error) {
	tasks, err := q.claim(ctx, q.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, t := range tasks {
		if err := q.process(ctx, t); err != nil {
			configslog.Log.Error("Görev sonucu kaydedilemedi", zap.String("task_id", t.ID.String()), zap.Error(err))
		}
	}
	return len(tasks), nil
}

// Drain kuyrukta hemen çalıştırılabilir görev kalmayana kadar RunOnce çağırır.
func (q *Queue) Drain(ctx context.Context) error {
	for {
		n, err := q.RunOnce(ctx)
		if err != nil || n == 0 {
			return err
		}
	}
}

// Start Concurrency kadar worker başlatır; ctx iptal edildiğinde döner.
func (q *Queue) Start(ctx context.Context) {
	var wg sync.WaitGroup
	configslog.SLog.Infof("Görev kuyruğu %d worker ile başlatılıyor...", q.cfg.Concurrency)
	for i := 0; i < q.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			q.loop(ctx, worker)
		}(i)
	}
	wg.Wait()
	configslog.SLog.Info("Görev kuyruğu durduruldu.")
}

func (q *Queue) loop(ctx context.Context, worker int) {
	ticker := time.NewTicker(q.cfg.PollInterval)
	defer ticker.Stop()
	for {
		tasks, err := q.claim(ctx, 1)
		if err != nil && ctx.Err() == nil {
			configslog.Log.Error("Görev alınamadı", zap.Int("worker", worker), zap.Error(err))
		}
		for _, t := range tasks {
			if err := q.process(ctx, t); err != nil {
				configslog.Log.Error("Görev sonucu kaydedilemedi", zap.String("task_id", t.ID.String()), zap.Error(err))
			}
		}
		if len(tasks) > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Pending kuyruktaki (tamamlanmamış) görev sayısı; belirli tür için kind verilebilir.
func (q *Queue) Pending(ctx context.Context, kind string) (int64, error) {
	var count int64
	query := q.db.WithContext(ctx).Model(&models.Task{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Count(&count).Error
	return count, err
}
