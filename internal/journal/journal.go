package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DoyleJ11/maze-team-client/pkg/types"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnknownDriver = errors.New("unknown journal driver")

// batchSize caps how many events go into one insert.
const batchSize = 64

// EventRow is one journaled event.
type EventRow struct {
	ID     uint   `gorm:"primaryKey"`
	RunID  string `gorm:"index;size:36;not null"`
	Team   string `gorm:"size:64"`
	Player string `gorm:"index;size:64;not null"`
	Kind   string `gorm:"size:32;not null"`
	Turn   int
	Row    int
	Col    int
	Detail string
	At     time.Time `gorm:"index"`
}

func (EventRow) TableName() string { return "maze_events" }

// Open connects to driver ("postgres" or "sqlite") and migrates the schema.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("journal: %w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", driver, err)
	}
	if err := db.AutoMigrate(&EventRow{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return db, nil
}

// Journal writes agent events to the database from a single goroutine so
// agents never wait on I/O. Events that do not fit the queue are dropped
// and counted.
type Journal struct {
	db    *gorm.DB
	runID string
	team  string
	log   *zap.Logger

	queue   chan types.Event
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	written int
	dropped int
	err     error
}

func New(db *gorm.DB, runID, team string, log *zap.Logger) *Journal {
	if log == nil {
		log = zap.NewNop()
	}
	j := &Journal{
		db:    db,
		runID: runID,
		team:  team,
		log:   log.Named("journal"),
		queue: make(chan types.Event, 1024),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go j.loop()
	return j
}

// Event queues e for writing.
func (j *Journal) Event(e types.Event) {
	select {
	case <-j.stop:
		return
	default:
	}
	select {
	case j.queue <- e:
	default:
		j.mu.Lock()
		j.dropped++
		j.mu.Unlock()
	}
}

// Snapshot is a no-op: the journal keeps events, not maps.
func (j *Journal) Snapshot(types.PlayerSnapshot) {}

func (j *Journal) loop() {
	defer close(j.done)
	batch := make([]EventRow, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := j.db.CreateInBatches(batch, batchSize).Error; err != nil {
			j.log.Warn("journal write failed", zap.Int("events", len(batch)), zap.Error(err))
			j.mu.Lock()
			j.err = err
			j.mu.Unlock()
		} else {
			j.mu.Lock()
			j.written += len(batch)
			j.mu.Unlock()
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-j.queue:
			batch = append(batch, j.row(e))
			// drain whatever is already queued into the same insert
			for len(batch) < batchSize && len(j.queue) > 0 {
				batch = append(batch, j.row(<-j.queue))
			}
			flush()

		case <-j.stop:
			for len(j.queue) > 0 {
				batch = append(batch, j.row(<-j.queue))
				if len(batch) == batchSize {
					flush()
				}
			}
			flush()
			return
		}
	}
}

func (j *Journal) row(e types.Event) EventRow {
	return EventRow{
		RunID:  j.runID,
		Team:   j.team,
		Player: e.Player,
		Kind:   string(e.Kind),
		Turn:   e.Turn,
		Row:    e.Row,
		Col:    e.Col,
		Detail: e.Detail,
		At:     e.Time,
	}
}

// Close flushes queued events and stops the writer. It returns the last
// write error, if any.
func (j *Journal) Close(ctx context.Context) error {
	j.once.Do(func() { close(j.stop) })
	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.dropped > 0 {
		j.log.Warn("journal dropped events", zap.Int("dropped", j.dropped))
	}
	return j.err
}

// Stats reports how many events were written and dropped so far.
func (j *Journal) Stats() (written, dropped int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written, j.dropped
}

// Events loads the events of one run, oldest first.
func Events(ctx context.Context, db *gorm.DB, runID string) ([]EventRow, error) {
	var rows []EventRow
	err := db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("journal: load run %s: %w", runID, err)
	}
	return rows, nil
}
