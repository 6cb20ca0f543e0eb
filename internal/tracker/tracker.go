// Package tracker owns the live ChoreQuest document. Every change is applied
// in memory first and then written through the gateway in the background.
package tracker

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dukerupert/chorequest/internal/calendar"
	"github.com/dukerupert/chorequest/internal/chore"
	"github.com/dukerupert/chorequest/internal/metrics"
	"github.com/dukerupert/chorequest/internal/model"
	"github.com/dukerupert/chorequest/internal/websocket"
)

var (
	ErrUnknownKid   = errors.New("unknown kid")
	ErrUnknownChore = errors.New("unknown chore")
	ErrAlreadySpun  = errors.New("wheel already spun this week")
	ErrClosed       = errors.New("tracker closed")
)

// Store loads and saves the whole document.
type Store interface {
	Load(ctx context.Context) (*model.Document, error)
	Save(ctx context.Context, doc model.Document) error
}

type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

type Notifier interface {
	ChoreAwaitingVerification(kidName, choreName string)
	BaselineReached(kidName string, points int)
}

// Archiver keeps a copy of each week as it closes.
type Archiver interface {
	Archive(ctx context.Context, doc model.Document) error
}

// Options wires a Tracker. Store and Clock are required; the rest may be nil.
type Options struct {
	Store       Store
	Clock       calendar.Clock
	Broadcaster Broadcaster
	Notifier    Notifier
	Archiver    Archiver
	Rand        *rand.Rand
	Logger      *slog.Logger
}

type pendingSave struct {
	seq uint64
	doc model.Document
}

type Tracker struct {
	mu     sync.Mutex
	doc    model.Document
	seq    uint64
	closed bool

	store       Store
	clock       calendar.Clock
	broadcaster Broadcaster
	notifier    Notifier
	archiver    Archiver
	rng         *rand.Rand
	logger      *slog.Logger

	saves   chan pendingSave
	saveMu  sync.Mutex
	written uint64
	bg      sync.WaitGroup
}

// Open loads the stored document, falling back to the defaults when there is
// none or it cannot be read, refreshes the standing chore catalog and applies
// any pending weekly reset.
func Open(ctx context.Context, opts Options) (*Tracker, error) {
	if opts.Store == nil || opts.Clock == nil {
		return nil, errors.New("tracker: store and clock are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t := &Tracker{
		store:       opts.Store,
		clock:       opts.Clock,
		broadcaster: opts.Broadcaster,
		notifier:    opts.Notifier,
		archiver:    opts.Archiver,
		rng:         opts.Rand,
		logger:      logger,
		saves:       make(chan pendingSave, 1),
	}

	loaded, err := opts.Store.Load(ctx)
	if err != nil {
		logger.Warn("load document failed, starting from defaults", "error", err)
	}

	var doc model.Document
	if loaded == nil {
		logger.Info("no stored document, using defaults")
		doc = model.DefaultDocument()
	} else {
		doc = *loaded
	}
	doc.StandingChores = model.StandingChores()
	if doc.PIN == "" {
		doc.PIN = model.DefaultPIN
	}
	t.doc = normalize(doc)

	t.bg.Add(1)
	go t.saveLoop()

	t.mu.Lock()
	reset := t.resolveWeekLocked()
	if !reset && loaded == nil {
		t.queueSaveLocked()
	}
	t.mu.Unlock()

	return t, nil
}

// Document returns a copy of the current document.
func (t *Tracker) Document() model.Document {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.resolveWeekLocked()
	}
	return t.doc.Clone()
}

// Now is the tracker's clock reading.
func (t *Tracker) Now() time.Time {
	return t.clock.Now()
}

// CheckPIN compares pin to the parent PIN in constant time.
func (t *Tracker) CheckPIN(pin string) bool {
	t.mu.Lock()
	want := t.doc.PIN
	t.mu.Unlock()
	return subtle.ConstantTimeCompare([]byte(pin), []byte(want)) == 1
}

// Replace overwrites the whole document and writes it synchronously, the way
// the data route has always behaved. The live copy changes even when the
// write fails. The standing catalog is always the built-in one, and the PIN
// only changes when changePIN is set and the new one is non-empty.
func (t *Tracker) Replace(ctx context.Context, doc model.Document, changePIN bool) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	next := normalize(doc.Clone())
	next.StandingChores = model.StandingChores()
	if !changePIN || next.PIN == "" {
		next.PIN = t.doc.PIN
	}
	t.doc = next
	t.seq++
	p := pendingSave{seq: t.seq, doc: next.Clone()}
	// a queued older write is now pointless
	select {
	case <-t.saves:
	default:
	}
	t.mu.Unlock()

	t.broadcast(websocket.DocumentUpdated("replace", ""))
	return t.write(ctx, p)
}

// CheckOff records today's completion of a chore. A second check-off of the
// same chore on the same day changes nothing and reports false.
func (t *Tracker) CheckOff(kidID, choreID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now, err := t.beginLocked(kidID)
	if err != nil {
		return false, err
	}
	c, ok := chore.Find(t.doc, kidID, choreID)
	if !ok {
		return false, ErrUnknownChore
	}

	before := len(t.doc.ChoreLog[kidID])
	next := chore.RecordCompletion(t.doc, kidID, choreID, calendar.Today(now))
	if len(next.ChoreLog[kidID]) == before {
		return false, nil
	}
	t.commitLocked(next)

	metrics.RecordCompletion(kidID)
	t.broadcast(websocket.DocumentUpdated("complete", kidID))
	if t.notifier != nil {
		name := t.doc.Profiles[kidID].Name
		t.async(func() { t.notifier.ChoreAwaitingVerification(name, c.Name) })
	}
	return true, nil
}

// Verify approves or rejects a pending completion. date defaults to today.
// It reports whether a pending record matched.
func (t *Tracker) Verify(kidID, choreID, date string, approved bool) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now, err := t.beginLocked(kidID)
	if err != nil {
		return false, err
	}
	if date == "" {
		date = calendar.Today(now)
	}

	if !hasPending(t.doc, kidID, choreID, date) {
		return false, nil
	}
	next, events := chore.VerifyCompletion(t.doc, kidID, choreID, date, approved)
	t.commitLocked(next)

	metrics.RecordVerification(kidID, approved)
	t.broadcast(websocket.DocumentUpdated("verify", kidID))

	profile := t.doc.Profiles[kidID]
	for _, ev := range events {
		if ev != chore.EventBaselineEarned {
			continue
		}
		metrics.RecordBaseline(kidID)
		t.logger.Info("baseline reached", "kid", kidID, "points", profile.Points)
		t.broadcast(websocket.Celebration(kidID, profile.Points))
		if t.notifier != nil {
			t.async(func() { t.notifier.BaselineReached(profile.Name, profile.Points) })
		}
	}
	return true, nil
}

// Adjust adds a bonus or deduction to a kid's week.
func (t *Tracker) Adjust(kidID string, amount int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	now, err := t.beginLocked(kidID)
	if err != nil {
		return err
	}
	t.commitLocked(chore.AdjustPoints(t.doc, kidID, amount, reason, calendar.Today(now)))

	metrics.RecordAdjustment(kidID, amount)
	t.broadcast(websocket.DocumentUpdated("adjust", kidID))
	return nil
}

// AddRotatingChore gives a kid an extra chore for the rest of the week and
// returns it.
func (t *Tracker) AddRotatingChore(kidID, name string, points int) (model.ChoreDefinition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.beginLocked(kidID); err != nil {
		return model.ChoreDefinition{}, err
	}
	next := chore.AddRotatingChore(t.doc, kidID, name, points)
	t.commitLocked(next)

	added := next.RotatingChores[kidID][len(next.RotatingChores[kidID])-1]
	t.broadcast(websocket.DocumentUpdated("add_chore", kidID))
	return added, nil
}

// Spin picks the kid's prize for the week. Each kid spins once per week.
func (t *Tracker) Spin(kidID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.beginLocked(kidID); err != nil {
		return "", err
	}
	if t.doc.Profiles[kidID].HasSpun {
		return "", ErrAlreadySpun
	}

	prize, err := chore.SpinWheel(t.doc, t.rng)
	if err != nil {
		return "", err
	}
	t.commitLocked(chore.RecordWheelResult(t.doc, kidID, prize))

	metrics.RecordSpin(kidID)
	t.broadcast(websocket.DocumentUpdated("spin", kidID))
	return prize, nil
}

// ResolveWeek applies the weekly reset if the week has turned. It reports
// whether a reset happened.
func (t *Tracker) ResolveWeek() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	return t.resolveWeekLocked()
}

// Close flushes the pending write and waits for background work.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.saves)
	t.mu.Unlock()

	t.bg.Wait()
}

// beginLocked checks the tracker is usable for kidID and rolls the week over
// if needed, so a change never lands in a stale week.
func (t *Tracker) beginLocked(kidID string) (time.Time, error) {
	if t.closed {
		return time.Time{}, ErrClosed
	}
	t.resolveWeekLocked()
	if _, ok := t.doc.Profiles[kidID]; !ok {
		return time.Time{}, ErrUnknownKid
	}
	return t.clock.Now(), nil
}

func (t *Tracker) resolveWeekLocked() bool {
	prev := t.doc
	next, reset := chore.ResolveWeek(t.doc, calendar.WeekID(t.clock.Now()))
	if !reset {
		return false
	}
	t.logger.Info("new week", "previous", prev.WeekStart, "week", next.WeekStart)
	metrics.RecordWeekReset()
	t.commitLocked(next)
	t.broadcast(websocket.DocumentUpdated("week_reset", ""))

	if t.archiver != nil && prev.WeekStart != "" {
		closing := prev.Clone()
		t.async(func() {
			if err := t.archiver.Archive(context.Background(), closing); err != nil {
				t.logger.Warn("archive week", "week", closing.WeekStart, "error", err)
			}
		})
	}
	return true
}

func (t *Tracker) commitLocked(next model.Document) {
	t.doc = next
	t.queueSaveLocked()
}

// queueSaveLocked hands the current document to the saver, replacing any
// write still waiting.
func (t *Tracker) queueSaveLocked() {
	t.seq++
	p := pendingSave{seq: t.seq, doc: t.doc.Clone()}
	select {
	case t.saves <- p:
		return
	default:
	}
	select {
	case <-t.saves:
	default:
	}
	t.saves <- p
}

func (t *Tracker) saveLoop() {
	defer t.bg.Done()
	for p := range t.saves {
		if err := t.write(context.Background(), p); err != nil {
			t.logger.Error("save document", "error", err)
		}
	}
}

// write persists p unless a newer document has already been written.
func (t *Tracker) write(ctx context.Context, p pendingSave) error {
	t.saveMu.Lock()
	defer t.saveMu.Unlock()
	if p.seq <= t.written {
		return nil
	}
	start := time.Now()
	err := t.store.Save(ctx, p.doc)
	metrics.RecordSave(time.Since(start), err)
	if err != nil {
		return err
	}
	t.written = p.seq
	return nil
}

func (t *Tracker) broadcast(msg websocket.Message) {
	if t.broadcaster != nil {
		t.broadcaster.Broadcast(msg)
	}
}

// async runs fn in the background; Close waits for it. Callers hold mu.
func (t *Tracker) async(fn func()) {
	t.bg.Add(1)
	go func() {
		defer t.bg.Done()
		fn()
	}()
}

func hasPending(doc model.Document, kidID, choreID, date string) bool {
	for _, rec := range chore.Pending(doc, kidID) {
		if rec.ChoreID == choreID && rec.Date == date {
			return true
		}
	}
	return false
}

// normalize fills in missing per-kid collections so documents written by
// older clients can be mutated safely.
func normalize(doc model.Document) model.Document {
	if doc.Profiles == nil {
		doc.Profiles = make(map[string]model.Profile)
	}
	if doc.RotatingChores == nil {
		doc.RotatingChores = make(map[string][]model.ChoreDefinition)
	}
	if doc.ChoreLog == nil {
		doc.ChoreLog = make(map[string][]model.CompletionRecord)
	}
	if doc.PointAdjustments == nil {
		doc.PointAdjustments = make(map[string][]model.AdjustmentRecord)
	}
	for id := range doc.Profiles {
		if doc.RotatingChores[id] == nil {
			doc.RotatingChores[id] = []model.ChoreDefinition{}
		}
		if doc.ChoreLog[id] == nil {
			doc.ChoreLog[id] = []model.CompletionRecord{}
		}
		if doc.PointAdjustments[id] == nil {
			doc.PointAdjustments[id] = []model.AdjustmentRecord{}
		}
	}
	return doc
}
