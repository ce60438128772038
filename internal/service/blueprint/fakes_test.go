package blueprint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
	bpRepo "coipond/internal/domain/repositories/blueprint"
	bpSvc "coipond/internal/domain/services/blueprint"
	"coipond/internal/repository/memory"
	authSvc "coipond/internal/service/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeParser maps known texts to trees; anything else is malformed
type fakeParser struct {
	trees map[string]models.Tree
	err   error
	calls atomic.Int32
}

func newFakeParser() *fakeParser {
	return &fakeParser{trees: map[string]models.Tree{
		"B1": leaf("Smelter", "1.2.0"),
		"B2": leaf("Smelter", "1.3.0"),
		"B3": leaf("Smelter", "1.4.0"),
		"F1": folder("Base", []*models.Leaf{
			leaf("a", "1.0.3"),
			leaf("b", "1.0.10"),
		}, folder("Sub", []*models.Leaf{leaf("c", "1.0.2")})),
		"EMPTY": folder("Nothing", nil, folder("Also nothing", nil)),
	}}
}

func (p *fakeParser) Parse(ctx context.Context, text string) (models.Tree, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	tree, ok := p.trees[text]
	if !ok {
		return nil, fmt.Errorf("%w: unknown header", bpSvc.ErrParse)
	}
	return tree, nil
}

// fakeBlobs records calls and can fail deletes
type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr error
	putErr    error
	deleted   []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (b *fakeBlobs) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return "", b.putErr
	}
	url := "https://cdn.test/" + key
	b.objects[url] = data
	return url, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, url)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if _, ok := b.objects[url]; !ok {
		return fmt.Errorf("%s: %w", url, domain.ErrNotFound)
	}
	delete(b.objects, url)
	return nil
}

// conflictingLedgers fails the first n saves as if another writer got there first
type conflictingLedgers struct {
	bpRepo.LedgerRepository
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (c *conflictingLedgers) Save(ctx context.Context, ledger *models.VersionLedger) error {
	c.mu.Lock()
	c.saves++
	fail := c.conflicts > 0
	if fail {
		c.conflicts--
	}
	c.mu.Unlock()
	if fail {
		return fmt.Errorf("ledger %s: %w", ledger.BlueprintID, domain.ErrConcurrentModification)
	}
	return c.LedgerRepository.Save(ctx, ledger)
}

type fixture struct {
	store   *memory.Store
	ledgers *conflictingLedgers
	parser  *fakeParser
	blobs   *fakeBlobs
	service bpSvc.BlueprintService
	updater bpSvc.ContentUpdater
	deleter bpSvc.DeletionCoordinator
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewStore(),
		parser: newFakeParser(),
		blobs:  newFakeBlobs(),
		clock:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	f.ledgers = &conflictingLedgers{LedgerRepository: f.store.Ledgers()}
	authorizer := authSvc.NewOwnerBasedAuthorizer()
	logger := testLogger()

	svc := NewBlueprintService(f.store.Blueprints(), f.ledgers, f.parser, f.blobs, authorizer, logger).(*blueprintService)
	svc.now = f.tick
	f.service = svc

	upd := NewContentUpdater(f.store.Blueprints(), f.ledgers, f.store.TransactionManager(), f.parser, authorizer, 3, logger).(*contentUpdater)
	upd.now = f.tick
	f.updater = upd

	f.deleter = NewDeletionCoordinator(f.store.Blueprints(), f.ledgers, f.store.TransactionManager(), f.blobs, authorizer, logger)
	return f
}

// tick advances the fake clock by a minute per call
func (f *fixture) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fixture) create(t *testing.T, owner, text string) *models.Blueprint {
	t.Helper()
	bp, err := f.service.CreateBlueprint(context.Background(), &bpSvc.CreateBlueprintRequest{
		OwnerID:       owner,
		OwnerName:     owner + "-name",
		Name:          "Test blueprint",
		BlueprintText: text,
	})
	if err != nil {
		t.Fatalf("create blueprint: %v", err)
	}
	return bp
}

// pngBytes is the smallest prefix http.DetectContentType recognises as PNG
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
