package osint

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeGetter struct {
	mu    sync.Mutex
	calls int
	body  []byte
	err   error
	// block makes every call wait for its context.
	block bool
}

func postsBody(titles ...string) []byte {
	posts := make([]LeakPost, 0, len(titles))
	for _, t := range titles {
		posts = append(posts, LeakPost{Title: t, Group: "lockbit3"})
	}
	b, _ := json.Marshal(posts)
	return b
}

func (f *fakeGetter) Get(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	body, err, block := f.body, f.err, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return body, err
}

func (f *fakeGetter) setBlock(block bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = block
}

func (f *fakeGetter) set(body []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body, f.err = body, err
}

func (f *fakeGetter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeResolver struct {
	mu      sync.Mutex
	records map[string][]string
	errs    map[string]error
	queried []string
}

func (r *fakeResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queried = append(r.queried, name)
	if err := r.errs[name]; err != nil {
		return nil, err
	}
	return r.records[name], nil
}

func (r *fakeResolver) Queried() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queried...)
}

type fakePeeker struct {
	mu       sync.Mutex
	calls    int
	notAfter map[string]time.Time
	errs     map[string]error
	// block makes every call wait for its context.
	block bool
}

func (p *fakePeeker) PeekCertificate(ctx context.Context, host string) (time.Time, error) {
	p.mu.Lock()
	p.calls++
	block := p.block
	na, err := p.notAfter[host], p.errs[host]
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return time.Time{}, ctx.Err()
	}
	if err != nil {
		return time.Time{}, err
	}
	return na, nil
}

func (p *fakePeeker) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
