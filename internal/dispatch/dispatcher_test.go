package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/shopcollagebot/internal/catalog"
	"sjsage522/shopcollagebot/internal/collage"
	"sjsage522/shopcollagebot/internal/crawler"
	"sjsage522/shopcollagebot/services/publisher"
)

// fakeBuilder returns a collage whose PNG names the batch it was built from
type fakeBuilder struct {
	batches [][]crawler.ProductRecord
}

var _ CollageBuilder = (*fakeBuilder)(nil)

func (b *fakeBuilder) Build(ctx context.Context, items []crawler.ProductRecord) (*collage.Collage, error) {
	b.batches = append(b.batches, items)
	return &collage.Collage{
		PNG:    []byte(fmt.Sprintf("collage-%d", len(b.batches))),
		Placed: len(items),
	}, nil
}

// recordingPublisher records everything it is asked to send
type recordingPublisher struct {
	mu        sync.Mutex
	events    []string
	posts     []publisher.Post
	promos    []publisher.Promo
	failPosts map[int]bool
}

var _ publisher.Publisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) PublishCollage(ctx context.Context, post publisher.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.posts) + 1
	p.posts = append(p.posts, post)
	p.events = append(p.events, fmt.Sprintf("post-%d", n))
	if p.failPosts[n] {
		return errors.New("channel unavailable")
	}
	return nil
}

func (p *recordingPublisher) PublishPromo(ctx context.Context, promo publisher.Promo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.promos = append(p.promos, promo)
	p.events = append(p.events, "promo")
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func records(n int) []crawler.ProductRecord {
	items := make([]crawler.ProductRecord, n)
	for i := range items {
		items[i] = crawler.ProductRecord{
			ImageURL: fmt.Sprintf("https://img.test/%03d.png", i),
			Name:     crawler.UnknownField,
			Price:    crawler.UnknownField,
		}
	}
	return items
}

func fileNames(post publisher.Post) []string {
	names := make([]string, 0, len(post.Files))
	for _, f := range post.Files {
		names = append(names, f.Name)
	}
	return names
}

func newTestDispatcher(pub publisher.Publisher) (*Dispatcher, *fakeBuilder) {
	b := &fakeBuilder{}
	return NewDispatcher(b, pub, catalog.Default(), catalog.DefaultAnnouncement()), b
}

func TestBatches(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{1, []int{1}},
		{64, []int{64}},
		{65, []int{64, 1}},
		{130, []int{64, 64, 2}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d items", tt.n), func(t *testing.T) {
			items := records(tt.n)
			batches := Batches(items, BatchSize)

			var sizes []int
			var flat []crawler.ProductRecord
			for _, b := range batches {
				sizes = append(sizes, len(b))
				flat = append(flat, b...)
			}
			assert.Equal(t, tt.want, sizes)
			if tt.n > 0 {
				assert.Equal(t, items, flat)
			}
		})
	}
}

func TestDispatchSingleBatch(t *testing.T) {
	pub := &recordingPublisher{}
	d, b := newTestDispatcher(pub)

	report := &Report{PassID: "test"}
	require.NoError(t, d.Dispatch(context.Background(), records(10), report))

	require.Len(t, b.batches, 1)
	assert.Len(t, b.batches[0], 10)

	assert.Equal(t, []string{"post-1", "promo"}, pub.events)
	assert.Equal(t, "🛒 Hier ist die aktuelle Shop-Auswahl:", pub.posts[0].Caption)
	assert.Equal(t, []string{catalog.CollageFileName, catalog.PriceListFileName}, fileNames(pub.posts[0]))
	assert.Equal(t, "image/png", pub.posts[0].Files[0].ContentType)
	assert.Equal(t, catalog.Default().Render(), string(pub.posts[0].Files[1].Data))

	assert.Equal(t, 10, report.Items)
	assert.Equal(t, 1, report.Batches)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 10, report.Placed)
	assert.True(t, report.PromoSent)
}

func TestDispatchMultipleBatches(t *testing.T) {
	pub := &recordingPublisher{}
	d, b := newTestDispatcher(pub)

	report := &Report{}
	require.NoError(t, d.Dispatch(context.Background(), records(130), report))

	require.Len(t, b.batches, 3)
	assert.Equal(t, "https://img.test/000.png", b.batches[0][0].ImageURL)
	assert.Equal(t, "https://img.test/064.png", b.batches[1][0].ImageURL)
	assert.Equal(t, "https://img.test/128.png", b.batches[2][0].ImageURL)

	// The price list rides only on the last post and the promo comes after it
	assert.Equal(t, []string{"post-1", "post-2", "post-3", "promo"}, pub.events)
	assert.Equal(t, []string{catalog.CollageFileName}, fileNames(pub.posts[0]))
	assert.Equal(t, []string{catalog.CollageFileName}, fileNames(pub.posts[1]))
	assert.Equal(t, []string{catalog.CollageFileName, catalog.PriceListFileName}, fileNames(pub.posts[2]))
	assert.Equal(t, "collage-3", string(pub.posts[2].Files[0].Data))

	require.Len(t, pub.promos, 1)
	assert.Equal(t, "Jixx's Market", pub.promos[0].Title)
	assert.Equal(t, 3, report.Sent)
}

func TestDispatchEmptyListing(t *testing.T) {
	pub := &recordingPublisher{}
	d, b := newTestDispatcher(pub)

	report := &Report{}
	require.NoError(t, d.Dispatch(context.Background(), nil, report))

	assert.Empty(t, b.batches)
	assert.Empty(t, pub.events)
	assert.Equal(t, 0, report.Batches)
}

func TestDispatchContinuesAfterDeliveryFailure(t *testing.T) {
	pub := &recordingPublisher{failPosts: map[int]bool{1: true}}
	d, _ := newTestDispatcher(pub)

	report := &Report{}
	err := d.Dispatch(context.Background(), records(100), report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel unavailable")

	assert.Equal(t, []string{"post-1", "post-2", "promo"}, pub.events)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, report.PromoSent)
}

func TestDispatchWithRealBuilderAllImagesFailing(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(collage.NewBuilder(failingFetcher{}), pub, catalog.Default(), catalog.DefaultAnnouncement())

	report := &Report{}
	require.NoError(t, d.Dispatch(context.Background(), records(5), report))

	// A collage of pure background is still sent
	require.Len(t, pub.posts, 1)
	assert.NotEmpty(t, pub.posts[0].Files[0].Data)
	assert.Equal(t, 0, report.Placed)
	assert.Equal(t, 5, report.Skipped)
	assert.Len(t, pub.promos, 1)
}

type failingFetcher struct{}

func (failingFetcher) Fetch(ctx context.Context, url string) collage.FetchResult {
	return collage.FetchResult{Err: errors.New("unreachable")}
}

func TestDispatchWithoutReport(t *testing.T) {
	pub := &recordingPublisher{}
	d, _ := newTestDispatcher(pub)

	require.NotPanics(t, func() {
		require.NoError(t, d.Dispatch(context.Background(), records(3), nil))
	})
	assert.Equal(t, []string{"post-1", "promo"}, pub.events)
}
