package listview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-rentadmin/pkg/api"
	"github.com/goliatone/go-rentadmin/pkg/listing"
	"github.com/goliatone/go-rentadmin/pkg/nav"
)

type fakeBackend struct {
	mu        sync.Mutex
	pages     map[int]api.Page
	listErr   error
	deleteErr error
	requested []int
	deleted   []string
	hold      map[int]chan struct{}
}

func (f *fakeBackend) ListPage(_ context.Context, _ listing.EntityType, page, _ int) (api.Page, error) {
	f.mu.Lock()
	f.requested = append(f.requested, page)
	wait := f.hold[page]
	f.mu.Unlock()
	if wait != nil {
		<-wait
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return api.Page{}, f.listErr
	}
	return f.pages[page], nil
}

func (f *fakeBackend) Delete(_ context.Context, _ listing.EntityType, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return "", f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return "deleted", nil
}

type fakeSession struct {
	token    string
	expired  int
	onExpire func()
}

func (s *fakeSession) Token() string { return s.token }

func (s *fakeSession) Expire(context.Context) error {
	s.expired++
	s.token = ""
	if s.onExpire != nil {
		s.onExpire()
	}
	return nil
}

func car(id, title string) listing.Entity {
	c := listing.NewCar()
	c.ID = id
	c.Title = title
	return c
}

func page(total int, items ...listing.Entity) api.Page {
	return api.Page{Success: true, Items: items, TotalPages: total}
}

func ids(items []listing.Entity) []string {
	out := []string{}
	for _, item := range items {
		out = append(out, item.Base().ID)
	}
	return out
}

func newController(t *testing.T, entityType listing.EntityType, backend Backend, session Session, opts ...Option) *Controller {
	t.Helper()
	c, err := New(entityType, backend, session, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func mustFetch(t *testing.T, c *Controller, n int) {
	t.Helper()
	if err := c.FetchPage(context.Background(), n); err != nil {
		t.Fatalf("FetchPage(%d) error = %v", n, err)
	}
}

func TestFetchPage_ReplacesItemsAndClearsBanner(t *testing.T) {
	backend := &fakeBackend{pages: map[int]api.Page{1: page(3, car("c1", "Rolls"), car("c2", "Bentley"))}}
	c := newController(t, listing.TypeCar, backend, &fakeSession{})

	mustFetch(t, c, 1)
	if diff := cmp.Diff([]string{"c1", "c2"}, ids(c.Items())); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if got := c.TotalPages(); got != 3 {
		t.Fatalf("TotalPages() = %d, want 3", got)
	}
	if got := c.Banner(); got != "" {
		t.Fatalf("Banner() = %q, want empty", got)
	}
}

func TestFetchPage_EmptyAndUnsuccessful(t *testing.T) {
	backend := &fakeBackend{pages: map[int]api.Page{
		1: page(1, car("c1", "Rolls")),
		2: page(1),
		3: {Success: false},
	}}
	c := newController(t, listing.TypeCar, backend, &fakeSession{})
	mustFetch(t, c, 1)

	mustFetch(t, c, 3)
	if got := c.Banner(); got != "No cars found." {
		t.Fatalf("Banner() = %q", got)
	}
	if got := len(c.Items()); got != 1 {
		t.Fatalf("success:false should keep the previous list, got %d items", got)
	}

	mustFetch(t, c, 2)
	if got := c.Banner(); got != "No cars found." {
		t.Fatalf("Banner() = %q", got)
	}
	if got := len(c.Items()); got != 0 {
		t.Fatalf("expected an empty list, got %d items", got)
	}

	d := newController(t, listing.TypeDecoration, backend, &fakeSession{})
	mustFetch(t, d, 2)
	if got := d.Banner(); got != "No decors found." {
		t.Fatalf("Banner() = %q", got)
	}
}

func TestFetchPage_ErrorKeepsListAndSurfacesBanner(t *testing.T) {
	backend := &fakeBackend{pages: map[int]api.Page{1: page(1, car("c1", "Rolls"))}}

	for _, tc := range []struct {
		name    string
		surface bool
		banner  string
	}{
		{name: "surfaced", surface: true, banner: "Failed to load cars."},
		{name: "parity", surface: false, banner: ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			backend.listErr = nil
			c := newController(t, listing.TypeCar, backend, &fakeSession{}, WithSurfaceFetchErrors(tc.surface))
			mustFetch(t, c, 1)

			backend.listErr = &api.Error{Kind: api.KindNetwork, Message: "boom"}
			if err := c.FetchPage(context.Background(), 1); err == nil {
				t.Fatal("expected fetch error")
			}
			if got := c.Banner(); got != tc.banner {
				t.Fatalf("Banner() = %q, want %q", got, tc.banner)
			}
			if got := len(c.Items()); got != 1 {
				t.Fatalf("expected the list to be kept, got %d items", got)
			}
		})
	}
}

func TestFetchPage_UnauthorizedExpiresSession(t *testing.T) {
	backend := &fakeBackend{listErr: &api.Error{Kind: api.KindAuthExpired}}
	session := &fakeSession{token: "tok"}
	c := newController(t, listing.TypeCar, backend, session)

	if err := c.FetchPage(context.Background(), 1); err == nil {
		t.Fatal("expected fetch error")
	}
	if session.expired != 1 {
		t.Fatalf("expired = %d, want 1", session.expired)
	}
}

// Session subscribers may read the list back while the session expires.
func TestExpire_RunsOutsideListLock(t *testing.T) {
	ctx := context.Background()
	yes := ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	backend := &fakeBackend{
		listErr:   &api.Error{Kind: api.KindAuthExpired},
		deleteErr: &api.Error{Kind: api.KindAuthExpired},
	}
	session := &fakeSession{token: "tok"}
	c := newController(t, listing.TypeCar, backend, session, WithConfirmer(yes))

	var banners []string
	session.onExpire = func() {
		banners = append(banners, c.Banner())
		_ = c.Items()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.FetchPage(ctx, 1)
		session.token = "tok"
		_, _ = c.Delete(ctx, "c1")
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session expiry blocked on the list lock")
	}

	if session.expired != 2 {
		t.Fatalf("expired = %d, want 2", session.expired)
	}
	if diff := cmp.Diff([]string{"Failed to load cars.", "Failed to load cars."}, banners); diff != "" {
		t.Fatalf("banners mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPage_StaleResponseIsDiscarded(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	backend := &fakeBackend{
		pages: map[int]api.Page{
			1: page(2, car("old", "Old")),
			2: page(2, car("new", "New")),
		},
		hold: map[int]chan struct{}{1: release},
	}
	c := newController(t, listing.TypeCar, backend, &fakeSession{})

	done := make(chan error, 1)
	go func() { done <- c.FetchPage(ctx, 1) }()
	deadline := time.Now().Add(time.Second)
	for {
		backend.mu.Lock()
		n := len(backend.requested)
		backend.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first fetch never reached the backend")
		}
		time.Sleep(time.Millisecond)
	}

	mustFetch(t, c, 2)
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale FetchPage error = %v", err)
	}

	if diff := cmp.Diff([]string{"new"}, ids(c.Items())); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if got := c.Page(); got != 2 {
		t.Fatalf("Page() = %d, want 2", got)
	}
}

func TestGoTo_ClampsToKnownPages(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{pages: map[int]api.Page{
		1: page(3, car("a", "A")),
		3: page(3, car("c", "C")),
	}}
	c := newController(t, listing.TypeCar, backend, &fakeSession{})
	mustFetch(t, c, 1)

	if err := c.GoTo(ctx, 10); err != nil {
		t.Fatalf("GoTo() error = %v", err)
	}
	if got := c.Page(); got != 3 {
		t.Fatalf("Page() = %d, want 3", got)
	}
	if err := c.Next(ctx); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got := c.Page(); got != 3 {
		t.Fatalf("Page() after Next = %d, want 3", got)
	}

	if err := c.GoTo(ctx, 1); err != nil {
		t.Fatalf("GoTo() error = %v", err)
	}
	if err := c.Prev(ctx); err != nil {
		t.Fatalf("Prev() error = %v", err)
	}
	if got := c.Page(); got != 1 {
		t.Fatalf("Page() after Prev = %d, want 1", got)
	}
	if diff := cmp.Diff([]int{1, 3, 3, 1, 1}, backend.requested); diff != "" {
		t.Fatalf("requested pages mismatch (-want +got):\n%s", diff)
	}
}

func TestDelete_ConfirmTokenAndReload(t *testing.T) {
	ctx := context.Background()
	var asked []string
	answer := false
	confirm := ConfirmFunc(func(_ context.Context, message string) (bool, error) {
		asked = append(asked, message)
		return answer, nil
	})
	backend := &fakeBackend{pages: map[int]api.Page{1: page(1, car("c1", "A"), car("c2", "B"))}}
	session := &fakeSession{token: "tok"}
	c := newController(t, listing.TypeCar, backend, session, WithConfirmer(confirm))
	mustFetch(t, c, 1)

	deleted, err := c.Delete(ctx, "c1")
	if err != nil || deleted {
		t.Fatalf("Delete() = %v, %v; want false, nil", deleted, err)
	}
	if len(backend.deleted) != 0 {
		t.Fatalf("declined confirmation should send nothing, got %v", backend.deleted)
	}
	if diff := cmp.Diff([]string{"Are you sure you want to delete this car?"}, asked); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}

	answer = true
	session.token = ""
	deleted, err = c.Delete(ctx, "c1")
	if err != nil || deleted {
		t.Fatalf("Delete() without token = %v, %v; want false, nil", deleted, err)
	}
	if len(backend.deleted) != 0 {
		t.Fatalf("missing token should send nothing, got %v", backend.deleted)
	}

	session.token = "tok"
	backend.pages[1] = page(1, car("c2", "B"))
	deleted, err = c.Delete(ctx, "c1")
	if err != nil || !deleted {
		t.Fatalf("Delete() = %v, %v; want true, nil", deleted, err)
	}
	if diff := cmp.Diff([]string{"c1"}, backend.deleted); diff != "" {
		t.Fatalf("deleted mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c2"}, ids(c.Items())); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 1}, backend.requested); diff != "" {
		t.Fatalf("requested pages mismatch (-want +got):\n%s", diff)
	}
}

func TestDelete_FailuresAreLoggedNotReturned(t *testing.T) {
	ctx := context.Background()
	yes := ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	session := &fakeSession{token: "tok"}
	backend := &fakeBackend{deleteErr: &api.Error{Kind: api.KindServer, Message: "Unknown error"}}
	c := newController(t, listing.TypeCar, backend, session, WithConfirmer(yes))

	deleted, err := c.Delete(ctx, "c1")
	if err != nil || deleted {
		t.Fatalf("Delete() = %v, %v; want false, nil", deleted, err)
	}
	if session.expired != 0 {
		t.Fatalf("server error should not expire the session")
	}

	backend.deleteErr = &api.Error{Kind: api.KindAuthExpired}
	if _, err := c.Delete(ctx, "c1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if session.expired != 1 {
		t.Fatalf("expired = %d, want 1", session.expired)
	}
}

func TestDelete_RequiresConfirmer(t *testing.T) {
	c := newController(t, listing.TypeCar, &fakeBackend{}, &fakeSession{token: "tok"})
	if _, err := c.Delete(context.Background(), "c1"); !errors.Is(err, ErrNoConfirmer) {
		t.Fatalf("Delete() error = %v, want ErrNoConfirmer", err)
	}
}

func TestEditAndView(t *testing.T) {
	rec := &nav.Recorder{}
	deco := listing.NewDecoration()
	deco.ID = "d1"
	deco.Title = "Floral arch"
	deco.Location = "Goa"
	deco.Photos = []string{"arch.jpg"}
	backend := &fakeBackend{pages: map[int]api.Page{1: page(1, deco)}}
	c := newController(t, listing.TypeDecoration, backend, &fakeSession{}, WithNavigator(rec))
	mustFetch(t, c, 1)

	c.Edit("d1")
	if got := rec.Last(); got != "/update-decor/d1" {
		t.Fatalf("navigated to %q", got)
	}

	view := c.View(func(ref string) string { return "http://b/images/" + ref })
	if view.Heading != "All Decorations List" {
		t.Fatalf("Heading = %q", view.Heading)
	}
	if len(view.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(view.Rows))
	}
	if view.Rows[0].Image != "http://b/images/arch.jpg" {
		t.Fatalf("Image = %q", view.Rows[0].Image)
	}
	if view.Rows[0].Detail != "Goa" {
		t.Fatalf("Detail = %q", view.Rows[0].Detail)
	}
}
