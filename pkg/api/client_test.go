package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-rentadmin/pkg/listing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, options ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(server.URL, options...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestDefaultRoutes_ResolvesBackendContract(t *testing.T) {
	routes, err := DefaultRoutes()
	if err != nil {
		t.Fatalf("default routes: %v", err)
	}

	want := map[string]Route{
		OpListCars:         {OperationID: OpListCars, Method: "GET", Path: "/api/car/cars", ResultsPath: "cars"},
		OpRemoveCar:        {OperationID: OpRemoveCar, Method: "DELETE", Path: "/api/car/remove-car/{id}", Secured: true},
		OpListDecorations:  {OperationID: OpListDecorations, Method: "GET", Path: "/api/decor/decorations-lists", ResultsPath: "decors"},
		OpUpdateDecoration: {OperationID: OpUpdateDecoration, Method: "PUT", Path: "/api/decorations-lists/{id}"},
		OpCreateDecoration: {OperationID: OpCreateDecoration, Method: "POST", Path: "/api/decor/create-decorations", Secured: true},
		OpLogout:           {OperationID: OpLogout, Method: "DELETE", Path: "/api/user/logout", Secured: true},
	}
	for id, expected := range want {
		got, err := routes.Lookup(id)
		if err != nil {
			t.Fatalf("lookup %s: %v", id, err)
		}
		if diff := cmp.Diff(expected, got); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", id, diff)
		}
	}
	if len(routes.IDs()) != 13 {
		t.Fatalf("expected 13 operations, got %v", routes.IDs())
	}
	if _, err := routes.Lookup("nope"); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestListPage_DecodesItemsAndPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/car/cars" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("limit") != "10" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get(RequestIDHeader) == "" {
			t.Errorf("missing request id")
		}
		_, _ = io.WriteString(w, `{"success":true,"cars":[{"_id":"c1","title":"Rolls","rentalPrice":1500,"image":"a.jpg"}],"pagination":{"totalPages":3}}`)
	})

	page, err := client.ListPage(context.Background(), listing.TypeCar, 2, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !page.Success || page.TotalPages != 3 || len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	car := page.Items[0].(*listing.Car)
	if car.ID != "c1" || car.RentalPrice != "1500" || car.Image != "a.jpg" {
		t.Fatalf("unexpected car %+v", car)
	}
}

func TestListPage_SuccessFalseIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"nothing"}`)
	})
	page, err := client.ListPage(context.Background(), listing.TypeDecoration, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Success || len(page.Items) != 0 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestCreate_SendsBearerAndMultipartFields(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "front.jpg")
	if err := os.WriteFile(photo, []byte("jpeg-bytes"), 0o600); err != nil {
		t.Fatalf("write photo: %v", err)
	}

	car := listing.NewCar()
	car.Title = "Rolls"
	car.Owner.Phone = "0123456789"
	car.AdditionalAmenities = []string{"AC", "Music"}
	car.RentalPrice = "1500"
	_ = car.SetMedia("photos", []string{photo, "existing.jpg"})

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/car/create-car" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		form := r.MultipartForm
		if got := form.Value["owner[phone]"]; len(got) != 1 || got[0] != "0123456789" {
			t.Errorf("owner[phone] = %v", got)
		}
		if diff := cmp.Diff([]string{"AC", "Music"}, form.Value["additionalAmenities"]); diff != "" {
			t.Errorf("amenities (-want +got):\n%s", diff)
		}
		if got := form.Value["rentalPrice"]; len(got) != 1 || got[0] != "1500" {
			t.Errorf("rentalPrice = %v", got)
		}
		if got := form.Value["photos"]; len(got) != 1 || got[0] != "existing.jpg" {
			t.Errorf("remote photo refs = %v", got)
		}
		files := form.File["photos"]
		if len(files) != 1 || files[0].Filename != "front.jpg" {
			t.Errorf("unexpected file parts %v", files)
		}
		if _, ok := form.Value["_id"]; ok {
			t.Errorf("_id must not be sent")
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true}`)
	}, WithTokenSource(StaticToken("tok")))

	err := client.Create(context.Background(), Payload{
		Entity:  car,
		Uploads: []Upload{{Slot: "photos", Path: photo, Name: "front.jpg"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestCreate_JSONEncodingUsesFileNames(t *testing.T) {
	d := listing.NewDecoration()
	d.Title = "Lights"
	_ = d.SetMedia("photos", []string{"/tmp/x/led.png"})

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if diff := cmp.Diff([]any{"led.png"}, body["photos"]); diff != "" {
			t.Errorf("photos (-want +got):\n%s", diff)
		}
		_, _ = io.WriteString(w, `{"success":true}`)
	}, WithTokenSource(StaticToken("tok")))

	err := client.Create(context.Background(), Payload{
		Entity:   d,
		Uploads:  []Upload{{Slot: "photos", Path: "/tmp/x/led.png", Name: "led.png"}},
		Encoding: EncodingJSON,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestCreate_StreamsMultipartUploads(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "walkaround.mp4")
	content := bytes.Repeat([]byte("0123456789abcdef"), 256<<10)
	if err := os.WriteFile(video, content, 0o600); err != nil {
		t.Fatalf("write video: %v", err)
	}

	car := listing.NewCar()
	car.Title = "Rolls"
	_ = car.SetMedia("videos", []string{video})

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != -1 {
			t.Errorf("expected a streamed body, got content length %d", r.ContentLength)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		files := r.MultipartForm.File["videos"]
		if len(files) != 1 {
			t.Errorf("unexpected file parts %v", files)
			return
		}
		f, err := files[0].Open()
		if err != nil {
			t.Errorf("open part: %v", err)
			return
		}
		defer f.Close()
		got, err := io.ReadAll(f)
		if err != nil {
			t.Errorf("read part: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("video part has %d bytes, want %d", len(got), len(content))
		}
		_, _ = io.WriteString(w, `{"success":true}`)
	}, WithTokenSource(StaticToken("tok")))

	err := client.Create(context.Background(), Payload{
		Entity:  car,
		Uploads: []Upload{{Slot: "videos", Path: video, Name: "walkaround.mp4"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestCreate_MissingUploadSendsNothing(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, WithTokenSource(StaticToken("tok")))

	missing := filepath.Join(t.TempDir(), "gone.jpg")
	car := listing.NewCar()
	_ = car.SetMedia("photos", []string{missing})
	err := client.Create(context.Background(), Payload{
		Entity:  car,
		Uploads: []Upload{{Slot: "photos", Path: missing, Name: "gone.jpg"}},
	})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no request, got %d", hits.Load())
	}
}

func TestCreate_WithoutTokenSendsNothing(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	err := client.Create(context.Background(), Payload{Entity: listing.NewCar(), Encoding: EncodingJSON})
	if !IsAuthExpired(err) {
		t.Fatalf("expected auth expired, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no request, got %d", hits.Load())
	}
}

func TestErrors_ClassifiedByStatusAndBody(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
		fields  map[string][]string
	}{
		{"unauthorized status", http.StatusUnauthorized, `{}`, KindAuthExpired, "Not Authorized", nil},
		{"not authorized body", http.StatusForbidden, `{"message":"Not Authorized"}`, KindAuthExpired, "Not Authorized", nil},
		{"validation list", http.StatusBadRequest, `{"errors":[{"msg":"Phone too short","path":"owner.phone"}]}`, KindValidation, "Phone too short", map[string][]string{"owner.phone": {"Phone too short"}}},
		{"validation message", http.StatusUnprocessableEntity, `{"message":"Title taken"}`, KindValidation, "Title taken", nil},
		{"empty body", http.StatusBadRequest, ``, KindValidation, DefaultErrorMessage, nil},
		{"server", http.StatusInternalServerError, `{"message":"boom"}`, KindServer, "boom", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}, WithTokenSource(StaticToken("tok")))

			err := client.Create(context.Background(), Payload{Entity: listing.NewCar(), Encoding: EncodingJSON})
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Kind != tc.kind || apiErr.Message != tc.message || apiErr.Status != tc.status {
				t.Fatalf("unexpected error %+v", apiErr)
			}
			if diff := cmp.Diff(tc.fields, apiErr.Fields); diff != "" {
				t.Fatalf("fields (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdate_DecorationPathIsConfigurable(t *testing.T) {
	for _, tc := range []struct {
		legacy bool
		path   string
	}{
		{false, "/api/decorations-lists/d1"},
		{true, "/api/cars/d1"},
	} {
		var got string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			got = r.Method + " " + r.URL.Path
			_, _ = io.WriteString(w, `{}`)
		}, WithLegacyDecorUpdatePath(tc.legacy))

		if err := client.Update(context.Background(), "d1", Payload{Entity: listing.NewDecoration()}); err != nil {
			t.Fatalf("update: %v", err)
		}
		if got != "PUT "+tc.path {
			t.Fatalf("legacy=%v: unexpected request %q", tc.legacy, got)
		}
	}
}

func TestDelete_ReportsBackendRefusal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/decor/remove-decorations/d9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"success":false,"message":"locked"}`)
	}, WithTokenSource(StaticToken("tok")))

	_, err := client.Delete(context.Background(), listing.TypeDecoration, "d9")
	if KindOf(err) != KindServer || MessageOf(err) != "locked" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLogin_ReturnsTokenAndRejectsBadCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"success":false,"message":"Invalid password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"token":"jwt-token"}`)
	})

	token, err := client.Login(context.Background(), Credentials{Email: "a@b.c", Password: "secret"})
	if err != nil || token != "jwt-token" {
		t.Fatalf("login: token=%q err=%v", token, err)
	}

	_, err = client.Login(context.Background(), Credentials{Email: "a@b.c", Password: "wrong"})
	if KindOf(err) != KindValidation || MessageOf(err) != "Invalid password" {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNetworkFailureIsTyped(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = client.Get(context.Background(), listing.TypeCar, "c1")
	if KindOf(err) != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestMetrics_CountOutcomes(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"_id":"c1"}`)
	}, WithMetrics(metrics))

	if _, err := client.Get(context.Background(), listing.TypeCar, "c1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := testutil.ToFloat64(metrics.requests.WithLabelValues(OpGetCar, "ok")); got != 1 {
		t.Fatalf("expected one ok request, got %v", got)
	}
}

func TestImageURL(t *testing.T) {
	client, err := New("http://backend.test/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := client.ImageURL("car 1.jpg"); got != "http://backend.test/images/car%201.jpg" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := client.ImageURL("http://cdn/x.jpg"); got != "http://cdn/x.jpg" {
		t.Fatalf("absolute refs must pass through, got %q", got)
	}
}
