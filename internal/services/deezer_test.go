package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
	tu "github.com/desertthunder/deemixkit/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New With Nil Client", func(t *testing.T) {
		srv := NewAPIService("deezer", nil)
		if srv.httpClient != http.DefaultClient {
			t.Error("expected http.DefaultClient to be used")
		}
	})

	t.Run("GetJSON", func(t *testing.T) {
		t.Run("Decodes 2xx Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				w.Write([]byte(`{"title":"Road Trip"}`))
			}))
			defer server.Close()

			var out struct{ Title string }
			if err := NewAPIService("deezer", nil).GetJSON(context.Background(), server.URL, &out); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if out.Title != "Road Trip" {
				t.Errorf("expected title 'Road Trip', got %q", out.Title)
			}
		})

		t.Run("Non-2xx Is Provider Error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(strings.Repeat("x", 500)))
			}))
			defer server.Close()

			err := NewAPIService("deezer", nil).GetJSON(context.Background(), server.URL, &struct{}{})

			var pe *shared.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if pe.Status != http.StatusInternalServerError {
				t.Errorf("expected status 500, got %d", pe.Status)
			}
			if len(pe.Message) > errorSnippetLen+3 {
				t.Errorf("expected truncated message, got %d chars", len(pe.Message))
			}
			if !errors.Is(err, shared.ErrProvider) {
				t.Error("expected errors.Is(err, ErrProvider)")
			}
		})

		t.Run("Invalid JSON Is Parse Error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data": [`))
			}))
			defer server.Close()

			err := NewAPIService("deezer", nil).GetJSON(context.Background(), server.URL, &struct{}{})
			if !errors.Is(err, shared.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})

		t.Run("Transport Failure Is Network Error", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}

			err := NewAPIService("deezer", client).GetJSON(context.Background(), "http://deezer.test/", &struct{}{})
			if !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})

		t.Run("Body Read Failure Is Network Error", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
				StatusCode: http.StatusOK,
				Body:       &tu.FCloser{},
				Header:     http.Header{},
			}, nil)}

			_, err := NewAPIService("deezer", client).Get(context.Background(), "http://deezer.test/")
			if !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})

		t.Run("Canceled Context Is Returned Unwrapped", func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := NewAPIService("deezer", nil).Get(ctx, "http://deezer.test/")
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
			if errors.Is(err, shared.ErrNetwork) {
				t.Error("expected cancellation not to be classified as a network error")
			}
		})
	})
}

func newDeezerTestServer(t *testing.T, handler http.HandlerFunc) (*DeezerCatalog, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewDeezerCatalog(DeezerOpts{BaseURL: server.URL, PageSize: 2, Client: server.Client()}), server
}

func TestDeezerCatalog(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		d := NewDeezerCatalog(DeezerOpts{})
		if d.baseURL != defaultDeezerBaseURL {
			t.Errorf("expected default base URL, got %s", d.baseURL)
		}
		if d.pageSize != defaultDeezerPageSize {
			t.Errorf("expected default page size, got %d", d.pageSize)
		}
		if d.Name() != "Deezer" || d.Provider() != models.ProviderDeezer {
			t.Errorf("unexpected identity %s/%s", d.Name(), d.Provider())
		}
	})

	t.Run("SearchAlbums", func(t *testing.T) {
		t.Run("Maps Results In Order", func(t *testing.T) {
			d, _ := newDeezerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/search/album" {
					t.Errorf("expected path '/search/album', got %s", r.URL.Path)
				}
				if q := r.URL.Query().Get("q"); q != "Metallica Master of Puppets" {
					t.Errorf("expected pinned query, got %q", q)
				}
				if l := r.URL.Query().Get("limit"); l != "5" {
					t.Errorf("expected limit 5, got %q", l)
				}
				w.Write([]byte(`{"data":[
					{"id":123,"title":"Master of Puppets","record_type":"album","artist":{"id":119,"name":"Metallica"}},
					{"id":456,"title":"Master of Puppets (Remastered)","record_type":"compile","artist":{"id":119,"name":"Metallica"}}
				],"total":2}`))
			})

			page, err := d.SearchAlbums(context.Background(), "Metallica Master of Puppets", 5)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(page.Items) != 2 {
				t.Fatalf("expected 2 albums, got %d", len(page.Items))
			}

			first := page.Items[0]
			if first.URL != "https://www.deezer.com/album/123" {
				t.Errorf("expected album URL, got %s", first.URL)
			}
			if first.Artist.ID != "119" || first.Artist.Name != "Metallica" {
				t.Errorf("unexpected artist %+v", first.Artist)
			}
			if page.Items[1].RecordType != models.RecordCompilation {
				t.Errorf("expected 'compile' to map to compilation, got %s", page.Items[1].RecordType)
			}
		})

		t.Run("Empty Results", func(t *testing.T) {
			d, _ := newDeezerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":[],"total":0}`))
			})

			page, err := d.SearchAlbums(context.Background(), "Nonexistent Band Imaginary Album", 5)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(page.Items) != 0 {
				t.Errorf("expected no albums, got %d", len(page.Items))
			}
		})

		t.Run("In-Band Error", func(t *testing.T) {
			d, _ := newDeezerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error":{"type":"Exception","message":"Quota limit exceeded","code":4}}`))
			})

			_, err := d.SearchAlbums(context.Background(), "x", 5)
			if shared.StatusOf(err) != http.StatusTooManyRequests {
				t.Errorf("expected quota error to map to 429, got %v", err)
			}
		})

		t.Run("Missing Data Is Parse Error", func(t *testing.T) {
			d, _ := newDeezerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"total":0}`))
			})

			_, err := d.SearchAlbums(context.Background(), "x", 5)
			if !errors.Is(err, shared.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})

		t.Run("Album Without ID Is Parse Error", func(t *testing.T) {
			d, _ := newDeezerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":[{"title":"Broken"}]}`))
			})

			_, err := d.SearchAlbums(context.Background(), "x", 5)
			if !errors.Is(err, shared.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})

		t.Run("Server Error Carries Status", func(t *testing.T) {
			d, _ := newDeezerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			})

			_, err := d.SearchAlbums(context.Background(), "x", 5)
			if shared.StatusOf(err) != http.StatusBadGateway {
				t.Errorf("expected status 502, got %v", err)
			}
		})
	})

	t.Run("ArtistAlbums", func(t *testing.T) {
		t.Run("Follows Next URL", func(t *testing.T) {
			var serverURL string
			d, server := newDeezerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/artist/119/albums" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				switch r.URL.Query().Get("index") {
				case "":
					if r.URL.Query().Get("limit") != "2" {
						t.Errorf("expected page size 2, got %s", r.URL.Query().Get("limit"))
					}
					fmt.Fprintf(w, `{"data":[{"id":1,"title":"Kill 'Em All","record_type":"album"},{"id":2,"title":"Creeping Death","record_type":"single"}],"next":"%s/artist/119/albums?limit=2&index=2"}`, serverURL)
				case "2":
					w.Write([]byte(`{"data":[{"id":3,"title":"Garage Days","record_type":"ep"}]}`))
				default:
					t.Errorf("unexpected index %s", r.URL.Query().Get("index"))
				}
			})
			serverURL = server.URL

			artist := models.ArtistRef{ID: "119", Name: "Metallica"}
			first, err := d.ArtistAlbums(context.Background(), artist, "")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if first.Last() {
				t.Fatal("expected a next cursor on the first page")
			}
			if first.Items[0].Artist != artist {
				t.Errorf("expected fallback artist %+v, got %+v", artist, first.Items[0].Artist)
			}

			second, err := d.ArtistAlbums(context.Background(), artist, first.Next)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !second.Last() {
				t.Errorf("expected last page, got next %q", second.Next)
			}
			if len(second.Items) != 1 || second.Items[0].RecordType != models.RecordEP {
				t.Errorf("unexpected second page %+v", second.Items)
			}
		})

		t.Run("Unknown Artist", func(t *testing.T) {
			d, _ := newDeezerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error":{"type":"DataException","message":"no data","code":800}}`))
			})

			_, err := d.ArtistAlbums(context.Background(), models.ArtistRef{ID: "0"}, "")
			if !errors.Is(err, shared.ErrProvider) || shared.StatusOf(err) != http.StatusNotFound {
				t.Errorf("expected 404 provider error, got %v", err)
			}
		})
	})

	t.Run("Playlist", func(t *testing.T) {
		t.Run("Returns Title", func(t *testing.T) {
			d, _ := newDeezerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/playlist/908622995" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(`{"id":908622995,"title":"Road Trip"}`))
			})

			pl, err := d.Playlist(context.Background(), "908622995")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pl.Name != "Road Trip" || pl.Provider != models.ProviderDeezer {
				t.Errorf("unexpected playlist %+v", pl)
			}
		})

		t.Run("In-Band Error", func(t *testing.T) {
			d, _ := newDeezerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error":{"type":"DataException","message":"no data","code":800}}`))
			})

			if _, err := d.Playlist(context.Background(), "1"); shared.StatusOf(err) != http.StatusNotFound {
				t.Errorf("expected status 404, got %v", err)
			}
		})
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		d, _ := newDeezerTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlist/42/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"data":[
				{"id":10,"title":"Battery","artist":{"id":119,"name":"Metallica"},"album":{"id":123,"title":"Master of Puppets","record_type":"album"}},
				{"id":11,"title":"Orphan","artist":{"id":1,"name":"Nobody"}},
				{"id":12,"title":"Raining Blood","artist":{"id":2,"name":"Slayer"},"album":{"id":789,"title":"Reign in Blood","artist":{"id":2,"name":"Slayer"}}}
			]}`))
		})

		page, err := d.PlaylistTracks(context.Background(), "42", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(page.Items) != 2 {
			t.Fatalf("expected track without album to be skipped, got %d tracks", len(page.Items))
		}

		battery := page.Items[0]
		if battery.Album.URL != "https://www.deezer.com/album/123" {
			t.Errorf("unexpected album URL %s", battery.Album.URL)
		}
		if battery.Album.Artist.Name != "Metallica" {
			t.Errorf("expected album artist to fall back to track artist, got %q", battery.Album.Artist.Name)
		}
		if page.Items[1].Album.RecordType != models.RecordUnknown {
			t.Errorf("expected missing record type to be unknown, got %s", page.Items[1].Album.RecordType)
		}
	})
}
