package sigss

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"golang.org/x/text/encoding/charmap"
)

func testWindow() (time.Time, time.Time) {
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return to.AddDate(-1, 0, 0), to
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "JSESSIONID=abc", 5*time.Second, zerolog.Nop()), srv
}

func TestFetchNoteText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/common/queryStrToParamHash", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Cookie") != "JSESSIONID=abc" {
			t.Error("expected session cookie forwarded")
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.HasPrefix(string(body), "paramString=") {
			t.Errorf("expected paramString body, got %q", body)
		}
		if !strings.Contains(string(body), "dataInicial%3D01%2F06%2F2023") {
			t.Errorf("expected DD/MM/YYYY start date in body, got %q", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"string":"HASH123"}`))
	})
	mux.HandleFunc("/prontuarioAmbulatorial2.jsp", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("paramHash") != "HASH123" {
			t.Errorf("expected paramHash, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		w.Write([]byte(`<html><head><script>ignored()</script></head><body><div>Consulta básica</div><div>CID - Z00.0</div></body></html>`))
	})
	client, _ := newTestClient(t, mux)

	from, to := testWindow()
	text, err := client.FetchNoteText(context.Background(), "CRYPTO1", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "CID - Z00.0") {
		t.Errorf("expected note text to contain the code line, got %q", text)
	}
	if strings.Contains(text, "ignored") {
		t.Error("script content must not leak into the text")
	}
}

func TestFetchNoteText_SessionExpired(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html>login</html>`))
	}))

	from, to := testWindow()
	_, err := client.FetchNoteText(context.Background(), "CRYPTO1", from, to)
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

func TestFetchNoteText_HashRefused(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"mensagem":"sem permissão"}`))
	}))

	from, to := testWindow()
	_, err := client.FetchNoteText(context.Background(), "CRYPTO1", from, to)
	if err == nil || !strings.Contains(err.Error(), "sem permissão") {
		t.Errorf("expected refusal message, got %v", err)
	}
}

func TestFetchNoteText_Latin1Page(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/common/queryStrToParamHash", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"string":"H"}`))
	})
	mux.HandleFunc("/prontuarioAmbulatorial2.jsp", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		encoded, _ := charmap.ISO8859_1.NewEncoder().String("<body><div>Hipertensão</div></body>")
		w.Write([]byte(encoded))
	})
	client, _ := newTestClient(t, mux)

	from, to := testWindow()
	text, err := client.FetchNoteText(context.Background(), "C", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Hipertensão") {
		t.Errorf("expected Latin-1 text decoded to UTF-8, got %q", text)
	}
}

func TestFetchNoteText_Timeout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"string":"H"}`))
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "", 50*time.Millisecond, zerolog.Nop())

	from, to := testWindow()
	if _, err := client.FetchNoteText(context.Background(), "C", from, to); err == nil {
		t.Error("expected timeout error")
	}
}

func TestHTMLToText_Blocks(t *testing.T) {
	text, err := HTMLToText(strings.NewReader(
		`<table><tr><td>Data</td><td>01/01/2024</td></tr><tr><td>HD</td><td>F41.1</td></tr></table><p>linha</p><br>fim`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 3 {
		t.Errorf("expected block tags to produce line breaks, got %q", text)
	}
	if !strings.Contains(text, "HD F41.1") {
		t.Errorf("expected cell text joined within a row, got %q", text)
	}
}
