package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xob0t/signstencil/pkg/config"
	"github.com/xob0t/signstencil/pkg/generator"
	"github.com/xob0t/signstencil/pkg/template"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	rt, err := config.Open(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(rt.Close)
	s := New(rt, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func photoPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := generator.NewSplitImage(w, h, color.RGBA{230, 220, 200, 255}, color.RGBA{30, 40, 60, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func upload(t *testing.T, ts *httptest.Server, data []byte) assetInfo {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "shop.png")
	fw.Write(data)
	mw.Close()

	res, err := http.Post(ts.URL+"/api/upload/image", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(res.Body)
		t.Fatalf("upload status %d: %s", res.StatusCode, msg)
	}
	var info assetInfo
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	return info
}

func postJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(v)
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestListTemplates(t *testing.T) {
	_, ts := newTestServer(t)
	res, err := http.Get(ts.URL + "/api/templates")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	var specs []template.Spec
	if err := json.NewDecoder(res.Body).Decode(&specs); err != nil {
		t.Fatal(err)
	}
	if len(specs) != len(template.Builtin()) {
		t.Errorf("got %d templates", len(specs))
	}
}

func TestGetTemplate(t *testing.T) {
	_, ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/api/templates/caixa-de-info")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status %d", res.StatusCode)
	}

	res, err = http.Get(ts.URL + "/api/templates/caixa-de-inf")
	if err != nil {
		t.Fatal(err)
	}
	msg, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound || !strings.Contains(string(msg), "caixa-de-info") {
		t.Errorf("status %d body %q, want 404 with a suggestion", res.StatusCode, msg)
	}
}

func TestUploadAndRender(t *testing.T) {
	_, ts := newTestServer(t)
	info := upload(t, ts, photoPNG(t, 600, 400))
	if info.Width != 600 || info.Mime != "image/png" || info.ID == "" {
		t.Fatalf("asset = %+v", info)
	}

	res := postJSON(t, ts.URL+"/api/render", renderRequest{
		Asset:    info.ID,
		Template: "slogan-inferior",
		Texts:    template.Texts{Title: "Feira Livre", Subtitle: "todo sabado"},
	})
	if res.StatusCode != http.StatusOK || res.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("status %d type %s", res.StatusCode, res.Header.Get("Content-Type"))
	}
	img, err := png.Decode(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 600, 400) {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestRenderMultipart(t *testing.T) {
	_, ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("template", "tarja-superior-solida")
	mw.WriteField("texts", `{"title":"Oficina"}`)
	mw.WriteField("adjustments", `{"palette":"light"}`)
	mw.WriteField("format", "jpg")
	fw, _ := mw.CreateFormFile("image", "shop.png")
	fw.Write(photoPNG(t, 300, 200))
	mw.Close()

	res, err := http.Post(ts.URL+"/api/render", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK || res.Header.Get("Content-Type") != "image/jpeg" {
		t.Fatalf("status %d type %s", res.StatusCode, res.Header.Get("Content-Type"))
	}
}

func TestRenderErrors(t *testing.T) {
	_, ts := newTestServer(t)
	info := upload(t, ts, photoPNG(t, 100, 100))

	tests := []struct {
		name   string
		req    renderRequest
		status int
	}{
		{"no image", renderRequest{Template: "caixa-de-info"}, http.StatusBadRequest},
		{"missing asset", renderRequest{Asset: "nope", Template: "caixa-de-info"}, http.StatusNotFound},
		{"unknown template", renderRequest{Asset: info.ID, Template: "nope"}, http.StatusNotFound},
		{"bad format", renderRequest{Asset: info.ID, Template: "caixa-de-info", Format: "avi"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := postJSON(t, ts.URL+"/api/render", tt.req); res.StatusCode != tt.status {
				t.Errorf("status %d, want %d", res.StatusCode, tt.status)
			}
		})
	}
}

func TestTrace(t *testing.T) {
	_, ts := newTestServer(t)
	info := upload(t, ts, photoPNG(t, 1200, 600))

	res := postJSON(t, ts.URL+"/api/trace", renderRequest{
		Asset:    info.ID,
		Template: "telefone-destaque",
		Texts:    template.Texts{Title: "Bella"},
	})
	var trace struct {
		Width  int `json:"width"`
		Shapes []struct {
			ID string `json:"id"`
		} `json:"shapes"`
		Texts []struct {
			Slot    string `json:"slot"`
			Skipped string `json:"skipped"`
		} `json:"texts"`
	}
	if err := json.NewDecoder(res.Body).Decode(&trace); err != nil {
		t.Fatal(err)
	}
	if trace.Width != 1200 || len(trace.Shapes) != 1 || trace.Shapes[0].ID != template.PhoneShapeID {
		t.Errorf("trace = %+v", trace)
	}
	for _, tt := range trace.Texts {
		if tt.Slot == "phone" && tt.Skipped != "empty" {
			t.Errorf("phone = %+v", tt)
		}
	}
}

func TestPalette(t *testing.T) {
	_, ts := newTestServer(t)
	info := upload(t, ts, photoPNG(t, 200, 100))

	res := postJSON(t, ts.URL+"/api/palette?k=3", renderRequest{Asset: info.ID})
	var pal struct {
		Dominant []string `json:"dominant"`
		Light    string   `json:"light"`
		Dark     string   `json:"dark"`
	}
	if err := json.NewDecoder(res.Body).Decode(&pal); err != nil {
		t.Fatal(err)
	}
	if len(pal.Dominant) != 2 || !strings.EqualFold(pal.Light, "#e6dcc8") || !strings.EqualFold(pal.Dark, "#1e283c") {
		t.Errorf("palette = %+v", pal)
	}
}

func TestAssetLifecycle(t *testing.T) {
	_, ts := newTestServer(t)
	data := photoPNG(t, 50, 50)
	info := upload(t, ts, data)

	res, _ := http.Get(ts.URL + info.URL)
	got, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if !bytes.Equal(got, data) {
		t.Error("asset bytes differ")
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+info.URL, nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("delete status %d", res.StatusCode)
	}
	res, _ = http.Get(ts.URL + info.URL)
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("after delete status %d", res.StatusCode)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	_, ts := newTestServer(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "notes.txt")
	fw.Write([]byte("not an image"))
	mw.Close()

	res, err := http.Post(ts.URL+"/api/upload/image", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d", res.StatusCode)
	}
}

func TestIndexServed(t *testing.T) {
	_, ts := newTestServer(t)
	res, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if !strings.Contains(string(body), "SignStencil") {
		t.Error("index page not served")
	}
}

func TestLiveSessionGenerations(t *testing.T) {
	var l liveSession
	ctx1, g1 := l.begin(context.Background())
	if !l.current(g1) {
		t.Fatal("first generation should be current")
	}
	_, g2 := l.begin(context.Background())
	if l.current(g1) || !l.current(g2) || g2 != g1+1 {
		t.Errorf("generations %d, %d", g1, g2)
	}
	select {
	case <-ctx1.Done():
	default:
		t.Error("superseded render was not cancelled")
	}
	l.stop()
}

func TestLiveSessionDeliverSkipsStale(t *testing.T) {
	var l liveSession
	_, g1 := l.begin(context.Background())
	_, g2 := l.begin(context.Background())

	var written []uint64
	send := func(gen uint64) func() error {
		return func() error { written = append(written, gen); return nil }
	}
	if sent, err := l.deliver(g2, send(g2)); !sent || err != nil {
		t.Fatalf("deliver(current) = %v, %v", sent, err)
	}
	if sent, _ := l.deliver(g1, send(g1)); sent {
		t.Error("stale generation was delivered")
	}
	if len(written) != 1 || written[0] != g2 {
		t.Errorf("written = %v, want only %d", written, g2)
	}

	wantErr := errors.New("closed")
	if _, err := l.deliver(g2, func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("err = %v", err)
	}
	l.stop()
}

func TestLivePreview(t *testing.T) {
	_, ts := newTestServer(t)
	info := upload(t, ts, photoPNG(t, 400, 300))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(renderRequest{Asset: info.ID, Template: "caixa-de-info", Texts: template.Texts{Title: "Ao vivo"}}); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	var msg liveMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "frame" || msg.Generation != 1 {
		t.Fatalf("message = %+v", msg)
	}
	data, err := base64.StdEncoding.DecodeString(msg.PNG)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 400 {
		t.Errorf("frame width %d", img.Bounds().Dx())
	}

	conn.WriteJSON(renderRequest{Asset: info.ID, Template: "nope"})
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "error" || msg.Generation != 2 {
		t.Errorf("message = %+v", msg)
	}
}
