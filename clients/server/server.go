// Package server provides the SignStencil web editor and HTTP API.
package server

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xob0t/signstencil/pkg/colors"
	"github.com/xob0t/signstencil/pkg/config"
	"github.com/xob0t/signstencil/pkg/generator"
	"github.com/xob0t/signstencil/pkg/render"
	"github.com/xob0t/signstencil/pkg/template"
)

//go:embed web/*
var webContent embed.FS

// MaxUpload bounds uploaded and posted images.
const MaxUpload = 20 << 20

// ── Server ──

// Server serves the API over one loaded runtime.
type Server struct {
	rt       *config.Runtime
	assets   *assetManager
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// New returns a server rendering with rt.
func New(rt *config.Runtime, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		rt:     rt,
		assets: newAssetManager(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1 << 16,
		},
		log: log,
	}
}

// Handler returns the routed API and embedded web UI.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/render", s.handleRender)
	mux.HandleFunc("POST /api/trace", s.handleTrace)
	mux.HandleFunc("POST /api/palette", s.handlePalette)
	mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	mux.HandleFunc("GET /api/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("POST /api/upload/image", s.handleUploadImage)
	mux.HandleFunc("GET /api/assets", s.handleListAssets)
	mux.HandleFunc("GET /api/assets/{id}", s.handleGetAsset)
	mux.HandleFunc("DELETE /api/assets/{id}", s.handleDeleteAsset)
	mux.HandleFunc("GET /api/live", s.handleLive)

	webFS, err := fs.Sub(webContent, "web")
	if err != nil {
		panic(err) // embedded at build time
	}
	mux.Handle("/", http.FileServer(http.FS(webFS)))

	return s.logRequests(mux)
}

// Run serves on addr until ctx is cancelled.
func Run(ctx context.Context, addr string, rt *config.Runtime, log *slog.Logger, open bool) error {
	s := New(rt, log)
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	url := "http://localhost" + addr
	if host, port, err := net.SplitHostPort(addr); err == nil && host != "" {
		url = "http://" + net.JoinHostPort(host, port)
	}
	s.log.Info("SignStencil UI", "url", url, "templates", rt.Catalog.Len(), "backend", rt.Renderer.Backend().Name())
	if open {
		go openBrowser(url)
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdown)
	}
}

// ── Render ──

// renderRequest is the JSON form of a render. Multipart requests carry
// the same fields as form values, with the photo in the "image" part.
type renderRequest struct {
	Asset       string                `json:"asset"`
	Template    string                `json:"template"`
	Texts       template.Texts        `json:"texts"`
	Adjustments *template.Adjustments `json:"adjustments,omitempty"`
	Format      string                `json:"format,omitempty"` // png, jpg or bmp
}

// renderJob is a request with its references resolved.
type renderJob struct {
	img  image.Image
	spec *template.Spec
	tx   template.Texts
	adj  template.Adjustments
	ext  string
}

// requestError is reported to the client as 4xx.
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, err: fmt.Errorf(format, args...)}
}

// parseRequest reads a JSON or multipart render request.
func (s *Server) parseRequest(r *http.Request) (renderRequest, image.Image, error) {
	var req renderRequest
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := json.NewDecoder(io.LimitReader(r.Body, MaxUpload)).Decode(&req); err != nil {
			return req, nil, badRequest("decode request: %v", err)
		}
		return req, nil, nil
	}

	if err := r.ParseMultipartForm(MaxUpload); err != nil {
		return req, nil, badRequest("parse form: %v", err)
	}
	req.Asset = r.FormValue("asset")
	req.Template = r.FormValue("template")
	req.Format = r.FormValue("format")
	if v := r.FormValue("texts"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Texts); err != nil {
			return req, nil, badRequest("texts: %v", err)
		}
	}
	if v := r.FormValue("adjustments"); v != "" {
		adj := template.DefaultAdjustments()
		if err := json.Unmarshal([]byte(v), &adj); err != nil {
			return req, nil, badRequest("adjustments: %v", err)
		}
		req.Adjustments = &adj
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, badRequest("image: %v", err)
	}
	defer file.Close()
	img, _, err := generator.Decode(file)
	if err != nil {
		return req, nil, badRequest("image: %v", err)
	}
	return req, img, nil
}

// resolve looks up the template and photo of req. An uploaded image wins
// over an asset reference.
func (s *Server) resolve(req renderRequest, img image.Image) (*renderJob, error) {
	if img == nil {
		if req.Asset == "" {
			return nil, badRequest("no image: upload one or pass an asset id")
		}
		a, ok := s.assets.get(req.Asset)
		if !ok {
			return nil, &requestError{status: http.StatusNotFound, err: fmt.Errorf("asset %q not found", req.Asset)}
		}
		img = a.Img
	}

	spec, err := s.rt.Catalog.Get(req.Template)
	if err != nil {
		return nil, &requestError{status: http.StatusNotFound, err: err}
	}

	ext := "." + strings.TrimPrefix(strings.ToLower(req.Format), ".")
	if req.Format == "" {
		ext = ".png"
	}
	if !generator.Supported(ext) {
		return nil, badRequest("format %q: %v", req.Format, generator.ErrUnsupportedFormat)
	}

	adj := template.DefaultAdjustments()
	if req.Adjustments != nil {
		adj = *req.Adjustments
	}
	return &renderJob{img: img, spec: spec, tx: req.Texts, adj: adj, ext: ext}, nil
}

func (s *Server) renderTo(ctx context.Context, w io.Writer, job *renderJob) error {
	img, err := s.rt.Renderer.Render(ctx, job.img, job.spec, job.tx, job.adj)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return generator.GenerateToWriter(w, job.ext, generator.Config{Image: img})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, img, err := s.parseRequest(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	job, err := s.resolve(req, img)
	if err != nil {
		s.fail(w, err)
		return
	}

	var buf bytes.Buffer
	if err := s.renderTo(r.Context(), &buf, job); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", generator.ContentType(job.ext))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s%s"`, job.spec.ID, job.ext))
	w.Write(buf.Bytes())
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	req, img, err := s.parseRequest(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	job, err := s.resolve(req, img)
	if err != nil {
		s.fail(w, err)
		return
	}
	_, trace, err := s.rt.Renderer.RenderWithTrace(r.Context(), job.img, job.spec, job.tx, job.adj)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, trace)
}

// ── Palette ──

type paletteResponse struct {
	Dominant []colors.RGB   `json:"dominant"`
	Light    colors.RGB     `json:"light"`
	Dark     colors.RGB     `json:"dark"`
	Auto     render.Palette `json:"auto"`
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	req, img, err := s.parseRequest(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	if img == nil {
		a, ok := s.assets.get(req.Asset)
		if !ok {
			s.fail(w, badRequest("no image: upload one or pass an asset id"))
			return
		}
		img = a.Img
	}
	k, _ := strconv.Atoi(r.URL.Query().Get("k"))
	if k <= 0 {
		k = 5
	}
	writeJSON(w, paletteInfo(img, k))
}

func paletteInfo(img image.Image, k int) paletteResponse {
	ex := colors.ExtractExtremes(img, img.Bounds())
	dom := colors.ExtractDominantColors(img, k, img.Bounds())
	if dom == nil {
		dom = []colors.RGB{}
	}
	return paletteResponse{Dominant: dom, Light: ex.Light, Dark: ex.Dark, Auto: render.AutoPalette(img)}
}

// ── Templates ──

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.rt.Catalog.List())
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	spec, err := s.rt.Catalog.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, &requestError{status: http.StatusNotFound, err: err})
		return
	}
	writeJSON(w, spec)
}

// ── Upload ──

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUpload); err != nil {
		s.fail(w, badRequest("parse form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, badRequest("no file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUpload))
	if err != nil {
		s.fail(w, err)
		return
	}
	a, err := s.assets.add(header.Filename, data)
	if err != nil {
		s.fail(w, badRequest("%v", err))
		return
	}
	s.log.Info("image uploaded", "asset", a.ID, "name", a.Name)
	writeJSONStatus(w, http.StatusCreated, a.info())
}

// ── Asset serving ──

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.assets.get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.Mime)
	w.Write(a.Data)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.assets.listAll())
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.assets.remove(id) {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted", "id": id})
}

// ── Helpers ──

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var re *requestError
	switch {
	case errors.As(err, &re):
		status = re.status
	case errors.Is(err, render.ErrNoImage), errors.Is(err, render.ErrNoTemplate):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return
	}
	if status >= 500 {
		s.log.Error("request failed", "err", err)
	}
	http.Error(w, err.Error(), status)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			s.log.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(start))
		}
	})
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	cmd.Start()
}
