package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"image"
	"image/color"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/user/slidegate/internal/storage"
)

const (
	canvasWidth  = 300
	canvasHeight = 60
	notchWidth   = 30
	handleWidth  = 40
	// tolerance is how far, in CSS pixels, the handle center may land from
	// the notch center.
	tolerance = 6
)

// Challenge is one slider puzzle. Coordinates are CSS pixels relative to
// the canvas left edge.
type Challenge struct {
	ID       string
	NotchX   int
	NotchY   int
	Solved   bool
	Attempts int
}

// NotchCenter is where the handle center has to be released.
func (c *Challenge) NotchCenter() float64 {
	return float64(c.NotchX) + notchWidth/2
}

type server struct {
	mu         sync.Mutex
	rng        *rand.Rand
	challenges map[string]*Challenge
	store      *storage.Store
	scale      int
}

func newServer(store *storage.Store, seed int64, scale int) *server {
	if scale < 1 {
		scale = 1
	}
	return &server{
		rng:        rand.New(rand.NewSource(seed)),
		challenges: map[string]*Challenge{},
		store:      store,
		scale:      scale,
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", logRequest(s.handleGate))
	mux.HandleFunc("/challenge/", logRequest(s.handleImage))
	mux.HandleFunc("/verify", logRequest(s.handleVerify))
	mux.HandleFunc("/api/verifications", logRequest(s.handleVerifications))
	return mux
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dbPath := flag.String("db", "./slidegate.db", "sqlite database for verification records")
	seed := flag.Int64("seed", time.Now().UnixNano(), "notch placement seed")
	scale := flag.Int("scale", 2, "image pixels per CSS pixel of the slider canvas")
	flag.Parse()

	store, err := storage.New(*dbPath)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer store.Close()

	s := newServer(store, *seed, *scale)
	fmt.Printf("Simulated slider challenge running on http://localhost%s\n", *addr)
	log.Fatal(http.ListenAndServe(*addr, s.routes()))
}

func logRequest(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[%s] %s %s", r.RemoteAddr, r.Method, r.URL.Path)
		h(w, r)
	}
}

// newChallenge places the notch clear of the handle start position and
// close enough to the right end that the handle can still reach it.
func (s *server) newChallenge() *Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	minX := handleWidth + 20
	c := &Challenge{
		ID:     uuid.NewString(),
		NotchX: minX + s.rng.Intn(canvasWidth-notchWidth-minX-10),
		NotchY: 10 + s.rng.Intn(canvasHeight-notchWidth-10),
	}
	s.challenges[c.ID] = c
	return c
}

func (s *server) challenge(id string) (*Challenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	return c, ok
}

func (s *server) handleGate(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	c := s.newChallenge()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pageTemplate.Execute(w, map[string]interface{}{
		"ID":           c.ID,
		"CanvasWidth":  canvasWidth,
		"CanvasHeight": canvasHeight,
		"HandleWidth":  handleWidth,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// renderChallenge draws a white canvas with a dark square notch.
func renderChallenge(c *Challenge, scale int) *image.NRGBA {
	img := imaging.New(canvasWidth*scale, canvasHeight*scale, color.White)
	notch := imaging.New(notchWidth*scale, notchWidth*scale, color.NRGBA{60, 60, 60, 255})
	return imaging.Paste(img, notch, image.Pt(c.NotchX*scale, c.NotchY*scale))
}

func (s *server) handleImage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/challenge/"), ".png")
	c, ok := s.challenge(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := imaging.Encode(w, renderChallenge(c, s.scale), imaging.PNG); err != nil {
		log.Printf("encode challenge %s: %v", id, err)
	}
}

type verifyResult struct {
	Passed   bool    `json:"passed"`
	Distance float64 `json:"distance"`
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	c, ok := s.challenge(r.FormValue("id"))
	if !ok {
		http.Error(w, "Challenge not found", http.StatusNotFound)
		return
	}
	x, err := strconv.ParseFloat(r.FormValue("x"), 64)
	if err != nil {
		http.Error(w, "Missing or invalid x", http.StatusBadRequest)
		return
	}

	dist := math.Abs(x - c.NotchCenter())
	passed := dist <= tolerance

	s.mu.Lock()
	c.Attempts++
	c.Solved = c.Solved || passed
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.RecordVerification(c.ID, c.NotchCenter(), x, passed); err != nil {
			log.Printf("record verification: %v", err)
		}
	}
	log.Printf("challenge %s: release at %.1f, notch at %.1f, passed=%t", c.ID, x, c.NotchCenter(), passed)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verifyResult{Passed: passed, Distance: dist})
}

func (s *server) handleVerifications(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "No store", http.StatusServiceUnavailable)
		return
	}
	vs, err := s.store.GetVerifications(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vs)
}

var pageTemplate = template.Must(template.New("gate").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Checking your browser</title>
<style>
  body { font-family: sans-serif; margin: 0; min-height: 1400px; background: #f4f4f4; }
  .cf-box { position: absolute; top: 380px; left: 560px; width: 320px; padding: 10px; background: #fff; border: 1px solid #ddd; }
  .cf-button__logo { display: inline-block; padding: 12px 20px; background: #f38020; color: #fff; cursor: pointer; user-select: none; }
  .cf-slide { display: none; margin-top: 12px; }
  .cf-slide__canvas { display: block; width: {{.CanvasWidth}}px; height: {{.CanvasHeight}}px; }
  .cf-slider__track { position: relative; width: {{.CanvasWidth}}px; height: 30px; margin-top: 8px; background: #e6e6e6; }
  .cf-slider__button { position: absolute; left: 0; top: 0; width: {{.HandleWidth}}px; height: 30px; background: #2c7be5; cursor: grab; }
  .cf-result { margin-top: 8px; height: 18px; }
</style>
</head>
<body>
<div class="cf-box">
  <div class="cf-button__logo" id="gate">Verify you are human</div>
  <div class="cf-slide" id="slide">
    <img class="cf-slide__canvas" id="canvas" src="/challenge/{{.ID}}.png" alt="">
    <div class="cf-slider__track"><div class="cf-slider__button" id="handle"></div></div>
    <div class="cf-result" id="result"></div>
  </div>
</div>
<script>
(function () {
  var id = "{{.ID}}";
  var gate = document.getElementById("gate");
  var slide = document.getElementById("slide");
  var handle = document.getElementById("handle");
  var canvas = document.getElementById("canvas");
  var result = document.getElementById("result");
  var max = {{.CanvasWidth}} - {{.HandleWidth}};
  var dragging = false, grabX = 0, left = 0;

  gate.addEventListener("click", function () { slide.style.display = "block"; });

  handle.addEventListener("mousedown", function (e) {
    dragging = true;
    grabX = e.clientX - left;
    e.preventDefault();
  });
  document.addEventListener("mousemove", function (e) {
    if (!dragging) return;
    left = Math.max(0, Math.min(max, e.clientX - grabX));
    handle.style.left = left + "px";
  });
  document.addEventListener("mouseup", function () {
    if (!dragging) return;
    dragging = false;
    var h = handle.getBoundingClientRect(), c = canvas.getBoundingClientRect();
    var x = h.left + h.width / 2 - c.left;
    fetch("/verify", {
      method: "POST",
      headers: { "Content-Type": "application/x-www-form-urlencoded" },
      body: "id=" + encodeURIComponent(id) + "&x=" + x
    }).then(function (r) { return r.json(); }).then(function (res) {
      result.textContent = res.passed ? "Verified" : "Try again";
    });
  });
})();
</script>
</body>
</html>
`))
