// Package detector classifies the appointment page into availability outcomes.
package detector

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JakeFAU/slotwatcher/internal/watcher"
)

// DefaultMinBytes is the smallest body considered a fully rendered appointment page.
const DefaultMinBytes = 5000

// Default phrase sets, matched against the lowercased body.
var (
	DefaultNegativePhrases  = []string{"en este momento no hay citas disponibles"}
	DefaultAmbiguousPhrases = []string{"no hay citas"}
	DefaultErrorMarkers     = []string{"error 404", "página no encontrada"}
	DefaultSelectionMarkers = []string{"seleccione", "elegir fecha", "calendario", "horario disponible"}
)

// Config controls the phrase sets and size threshold used by the Heuristic.
type Config struct {
	MinBytes         int
	NegativePhrases  []string
	AmbiguousPhrases []string
	ErrorMarkers     []string
	RequiredMarkers  []string
	SelectionMarkers []string
}

// Heuristic implements watcher.Classifier with ordered substring rules.
type Heuristic struct {
	minBytes  int
	negative  []string
	ambiguous []string
	errors    []string
	required  []string
	selection []string
}

// NewHeuristic creates a classifier, filling unset fields with the defaults.
func NewHeuristic(cfg Config) *Heuristic {
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = DefaultMinBytes
	}
	if len(cfg.NegativePhrases) == 0 {
		cfg.NegativePhrases = DefaultNegativePhrases
	}
	if cfg.AmbiguousPhrases == nil {
		cfg.AmbiguousPhrases = DefaultAmbiguousPhrases
	}
	if cfg.ErrorMarkers == nil {
		cfg.ErrorMarkers = DefaultErrorMarkers
	}
	if cfg.SelectionMarkers == nil {
		cfg.SelectionMarkers = DefaultSelectionMarkers
	}
	return &Heuristic{
		minBytes:  cfg.MinBytes,
		negative:  lowerAll(cfg.NegativePhrases),
		ambiguous: lowerAll(cfg.AmbiguousPhrases),
		errors:    lowerAll(cfg.ErrorMarkers),
		required:  lowerAll(cfg.RequiredMarkers),
		selection: lowerAll(cfg.SelectionMarkers),
	}
}

// Classify decides availability from the page text. The negative phrase wins over
// every other signal; anything short of a large 200 page is treated as "no".
func (h *Heuristic) Classify(page watcher.Page) watcher.Result {
	size := page.Size
	if size == 0 {
		size = len(page.Body)
	}
	res := watcher.Result{StatusCode: page.StatusCode, Size: size}
	text := strings.ToLower(string(page.Body))

	switch {
	case containsAny(text, h.negative):
		res.Outcome = watcher.OutcomeUnavailable
		res.Detail = fmt.Sprintf("No hay citas (HTTP %d, %d bytes)", page.StatusCode, size)
	case containsAny(text, h.errors) || page.StatusCode != http.StatusOK:
		res.Outcome = watcher.OutcomeError
		res.Detail = fmt.Sprintf("Página de error (HTTP %d, %d bytes)", page.StatusCode, size)
	case size < h.minBytes:
		res.Outcome = watcher.OutcomeUnavailable
		res.Detail = fmt.Sprintf("Página demasiado chica (HTTP %d, %d bytes)", page.StatusCode, size)
	case containsAny(text, h.ambiguous):
		res.Outcome = watcher.OutcomeUnknown
		res.Detail = fmt.Sprintf("Estado desconocido (HTTP %d, %d bytes)", page.StatusCode, size)
	case !containsAll(text, h.required):
		res.Outcome = watcher.OutcomeUnknown
		res.Detail = fmt.Sprintf("Estado desconocido (HTTP %d, %d bytes)", page.StatusCode, size)
	case containsAny(text, h.selection):
		res.Outcome = watcher.OutcomeAvailable
		res.Detail = "¡TURNOS DETECTADOS! - Hay opciones de selección"
	default:
		res.Outcome = watcher.OutcomeAvailable
		res.Detail = "¡POSIBLES TURNOS! - Página cambió"
	}
	return res
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func containsAll(text string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && !strings.Contains(text, p) {
			return false
		}
	}
	return true
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
