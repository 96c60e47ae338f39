package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/audiogated/audiogated/internal/fingerprint"
	"github.com/audiogated/audiogated/internal/log"
	"github.com/audiogated/audiogated/internal/params"
	"github.com/audiogated/audiogated/internal/signature"
	"github.com/audiogated/audiogated/internal/urlgrammar"
)

// parseAndVerify runs the shared prefix of the process/preview pipelines
// (spec §4.1, §4.2, §4.3): split the request target, validate params,
// compute the canonical string, and verify the signature against it.
func (s *Server) parseAndVerify(r *http.Request, preview bool) (urlgrammar.ParsedRequest, params.AudioProcessingParams, error) {
	pathAfterSig := chi.URLParam(r, "*")

	parsed, err := urlgrammar.Parse(preview, pathAfterSig, r.URL.RawQuery)
	if err != nil {
		return urlgrammar.ParsedRequest{}, params.AudioProcessingParams{}, err
	}

	p, err := params.Parse(parsed.Query, s.paramOpts)
	if err != nil {
		return parsed, params.AudioProcessingParams{}, err
	}

	normalizedURI := fingerprint.NormalizeSourceURI(parsed.SourceURIRaw)
	canonical := params.Canonical(normalizedURI, p)

	if err := signature.Verify(parsed.Signature, canonical, []byte(s.cfg.HMACSecret), s.cfg.AllowUnsafe); err != nil {
		return parsed, params.AudioProcessingParams{}, err
	}

	return parsed, p, nil
}

// handleProcess implements GET /<sig>/<audio-uri>[?params] (spec §4.10).
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	parsed, p, err := s.parseAndVerify(r, false)
	if err != nil {
		respondError(w, r, "process", err)
		return
	}
	if len(p.Tags) > 0 {
		log.WithComponent("api").Debug().
			Str("request_id", log.RequestIDFromContext(r.Context())).
			Interface("tags", log.RedactTags(p.Tags)).
			Msg("processing request with metadata tags")
	}

	result, err := s.proc.Process(r.Context(), parsed.SourceURIRaw, p)
	if err != nil {
		respondError(w, r, "process", err)
		return
	}

	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("X-Cache", result.CacheStatus)
	w.Header().Set("X-Fingerprint", result.Fingerprint.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// previewResponse embeds the parsed params alongside the source audio
// reference (spec §8 literal scenario: `{"audio":"...", "reverse":true, ...}`).
type previewResponse struct {
	Audio string `json:"audio"`
	params.AudioProcessingParams
}

// handlePreview implements GET /params/<sig>/<audio-uri>[?params]: the
// signature gate runs identically to handleProcess, but the response is
// the parsed params instead of processed audio (spec §4.10).
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	parsed, p, err := s.parseAndVerify(r, true)
	if err != nil {
		respondError(w, r, "preview", err)
		return
	}
	respondJSON(w, http.StatusOK, previewResponse{Audio: parsed.SourceURIRaw, AudioProcessingParams: p})
}

// handleHealth implements GET /health (spec §6.1 domain expansion):
// degraded-mode reporting bounded by one short timeout shared by all
// backend probes, so stalled dependencies cannot hang the health check
// itself.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	status := "ok"
	checks := map[string]string{}

	probe := func(name string, v any) {
		if hc, ok := v.(HealthChecker); ok {
			if err := hc.HealthCheck(ctx); err != nil {
				checks[name] = "degraded: " + err.Error()
				status = "degraded"
				return
			}
		}
		checks[name] = "ok"
	}

	probe("cache", s.cacheStore)
	probe("source", s.loader)
	if s.resultStore != nil {
		probe("result_store", s.resultStore)
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// supportedFormats lists the output formats that have a known
// Content-Type mapping (spec §6.1 domain expansion "/formats"). The
// `format` parameter itself is not restricted to this list.
var supportedFormats = []string{"mp3", "wav", "ogg", "flac", "aac", "m4a", "opus"}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"formats": supportedFormats})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, openAPIDocument)
}
