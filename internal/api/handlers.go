package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"paisamarket/internal/news"
	"paisamarket/internal/profile"
	"paisamarket/internal/provider"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	req, err := quoteRequest(splitCSV(chi.URLParam(r, "symbol")), r.URL.Query().Get("currency"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.serveMarket(w, r, req)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	req, err := detailRequest(chi.URLParam(r, "symbol"), r.URL.Query().Get("currency"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.serveMarket(w, r, req)
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	req, err := marketsRequest(limit, q.Get("sort"), q.Get("order"), q.Get("currency"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.serveMarket(w, r, req)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := historyRequest(chi.URLParam(r, "symbol"), q.Get("range"), q.Get("currency"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.serveMarket(w, r, req)
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if s.prober == nil {
		s.writeError(w, http.StatusNotFound, "probe is not enabled")
		return
	}
	q := r.URL.Query()
	endpoint := provider.EndpointQuote
	if e := q.Get("endpoint"); e != "" {
		var err error
		if endpoint, err = provider.ParseEndpoint(e); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	symbols := splitCSV(q.Get("symbols"))
	if endpoint != provider.EndpointMarkets {
		if err := checkSymbols(symbols); err != nil {
			s.fail(w, err)
			return
		}
	}
	req := provider.Request{
		Endpoint:  endpoint,
		Symbols:   symbols,
		TimeRange: q.Get("range"),
		Currency:  q.Get("currency"),
	}.Normalize()

	report, err := s.prober.Probe(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Data: report, FetchedAt: time.Now().UTC()})
}

type providersBody struct {
	Profiles   []profile.Profile `json:"profiles"`
	Comparison string            `json:"comparison"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	ps := profile.All()
	text := profile.Comparison(ps)
	if strings.EqualFold(r.URL.Query().Get("format"), "text") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(text))
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Data:      providersBody{Profiles: ps, Comparison: text},
		FetchedAt: time.Now().UTC(),
	})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"))
	if err != nil || limit < 0 || limit > news.MaxLimit {
		s.writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(news.MaxLimit))
		return
	}
	s.serveNews(w, r, news.Query{Q: q.Get("q"), Limit: limit})
}

// proxyRequest is the action/params body accepted by POST /proxy.
type proxyRequest struct {
	Action string      `json:"action"`
	Params proxyParams `json:"params"`
}

type proxyParams struct {
	Symbol   string   `json:"symbol"`
	Symbols  []string `json:"symbols"`
	Limit    int      `json:"limit"`
	Sort     string   `json:"sort"`
	Order    string   `json:"order"`
	Range    string   `json:"range"`
	Q        string   `json:"q"`
	Currency string   `json:"currency"`
}

func (p proxyParams) symbols() []string {
	if len(p.Symbols) > 0 {
		return p.Symbols
	}
	return splitCSV(p.Symbol)
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	var body proxyRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p := body.Params
	var (
		req provider.Request
		err error
	)
	switch strings.ToLower(strings.TrimSpace(body.Action)) {
	case "quote":
		req, err = quoteRequest(p.symbols(), p.Currency)
	case "detail":
		req, err = detailRequest(p.Symbol, p.Currency)
	case "markets":
		req, err = marketsRequest(p.Limit, p.Sort, p.Order, p.Currency)
	case "history":
		req, err = historyRequest(p.Symbol, p.Range, p.Currency)
	case "news":
		if p.Limit < 0 || p.Limit > news.MaxLimit {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(news.MaxLimit))
			return
		}
		s.serveNews(w, r, news.Query{Q: p.Q, Limit: p.Limit})
		return
	case "providers":
		s.handleProviders(w, r)
		return
	case "":
		s.writeError(w, http.StatusBadRequest, "action is required")
		return
	default:
		s.writeError(w, http.StatusBadRequest, "unknown action "+strconv.Quote(body.Action))
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.serveMarket(w, r, req)
}

// serveMarket resolves req through the fallback chain. Quote requests return
// a list; detail and history return the single matching row.
func (s *Server) serveMarket(w http.ResponseWriter, r *http.Request, req provider.Request) {
	res, err := s.market.Fetch(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	var data any = res.Quotes
	switch req.Endpoint {
	case provider.EndpointDetail, provider.EndpointHistory:
		if len(res.Quotes) > 0 {
			data = res.Quotes[0]
		}
	}
	s.writeJSON(w, http.StatusOK, fromResult(res, data))
}

func (s *Server) serveNews(w http.ResponseWriter, r *http.Request, q news.Query) {
	if s.news == nil {
		s.writeError(w, http.StatusNotFound, "news is not enabled")
		return
	}
	res, err := s.news.Fetch(r.Context(), q)
	if err != nil {
		s.fail(w, err)
		return
	}
	source := "rss"
	if res.Placeholder {
		source = "placeholder"
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Data:        res.Articles,
		Source:      source,
		Cached:      res.Cached,
		Stale:       res.Stale,
		Placeholder: res.Placeholder,
		FetchedAt:   res.FetchedAt,
	})
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(strings.TrimSpace(s))
}
