// Package server exposes the admin HTTP surface: health, metrics,
// option queries and the open transaction table.
package server

import (
	"errors"
	"io"
	"net/http"

	"cdr-ingest/internal/adapter"
	"cdr-ingest/internal/metrics"
	"cdr-ingest/internal/txn"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Controller 는 옵션 조회 진입점 (입력 어댑터).
type Controller interface {
	ProcessControlEvent(command string, init bool, param string) (string, error)
}

// TxLister 는 열린 트랜잭션 목록을 돌려준다 (coordinator).
type TxLister interface {
	Snapshot() []txn.Transaction
}

type Handler struct {
	ctrl     Controller
	txs      TxLister
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	log      zerolog.Logger
}

func NewHandler(ctrl Controller, txs TxLister, m *metrics.Metrics, g prometheus.Gatherer, log zerolog.Logger) *Handler {
	return &Handler{
		ctrl:     ctrl,
		txs:      txs,
		metrics:  m,
		gatherer: g,
		log:      log,
	}
}

// Routes
//
//   - /health       : liveness ("ok")
//   - /metrics      : Prometheus exposition
//   - /metrics/text : key=value 카운터 덤프 (운영자가 curl 로 바로 볼 때)
//   - /control      : 옵션 조회 (?option=X). option 이 없으면 전체 목록
//   - /transactions : coordinator 상태표
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/metrics/text", h.HandleMetricsText)
	mux.HandleFunc("/control", h.HandleControl)
	mux.HandleFunc("/transactions", h.HandleTransactions)
	return mux
}

// HandleControl
//
// 런타임 옵션 조회. 값 변경(value 파라미터)은 초기화 이후 허용되지 않으므로 409 를 돌려준다.
//
//	GET /control?option=BatchSize          → 200 "5000"
//	GET /control?option=BatchSize&value=1  → 409
//	GET /control?option=Nope               → 404
func (h *Handler) HandleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	option := q.Get("option")
	value := q.Get("value")

	h.log.Info().
		Str("remote_ip", remoteIP(r)).
		Str("option", option).
		Str("value", value).
		Msg("control request")

	if option == "" {
		all := make(map[string]string, len(adapter.OptionNames))
		for _, name := range adapter.OptionNames {
			v, err := h.ctrl.ProcessControlEvent(name, false, "")
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			all[name] = v
		}
		writeJSON(w, all)
		return
	}

	v, err := h.ctrl.ProcessControlEvent(option, false, value)
	switch {
	case errors.Is(err, adapter.ErrUnknownOption):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, adapter.ErrNotDynamic):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, v)
}

// HandleTransactions 는 열린 트랜잭션을 JSON 배열로 돌려준다.
func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.txs.Snapshot())
}

// HandleMetricsText 는 카운터를 key=value 텍스트로 출력한다.
func (h *Handler) HandleMetricsText(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, h.metrics.String())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
