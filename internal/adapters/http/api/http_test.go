package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sentiolabs/sentio/internal/adapters/http/api"
	service "github.com/sentiolabs/sentio/internal/app"
	"github.com/sentiolabs/sentio/internal/domain/model"
	"github.com/sentiolabs/sentio/internal/domain/resultcache"
	"github.com/sentiolabs/sentio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// Mock implementations for testing
type mockService struct {
	mu     sync.Mutex
	calls  int
	result model.Result
	err    error
	ready  bool
	info   model.Info
}

func newMockService() *mockService {
	return &mockService{
		result: model.Result{Label: model.LabelPositive, Score: 0.95},
		ready:  true,
		info: model.Info{
			Name:   "sentio-linear-en-v1",
			Task:   "sentiment-analysis",
			Labels: []model.Label{model.LabelNegative, model.LabelPositive},
			Loaded: true,
		},
	}
}

func (m *mockService) Analyze(ctx context.Context, text string) (model.Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return model.Result{}, m.err
	}
	if strings.TrimSpace(text) == "" {
		return model.Result{}, fmt.Errorf("%w: text must not be empty", service.ErrValidation)
	}
	return m.result, nil
}

func (m *mockService) Ready(ctx context.Context) bool {
	return m.ready
}

func (m *mockService) ModelInfo(ctx context.Context) model.Info {
	return m.info
}

func (m *mockService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func postAnalyze(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		svc := newMockService()
		statsProvider := &mockStatsProvider{stats: map[string]interface{}{"started": true}}
		server := api.NewServer(svc, statsProvider, 0)
		mux := http.NewServeMux()

		Convey("When registering routes", func() {
			server.Register(context.Background(), mux)

			Convey("Then all expected routes should be registered", func() {
				So(mux, ShouldNotBeNil)
			})

			Convey("And health endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/healthz", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And stats endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/stats", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And analyze endpoint should reject an empty payload", func() {
				w := postAnalyze(mux, `{}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And models endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/models", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And metrics endpoint should expose the registry", func() {
				req := httptest.NewRequest("GET", "/metrics", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "sentio_classifier_")
			})

			Convey("And dashboard endpoint should serve HTML with refresh control", func() {
				req := httptest.NewRequest("GET", "/dashboard", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(body, ShouldContainSubstring, "id=\"refresh-interval\"")
				So(body, ShouldContainSubstring, "id=\"refresh-control\"")
			})

			Convey("And unknown paths should fall through to 404", func() {
				req := httptest.NewRequest("GET", "/unknown", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestAnalyzeHandler_HandleAnalyze(t *testing.T) {
	Convey("Given an analyze handler", t, func() {
		svc := newMockService()
		handler := api.NewAnalyzeHandler(svc, 0)

		Convey("When handling a valid POST request", func() {
			req := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{"text": "I love this product"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return the classification", func() {
				handler.HandleAnalyze(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")

				var response analyzeResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Label, ShouldEqual, "positive")
				So(response.Score, ShouldEqual, 0.95)
				So(svc.callCount(), ShouldEqual, 1)
			})
		})

		Convey("When handling an invalid JSON request", func() {
			req := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{invalid json`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request without touching the service", func() {
				handler.HandleAnalyze(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Code, ShouldEqual, "bad_request")
				So(svc.callCount(), ShouldEqual, 0)
			})
		})

		Convey("When handling a request with whitespace-only text", func() {
			req := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{"text": "   "}`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request", func() {
				handler.HandleAnalyze(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When handling a non-POST request", func() {
			req := httptest.NewRequest("GET", "/analyze", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleAnalyze(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(svc.callCount(), ShouldEqual, 0)
			})
		})

		Convey("When the body exceeds the configured limit", func() {
			small := api.NewAnalyzeHandler(svc, 16)
			req := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{"text": "large payload well past the limit"}`))
			w := httptest.NewRecorder()

			Convey("Then decoding fails with bad request", func() {
				small.HandleAnalyze(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the model is still loading", func() {
			svc.err = service.ErrNotReady
			req := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{"text": "hello"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return service unavailable", func() {
				handler.HandleAnalyze(w, req)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Code, ShouldEqual, "model_not_ready")
			})
		})

		Convey("When inference exceeds the model timeout", func() {
			svc.err = fmt.Errorf("%w after 5s", resultcache.ErrTimeout)
			req := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{"text": "hello"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return gateway timeout", func() {
				handler.HandleAnalyze(w, req)
				So(w.Code, ShouldEqual, http.StatusGatewayTimeout)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Code, ShouldEqual, "timeout")
			})
		})

		Convey("When the caller deadline expires first", func() {
			svc.err = context.DeadlineExceeded
			req := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{"text": "hello"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return gateway timeout", func() {
				handler.HandleAnalyze(w, req)
				So(w.Code, ShouldEqual, http.StatusGatewayTimeout)
			})
		})

		Convey("When inference fails", func() {
			svc.err = errors.New("matrix dimensions mismatch")
			req := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{"text": "hello"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandleAnalyze(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Code, ShouldEqual, "inference_failed")
			})
		})
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	Convey("Given a health handler", t, func() {
		svc := newMockService()
		handler := api.NewHealthHandler(svc)

		Convey("When the model is loaded", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should report healthy", func() {
				handler.HandleHealth(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response healthResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Status, ShouldEqual, "ok")
				So(response.Model, ShouldEqual, "sentio-linear-en-v1")
				So(response.Loaded, ShouldBeTrue)
			})
		})

		Convey("When the model is not ready", func() {
			svc.ready = false
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should report unavailable", func() {
				handler.HandleHealth(w, req)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)

				var response healthResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Status, ShouldEqual, "unavailable")
				So(response.Loaded, ShouldBeFalse)
			})
		})

		Convey("When handling a non-GET request", func() {
			req := httptest.NewRequest("POST", "/healthz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleHealth(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestModelsHandler_HandleModels(t *testing.T) {
	Convey("Given a models handler", t, func() {
		svc := newMockService()
		handler := api.NewModelsHandler(svc)

		Convey("When requesting model metadata", func() {
			req := httptest.NewRequest("GET", "/models", nil)
			w := httptest.NewRecorder()

			Convey("Then it should describe the loaded model", func() {
				handler.HandleModels(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response modelInfoResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.ModelName, ShouldEqual, "sentio-linear-en-v1")
				So(response.Task, ShouldEqual, "sentiment-analysis")
				So(response.Labels, ShouldResemble, []string{"negative", "positive"})
				So(response.Loaded, ShouldBeTrue)
			})
		})

		Convey("When handling a non-GET request", func() {
			req := httptest.NewRequest("POST", "/models", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleModels(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		mockStats := &mockStatsProvider{
			stats: map[string]interface{}{
				"textsClassified": 1000,
				"cacheEntries":    150,
			},
		}
		handler := api.NewStatsHandler(mockStats)

		Convey("When handling stats request", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return stats", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["textsClassified"], ShouldEqual, 1000)
				So(response["cacheEntries"], ShouldEqual, 150)
			})
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		svc := newMockService()
		server := api.NewServer(svc, &mockStatsProvider{}, 0)
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		Convey("When a request carries no request id", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then one is generated and echoed", func() {
				So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
			})
		})

		Convey("When a request carries its own request id", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			req.Header.Set("X-Request-ID", "req-42")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the id is kept", func() {
				So(w.Header().Get("X-Request-ID"), ShouldEqual, "req-42")
			})
		})

		Convey("When a preflight OPTIONS request arrives", func() {
			req := httptest.NewRequest("OPTIONS", "/analyze", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is answered before reaching the handler", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
				So(w.Header().Get("Access-Control-Allow-Methods"), ShouldContainSubstring, "POST")
				So(svc.callCount(), ShouldEqual, 0)
			})
		})

		Convey("When a normal request arrives", func() {
			req := httptest.NewRequest("GET", "/models", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then CORS headers are present", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			})
		})
	})
}

func TestServer_EndToEnd(t *testing.T) {
	Convey("Given a server wired to a running service", t, func() {
		stub := newStubClassifier()
		svc := service.New(
			service.WithClassifier(stub),
			service.WithWorkerCount(2),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(svc.Stop)

		mux := http.NewServeMux()
		api.NewServer(svc, svc, 0).Register(context.Background(), mux)

		Convey("When posting a text for analysis", func() {
			w := postAnalyze(mux, `{"text": "I love this product"}`)

			Convey("Then the classification is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var response analyzeResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Label, ShouldEqual, "positive")
				So(response.Score, ShouldEqual, 0.95)
			})
		})

		Convey("When posting the same text twice", func() {
			w1 := postAnalyze(mux, `{"text": "I love this product"}`)
			w2 := postAnalyze(mux, `{"text": "I love this product"}`)

			Convey("Then the repeat is served from cache", func() {
				So(w1.Code, ShouldEqual, http.StatusOK)
				So(w2.Code, ShouldEqual, http.StatusOK)
				So(w2.Body.String(), ShouldEqual, w1.Body.String())
				So(stub.callCount(), ShouldEqual, 1)
			})
		})

		Convey("When posting empty text", func() {
			w := postAnalyze(mux, `{"text": ""}`)

			Convey("Then the request is rejected before inference", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Code, ShouldEqual, "bad_request")
				So(stub.callCount(), ShouldEqual, 0)
			})
		})

		Convey("When checking health", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the model reports loaded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var response healthResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Status, ShouldEqual, "ok")
				So(response.Loaded, ShouldBeTrue)
			})
		})
	})
}

// stubClassifier feeds the real service canned results in end-to-end tests.
type stubClassifier struct {
	mu    sync.Mutex
	calls int
}

func newStubClassifier() *stubClassifier {
	return &stubClassifier{}
}

func (c *stubClassifier) Classify(ctx context.Context, text string) (model.Result, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return model.Result{Label: model.LabelPositive, Score: 0.95}, nil
}

func (c *stubClassifier) Info(ctx context.Context) model.Info {
	return model.Info{
		Name:   "stub-head",
		Task:   "sentiment-analysis",
		Labels: []model.Label{model.LabelNegative, model.LabelPositive},
		Loaded: true,
	}
}

func (c *stubClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Local types for testing
type analyzeResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
	Loaded bool   `json:"loaded"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type modelInfoResponse struct {
	ModelName string   `json:"model_name"`
	Task      string   `json:"task"`
	Labels    []string `json:"labels"`
	Loaded    bool     `json:"loaded"`
}
