package integrationtests

import (
	auction "carbid/internal/auctionService"
	model "carbid/internal/models"
	"carbid/internal/notifier"
	query "carbid/internal/queryService"
	"carbid/internal/repository"
	"carbid/internal/server"
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// testEnv bundles the router with the backing stores and services so
// tests can seed state and trigger the sweep directly.
type testEnv struct {
	router   *gin.Engine
	repo     *repository.MemoryRepo
	catalog  *repository.MemoryCarCatalog
	auctions *auction.AuctionService
}

// SetupTestEnv initializes the full stack on in-memory stores and seeds
// the catalog with the given cars. No JWT secret is configured, so the
// identity middleware reads X-User-ID.
func SetupTestEnv(cars ...model.Car) *testEnv {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	catalog := repository.NewMemoryCarCatalog()
	for _, car := range cars {
		catalog.AddCar(car)
	}

	hub := notifier.NewHub()
	auctionService := auction.NewAuctionService(repo, repo, catalog, hub)
	queryService := query.NewQueryService(repo, repo)
	router := server.SetupRouter(auctionService, queryService, hub, server.Options{})

	return &testEnv{
		router:   router,
		repo:     repo,
		catalog:  catalog,
		auctions: auctionService,
	}
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	return ExecuteRequestAs(t, router, method, url, "", body)
}

// ExecuteRequestAs is ExecuteRequestAndParse with a caller identity
// attached via the X-User-ID header.
func ExecuteRequestAs(t *testing.T, router *gin.Engine, method, url, userID string, body any) (map[string]any, *httptest.ResponseRecorder) {
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		err := json.Unmarshal(w.Body.Bytes(), &resp)
		if err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}
