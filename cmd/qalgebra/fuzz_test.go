package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/qalgebra/qalgebra/parser"
)

func FuzzSimplifyEndpoint(f *testing.F) {
	p, err := parser.New()
	if err != nil {
		f.Fatal(err)
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             maxInputLength,
	})
	setupRoutes(app, p)

	// Seed corpus
	f.Add("text/plain", "Destroy(hs=1) * Create(hs=1)")
	f.Add("text/plain", "2 + 3 * i")
	f.Add("text/plain", "OperatorSymbol(A, hs=1) + ")
	f.Add("text/plain", "((((")
	f.Add("application/json", `{"head": "Destroy", "kwargs": [{"key": "hs", "value": 1}]}`)
	f.Add("application/json", `{"head": "OperatorTimes", "args": [1, 2]}`)
	f.Add("application/json", `not json`)
	f.Add("text/plain", "BasisKet(0, hs=1)")
	f.Add("text/plain", "LocalSigma(0, 1, hs=1)^3")

	f.Fuzz(func(t *testing.T, contentType, body string) {
		if len(body) == 0 || len(body) > maxInputLength {
			t.Skip()
		}

		req := httptest.NewRequest(http.MethodPost, "/simplify", strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
			t.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		var result any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Errorf("invalid JSON response: %v", err)
		}
	})
}

// # Run fuzzing for 1 minute
// go test -fuzz=FuzzSimplifyEndpoint -fuzztime=1m ./cmd/qalgebra
