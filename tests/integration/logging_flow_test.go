package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macrolab/macrolog/internal/auth"
	"github.com/macrolab/macrolog/internal/body"
	"github.com/macrolab/macrolog/internal/database"
	"github.com/macrolab/macrolog/internal/exercise"
	"github.com/macrolab/macrolog/internal/foodlog"
	"github.com/macrolab/macrolog/internal/ingredients"
	"github.com/macrolab/macrolog/internal/macros"
	"github.com/macrolab/macrolog/internal/profile"
	"github.com/macrolab/macrolog/internal/recipes"
	"github.com/macrolab/macrolog/internal/server"
	"go.uber.org/zap"
)

const (
	apiToken        = "integration-api-token"
	jsonContentType = "application/json"
)

// startServer wires the full stack against an on-disk database, exactly as
// the binary does.
func startServer(testContext *testing.T) *httptest.Server {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	databasePath := filepath.Join(testContext.TempDir(), "integration.db")
	db, err := database.OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}

	recipeService, err := recipes.NewService(recipes.ServiceConfig{Database: db})
	if err != nil {
		testContext.Fatalf("failed to build recipe service: %v", err)
	}
	ingredientService, err := ingredients.NewService(ingredients.ServiceConfig{Database: db})
	if err != nil {
		testContext.Fatalf("failed to build ingredient service: %v", err)
	}
	ingredientService.SetReferences(recipeService)
	snapshotStore, err := macros.NewSnapshotStore(macros.SnapshotStoreConfig{Database: db})
	if err != nil {
		testContext.Fatalf("failed to build snapshot store: %v", err)
	}
	foodService, err := foodlog.NewService(foodlog.ServiceConfig{
		Database:   db,
		Recipes:    recipeService,
		Snapshots:  snapshotStore,
		IDProvider: foodlog.NewUUIDProvider(),
	})
	if err != nil {
		testContext.Fatalf("failed to build food service: %v", err)
	}
	profileService, err := profile.NewService(profile.ServiceConfig{Database: db})
	if err != nil {
		testContext.Fatalf("failed to build profile service: %v", err)
	}
	bodyService, err := body.NewService(body.ServiceConfig{Database: db})
	if err != nil {
		testContext.Fatalf("failed to build body service: %v", err)
	}
	exerciseService, err := exercise.NewService(exercise.ServiceConfig{Database: db})
	if err != nil {
		testContext.Fatalf("failed to build exercise service: %v", err)
	}
	macroService, err := macros.NewService(macros.ServiceConfig{
		Snapshots: snapshotStore,
		Profiles:  profileService,
		Bodies:    bodyService,
	})
	if err != nil {
		testContext.Fatalf("failed to build macro service: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("integration-secret"),
		Issuer:        "macrolog-auth",
		Audience:      "macrolog-api",
		TokenTTL:      time.Hour,
	})
	if err != nil {
		testContext.Fatalf("failed to build token issuer: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		APIToken:     apiToken,
		TokenManager: issuer,
		Ingredients:  ingredientService,
		Recipes:      recipeService,
		Foods:        foodService,
		Macros:       macroService,
		Profile:      profileService,
		Body:         bodyService,
		Exercise:     exerciseService,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}

	testServer := httptest.NewServer(handler)
	testContext.Cleanup(testServer.Close)
	return testServer
}

func call(testContext *testing.T, testServer *httptest.Server, method, path string, payload any) (int, []byte) {
	testContext.Helper()
	var bodyReader *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			testContext.Fatalf("failed to encode payload: %v", err)
		}
		bodyReader = bytes.NewReader(encoded)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	request, err := http.NewRequest(method, testServer.URL+path, bodyReader)
	if err != nil {
		testContext.Fatalf("failed to build request: %v", err)
	}
	request.Header.Set("Content-Type", jsonContentType)
	request.Header.Set("Authorization", "Bearer "+apiToken)

	response, err := testServer.Client().Do(request)
	if err != nil {
		testContext.Fatalf("request failed: %v", err)
	}
	defer response.Body.Close()

	var buffer bytes.Buffer
	if _, err := buffer.ReadFrom(response.Body); err != nil {
		testContext.Fatalf("failed to read response: %v", err)
	}
	return response.StatusCode, buffer.Bytes()
}

func TestLoggingFlowEndToEnd(testContext *testing.T) {
	testServer := startServer(testContext)
	today := time.Now().UTC().Format("2006-01-02")

	status, responseBody := call(testContext, testServer, http.MethodPost, "/ingredients", map[string]any{
		"name":           "Chicken Breast",
		"default_amount": 100,
		"default_unit":   "g",
		"calories":       165,
		"protein_g":      31,
		"carbs_g":        0,
		"fats_g":         3.6,
		"sodium_mg":      74,
	})
	if status != http.StatusCreated {
		testContext.Fatalf("ingredient create failed with %d: %s", status, responseBody)
	}
	var ingredient struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(responseBody, &ingredient); err != nil {
		testContext.Fatalf("failed to decode ingredient: %v", err)
	}

	status, responseBody = call(testContext, testServer, http.MethodPost, "/recipes", map[string]any{
		"name": "Chicken Plate",
		"items": []map[string]any{
			{"ingredient_id": ingredient.ID, "amount": 200, "unit": "g"},
		},
	})
	if status != http.StatusCreated {
		testContext.Fatalf("recipe create failed with %d: %s", status, responseBody)
	}
	var recipe struct {
		ID     uint `json:"id"`
		Totals struct {
			Calories int `json:"calories"`
		} `json:"totals"`
	}
	if err := json.Unmarshal(responseBody, &recipe); err != nil {
		testContext.Fatalf("failed to decode recipe: %v", err)
	}
	if recipe.Totals.Calories != 330 {
		testContext.Fatalf("expected doubled serving totals, got %d", recipe.Totals.Calories)
	}

	status, responseBody = call(testContext, testServer, http.MethodPost, "/foods/from-recipe", map[string]any{
		"recipe_id": recipe.ID,
		"date":      today,
		"marker":    "meal-1",
		"scale":     1,
	})
	if status != http.StatusCreated {
		testContext.Fatalf("recipe logging failed with %d: %s", status, responseBody)
	}

	status, responseBody = call(testContext, testServer, http.MethodGet, "/macros/today", nil)
	if status != http.StatusOK {
		testContext.Fatalf("macros/today failed with %d: %s", status, responseBody)
	}
	var report struct {
		Calories struct {
			Current float64 `json:"current"`
		} `json:"calories"`
	}
	if err := json.Unmarshal(responseBody, &report); err != nil {
		testContext.Fatalf("failed to decode report: %v", err)
	}
	if report.Calories.Current != 330 {
		testContext.Fatalf("expected 330 live calories, got %v", report.Calories.Current)
	}

	// Rewriting the ingredient must not disturb the logged snapshot.
	status, responseBody = call(testContext, testServer, http.MethodPatch,
		fmt.Sprintf("/ingredients/%d", ingredient.ID), map[string]any{"calories": 500})
	if status != http.StatusOK {
		testContext.Fatalf("ingredient update failed with %d: %s", status, responseBody)
	}

	status, responseBody = call(testContext, testServer, http.MethodGet, "/macros/today", nil)
	if status != http.StatusOK {
		testContext.Fatalf("macros/today failed with %d: %s", status, responseBody)
	}
	if err := json.Unmarshal(responseBody, &report); err != nil {
		testContext.Fatalf("failed to decode report: %v", err)
	}
	if report.Calories.Current != 330 {
		testContext.Fatalf("logged snapshot must be immutable, got %v", report.Calories.Current)
	}
}
