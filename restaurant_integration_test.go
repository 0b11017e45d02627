package main

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/models"
	"github.com/masapp/restaurant-backend/router"
	"github.com/masapp/restaurant-backend/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// TestEndToEndIntegration walks the whole table lifecycle:
// 1. Login as admin -> JWT
// 2. Issue a QR session for table 4 -> table token
// 3. Diner verifies the token and places an order (2x food + 2x drink, 120)
// 4. Kitchen prepares and readies the order, waiter serves it
// 5. First guest pays 60 -> partial, balance 60
// 6. Second guest pays 60 -> settled, order completed, session closed
func TestEndToEndIntegration(t *testing.T) {
	db := setupTestDB()
	r := router.SetupRouter(db)

	token := loginTest(t, r)

	tableToken := issueSessionTest(t, r, token, 4)
	verifySessionTest(t, r, tableToken, true)

	orderID := createOrderTest(t, r, tableToken)
	kitchenDisplayTest(t, r, token, orderID, true)

	kitchenFlowTest(t, r, token, orderID)
	kitchenDisplayTest(t, r, token, orderID, false)

	payTest(t, r, token, orderID, 60, true)
	balanceTest(t, r, orderID, 60)
	payTest(t, r, token, orderID, 60, false)
	balanceTest(t, r, orderID, 0)

	// Settlement closed the table session in the same commit.
	verifySessionTest(t, r, tableToken, false)

	// The completed order is terminal.
	checkOrderStatusTest(t, r, orderID, "completed")
}

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open in-memory sqlite: %v", err)
	}

	err = db.AutoMigrate(
		&models.Restaurant{},
		&models.User{},
		&models.Menu{},
		&models.TableSession{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Notification{},
		&models.DBChange{},
	)
	if err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	db.Create(&models.Restaurant{Name: "Warung Test", Slug: "warung-test", Active: true})

	restaurantID := uint(1)
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	db.Create(&models.User{
		Name:         "Test Admin",
		Email:        "admin@example.com",
		Password:     string(hashedPassword),
		Role:         models.RoleAdmin,
		RestaurantID: &restaurantID,
	})

	db.Create(&models.Menu{
		RestaurantID: 1,
		Name:         "Nasi Goreng",
		Price:        45,
		Category:     models.MenuCategoryFood,
		Available:    true,
	})
	db.Create(&models.Menu{
		RestaurantID: 1,
		Name:         "Es Teh",
		Price:        15,
		Category:     models.MenuCategoryDrink,
		Available:    true,
	})

	return db
}

type envelope struct {
	Status  bool                   `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path, authToken, tableToken string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	if tableToken != "" {
		req.Header.Set("X-Table-Token", tableToken)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func loginTest(t *testing.T, r *gin.Engine) string {
	w := doJSON(t, r, http.MethodPost, "/login", "", "", map[string]string{
		"email":    "admin@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	token, _ := env.Data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func issueSessionTest(t *testing.T, r *gin.Engine, authToken string, table int) string {
	w := doJSON(t, r, http.MethodPost, "/api/sessions/", authToken, "", map[string]interface{}{
		"restaurant_id": 1,
		"table_number":  table,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	token, _ := env.Data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func verifySessionTest(t *testing.T, r *gin.Engine, tableToken string, wantActive bool) {
	w := doJSON(t, r, http.MethodGet, "/qr/verify?token="+tableToken, "", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	active, _ := env.Data["is_active"].(bool)
	assert.Equal(t, wantActive, active)
	if wantActive {
		assert.EqualValues(t, 4, env.Data["table_number"])
	} else {
		// A dead token never resolves to a table.
		assert.NotContains(t, env.Data, "table_number")
	}
}

func createOrderTest(t *testing.T, r *gin.Engine, tableToken string) uint {
	w := doJSON(t, r, http.MethodPost, "/orders", "", tableToken, map[string]interface{}{
		"items": []map[string]interface{}{
			{"menu_id": 1, "quantity": 2},
			{"menu_id": 2, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	assert.EqualValues(t, 120, env.Data["total_amount"])
	assert.Equal(t, "pending", env.Data["status"])

	id, _ := env.Data["id"].(float64)
	require.NotZero(t, id)
	return uint(id)
}

func kitchenFlowTest(t *testing.T, r *gin.Engine, authToken string, orderID uint) {
	base := "/api/orders/" + itoa(orderID)

	w := doJSON(t, r, http.MethodPost, base+"/prepare", authToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "preparing", decodeEnvelope(t, w).Data["status"])

	w = doJSON(t, r, http.MethodPost, base+"/ready", authToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ready", decodeEnvelope(t, w).Data["status"])

	w = doJSON(t, r, http.MethodPost, base+"/complete", authToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", decodeEnvelope(t, w).Data["status"])
}

func kitchenDisplayTest(t *testing.T, r *gin.Engine, authToken string, orderID uint, wantListed bool) {
	w := doJSON(t, r, http.MethodGet, "/api/kitchen/display", authToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data []struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	listed := false
	for _, o := range resp.Data {
		if o.ID == orderID {
			listed = true
		}
	}
	assert.Equal(t, wantListed, listed)
}

func payTest(t *testing.T, r *gin.Engine, authToken string, orderID uint, amount float64, wantPartial bool) {
	w := doJSON(t, r, http.MethodPost, "/api/payments/", authToken, "", map[string]interface{}{
		"order_id": orderID,
		"amount":   amount,
		"method":   "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	partial, _ := env.Data["is_partial"].(bool)
	assert.Equal(t, wantPartial, partial)
}

func balanceTest(t *testing.T, r *gin.Engine, orderID uint, want float64) {
	w := doJSON(t, r, http.MethodGet, "/orders/"+itoa(orderID)+"/balance", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	assert.EqualValues(t, want, env.Data["remaining_amount"])
}

func checkOrderStatusTest(t *testing.T, r *gin.Engine, orderID uint, want string) {
	w := doJSON(t, r, http.MethodGet, "/orders/"+itoa(orderID), "", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, want, decodeEnvelope(t, w).Data["status"])
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
