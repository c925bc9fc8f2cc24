// internal/tests/api_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/events"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/middleware"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/router"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/store/memstore"
	"github.com/javajoker/storefront-backend/internal/utils"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type APITestSuite struct {
	suite.Suite
	cfg      *config.Config
	store    *memstore.Store
	hub      *events.Hub
	limiters *middleware.RateLimiters
	router   *gin.Engine

	adminToken string
	product    models.Product
	provider   models.Provider
}

func (s *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.Require().NoError(i18n.Initialize())
	utils.SetJWTSecret("api-test-secret")
}

func (s *APITestSuite) SetupTest() {
	s.cfg = &config.Config{
		Environment: "test",
		Store:       config.StoreConfig{Driver: config.StoreDriverMemory, LowStockThreshold: 5},
		JWT:         config.JWTConfig{SecretKey: "api-test-secret", AccessTokenTTL: 1, RefreshTokenTTL: 24},
		Admin:       config.AdminConfig{Email: "admin@tienda.co", Password: "Admin12345"},
		Storage: config.StorageConfig{
			LocalDir:      s.T().TempDir(),
			PublicBaseURL: "http://localhost:8080",
			MaxProofSize:  1 << 20,
		},
		Payment: config.PaymentConfig{
			Currency:             "cop",
			ShippingFee:          1500,
			CashOnDeliveryMethod: "Contraentrega",
			CardMethod:           "Tarjeta",
			AcceptedMethods:      []string{"Contraentrega", "Nequi", "Tarjeta"},
		},
	}

	s.store = memstore.New()
	s.hub = events.NewHub()
	s.limiters = middleware.NewRateLimiters(s.cfg.RateLimit)

	storageService, err := services.NewStorageService(s.cfg)
	s.Require().NoError(err)
	s.Require().NoError(services.NewAuthService(s.store, s.cfg).EnsureAdmin(context.Background()))

	s.router = router.Initialize(s.cfg, s.store, s.hub, storageService, s.limiters)

	s.adminToken = s.login("admin@tienda.co", "Admin12345")
	s.seedCatalog()
}

func (s *APITestSuite) TearDownTest() {
	s.limiters.Stop()
	s.hub.Close()
}

func (s *APITestSuite) request(method, path string, body interface{}, token string) (*httptest.ResponseRecorder, apiResponse) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *APITestSuite) serve(req *http.Request) (*httptest.ResponseRecorder, apiResponse) {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func (s *APITestSuite) decode(raw json.RawMessage, out interface{}) {
	s.Require().NoError(json.Unmarshal(raw, out))
}

func (s *APITestSuite) login(email, password string) string {
	w, resp := s.request(http.MethodPost, "/v1/auth/login", gin.H{"email": email, "password": password}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var auth services.AuthResponse
	s.decode(resp.Data, &auth)
	return auth.AccessToken
}

func (s *APITestSuite) registerCustomer(email string) string {
	w, resp := s.request(http.MethodPost, "/v1/auth/register", gin.H{
		"email":     email,
		"password":  "Cliente2024",
		"full_name": "Carlos",
		"last_name": "Ruiz",
		"phone":     "3109876543",
	}, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var auth services.AuthResponse
	s.decode(resp.Data, &auth)
	return auth.AccessToken
}

func (s *APITestSuite) seedCatalog() {
	w, resp := s.request(http.MethodPost, "/v1/admin/categories", gin.H{
		"name":        "Camisetas",
		"description": "Camisetas estampadas",
		"image":       "https://cdn.test/camisetas.jpg",
	}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var category models.Category
	s.decode(resp.Data, &category)

	w, resp = s.request(http.MethodPost, "/v1/admin/providers", gin.H{
		"name":  "Textiles Andinos",
		"phone": "3001112233",
	}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.decode(resp.Data, &s.provider)

	w, resp = s.request(http.MethodPost, "/v1/admin/products", gin.H{
		"name":         "Camiseta básica",
		"description":  "Algodón",
		"price":        20000,
		"stock":        3,
		"category_id":  category.ID,
		"provider_id":  s.provider.ID,
		"product_type": string(models.ProductTypeNoVariant),
		"images":       []string{"https://cdn.test/camiseta.jpg"},
	}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.decode(resp.Data, &s.product)
}

func (s *APITestSuite) addToCart(token string, qty int) string {
	w, resp := s.request(http.MethodPost, "/v1/cart/items", gin.H{"product_id": s.product.ID}, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var item models.CartItem
	s.decode(resp.Data, &item)
	if qty != 1 {
		w, _ = s.request(http.MethodPut, "/v1/cart/items/"+item.Key+"/quantity", gin.H{"quantity": qty}, token)
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	}
	return item.Key
}

func shippingForm(method string) gin.H {
	return gin.H{
		"payment_method":     method,
		"country":            "Colombia",
		"department":         "Cundinamarca",
		"city":               "Bogotá",
		"address":            "Carrera 7 # 45-10",
		"recipient_document": "52123456",
	}
}

func (s *APITestSuite) placeOrder(token string) models.Order {
	w, resp := s.request(http.MethodPost, "/v1/orders", shippingForm("Contraentrega"), token)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	s.decode(resp.Data, &order)
	return order
}

func (s *APITestSuite) placeOrderWithProof(token, filename string, content []byte) (*httptest.ResponseRecorder, apiResponse) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, value := range shippingForm("Nequi") {
		s.Require().NoError(writer.WriteField(field, value.(string)))
	}
	part, err := writer.CreateFormFile("payment_proof", filename)
	s.Require().NoError(err)
	_, err = part.Write(content)
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/orders", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return s.serve(req)
}

// fetch downloads a stored file anonymously.
func (s *APITestSuite) fetch(url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, strings.TrimPrefix(url, s.cfg.Storage.PublicBaseURL), nil)
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) setStatus(orderID fmt.Stringer, status models.OrderStatus) (*httptest.ResponseRecorder, apiResponse) {
	return s.request(http.MethodPut, "/v1/admin/orders/"+orderID.String()+"/status", gin.H{"status": status}, s.adminToken)
}

func (s *APITestSuite) TestRegisterLoginAndProfile() {
	token := s.registerCustomer("carlos@correo.co")

	w, resp := s.request(http.MethodGet, "/v1/auth/me", nil, token)
	s.Equal(http.StatusOK, w.Code)
	var user models.User
	s.decode(resp.Data, &user)
	s.Equal("carlos@correo.co", user.Email)
	s.Equal(models.UserRoleCustomer, user.Role)

	w, resp = s.request(http.MethodPost, "/v1/auth/register", gin.H{
		"email":     "carlos@correo.co",
		"password":  "Cliente2024",
		"full_name": "Carlos",
		"last_name": "Ruiz",
		"phone":     "3109876543",
	}, "")
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("CONFLICT", resp.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"carlos@correo.co","password":"Equivocada1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	w, resp = s.serve(req)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("Invalid email or password", resp.Error.Message)
}

func (s *APITestSuite) TestAccessControl() {
	w, resp := s.request(http.MethodGet, "/v1/cart", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("UNAUTHORIZED", resp.Error.Code)

	token := s.registerCustomer("cliente@correo.co")
	w, resp = s.request(http.MethodGet, "/v1/admin/dashboard/stats", nil, token)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("FORBIDDEN", resp.Error.Code)

	w, _ = s.request(http.MethodGet, "/v1/products/"+s.product.ID.String(), nil, "")
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.request(http.MethodGet, "/v1/products/not-a-uuid", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestCartTotals() {
	token := s.registerCustomer("totales@correo.co")
	key := s.addToCart(token, 1)

	w, _ := s.request(http.MethodPost, "/v1/cart/items", gin.H{"product_id": s.product.ID}, token)
	s.Require().Equal(http.StatusOK, w.Code)

	w, resp := s.request(http.MethodGet, "/v1/cart", nil, token)
	s.Require().Equal(http.StatusOK, w.Code)
	var cart services.Cart
	s.decode(resp.Data, &cart)
	s.Require().Len(cart.Lines, 1)
	s.Equal(2, cart.Lines[0].Quantity)
	s.Equal(41500.0, cart.Total)

	w, resp = s.request(http.MethodPut, "/v1/cart/items/"+key+"/quantity", gin.H{"delta": -5}, token)
	s.Require().Equal(http.StatusOK, w.Code)
	var item models.CartItem
	s.decode(resp.Data, &item)
	s.Equal(1, item.Quantity)

	w, _ = s.request(http.MethodDelete, "/v1/cart/items/"+key, nil, token)
	s.Equal(http.StatusOK, w.Code)

	w, resp = s.request(http.MethodPost, "/v1/orders", shippingForm("Contraentrega"), token)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(i18n.T("es", i18n.KeyCartEmpty), resp.Error.Message)
}

func (s *APITestSuite) TestCheckoutAndFulfillment() {
	token := s.registerCustomer("compras@correo.co")
	s.addToCart(token, 2)

	order := s.placeOrder(token)
	s.Equal(models.OrderStatusPending, order.Status)
	s.Equal(41500.0, order.Total)

	w, resp := s.request(http.MethodGet, "/v1/cart", nil, token)
	s.Require().Equal(http.StatusOK, w.Code)
	var cart services.Cart
	s.decode(resp.Data, &cart)
	s.Empty(cart.Lines)

	w, resp = s.request(http.MethodGet, "/v1/orders/"+order.ID.String(), nil, token)
	s.Require().Equal(http.StatusOK, w.Code)
	var confirmation services.OrderConfirmation
	s.decode(resp.Data, &confirmation)
	s.Require().Len(confirmation.Providers, 1)
	s.Equal(s.provider.Name, confirmation.Providers[0].Name)
	s.Contains(confirmation.Providers[0].WhatsAppURL, "https://wa.me/")

	other := s.registerCustomer("otra@correo.co")
	w, _ = s.request(http.MethodGet, "/v1/orders/"+order.ID.String(), nil, other)
	s.Equal(http.StatusNotFound, w.Code)

	w, _ = s.setStatus(order.ID, models.OrderStatusProcessing)
	s.Require().Equal(http.StatusOK, w.Code)

	w, resp = s.request(http.MethodGet, "/v1/products/"+s.product.ID.String(), nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var product models.Product
	s.decode(resp.Data, &product)
	s.Equal(1, product.Stock)

	w, resp = s.setStatus(order.ID, models.OrderStatusPending)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal(i18n.T("es", i18n.KeyOrderInvalidTransition, "processing", "pending"), resp.Error.Message)

	w, resp = s.request(http.MethodGet, "/v1/admin/orders?status=processing", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var processing []models.Order
	s.decode(resp.Data, &processing)
	s.Require().Len(processing, 1)
	s.Equal(order.ID, processing[0].ID)
}

func (s *APITestSuite) TestInsufficientStockReportsProducts() {
	token := s.registerCustomer("stock@correo.co")
	s.addToCart(token, 2)
	first := s.placeOrder(token)

	s.addToCart(token, 2)
	second := s.placeOrder(token)

	w, _ := s.setStatus(first.ID, models.OrderStatusProcessing)
	s.Require().Equal(http.StatusOK, w.Code)

	w, resp := s.setStatus(second.ID, models.OrderStatusProcessing)
	s.Equal(http.StatusConflict, w.Code)
	s.Contains(resp.Error.Message, "Camiseta básica")

	var shortages []services.StockShortage
	s.decode(resp.Error.Details, &shortages)
	s.Require().Len(shortages, 1)
	s.Equal(2, shortages[0].Requested)
	s.Equal(1, shortages[0].Available)
}

func (s *APITestSuite) TestTransferRequiresProof() {
	token := s.registerCustomer("nequi@correo.co")
	s.addToCart(token, 1)

	w, resp := s.request(http.MethodPost, "/v1/orders", shippingForm("Nequi"), token)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(i18n.T("es", i18n.KeyOrderProofRequired), resp.Error.Message)

	w, resp = s.placeOrderWithProof(token, "comprobante.png", pngHeader)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	s.decode(resp.Data, &order)
	s.True(strings.HasPrefix(order.PaymentProofURL, "http://localhost:8080/uploads/payment_proofs/"), order.PaymentProofURL)

	// receipts are not served without a signed link
	s.Equal(http.StatusNotFound, s.fetch(order.PaymentProofURL).Code)
	s.Equal(http.StatusNotFound, s.fetch(order.PaymentProofURL+"?token="+token).Code)

	w, resp = s.request(http.MethodGet, "/v1/admin/orders/"+order.ID.String()+"/proof", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var proof struct {
		URL string `json:"url"`
	}
	s.decode(resp.Data, &proof)
	s.True(strings.HasPrefix(proof.URL, order.PaymentProofURL+"?token="), proof.URL)

	w = s.fetch(proof.URL)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(pngHeader, w.Body.Bytes())
	s.Equal("nosniff", w.Header().Get("X-Content-Type-Options"))

	signature := proof.URL[strings.Index(proof.URL, "?"):]
	s.Equal(http.StatusNotFound, s.fetch("/uploads/payment_proofs/otro.png"+signature).Code)
}

func (s *APITestSuite) TestProofMustBeImageOrPDF() {
	token := s.registerCustomer("html@correo.co")
	s.addToCart(token, 1)

	w, resp := s.placeOrderWithProof(token, "x.html", []byte("<script>alert(document.cookie)</script>"))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(i18n.T("es", i18n.KeyUploadInvalid), resp.Error.Message)

	w, resp = s.request(http.MethodGet, "/v1/cart", nil, token)
	s.Require().Equal(http.StatusOK, w.Code)
	var cart services.Cart
	s.decode(resp.Data, &cart)
	s.Len(cart.Lines, 1)

	w, resp = s.request(http.MethodGet, "/v1/admin/orders", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var orders []models.Order
	s.decode(resp.Data, &orders)
	s.Empty(orders)
}

func (s *APITestSuite) TestCardPaymentsUnavailableWithoutStripe() {
	token := s.registerCustomer("tarjeta@correo.co")
	s.addToCart(token, 1)

	w, resp := s.request(http.MethodPost, "/v1/payments/intent", nil, token)
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Equal("SERVICE_UNAVAILABLE", resp.Error.Code)

	w, resp = s.request(http.MethodGet, "/v1/payments/options", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var options struct {
		PaymentMethods []string `json:"payment_methods"`
		ShippingFee    float64  `json:"shipping_fee"`
	}
	s.decode(resp.Data, &options)
	s.Equal([]string{"Contraentrega", "Nequi"}, options.PaymentMethods)
	s.Equal(1500.0, options.ShippingFee)
}

func (s *APITestSuite) TestImageUpload() {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("images", "foto.png")
	s.Require().NoError(err)
	_, err = part.Write(pngHeader)
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/uploads?folder=categories", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.adminToken)
	w, resp := s.serve(req)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var uploaded []services.UploadResult
	s.decode(resp.Data, &uploaded)
	s.Require().Len(uploaded, 1)
	s.True(strings.HasPrefix(uploaded[0].Key, "categories/"), uploaded[0].Key)
	s.True(strings.HasPrefix(uploaded[0].URL, "http://localhost:8080/uploads/categories/"), uploaded[0].URL)

	w = s.fetch(uploaded[0].URL)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(pngHeader, w.Body.Bytes())
}

func (s *APITestSuite) TestDeleteCustomerCascades() {
	token := s.registerCustomer("borrar@correo.co")
	s.addToCart(token, 1)
	s.placeOrder(token)
	s.addToCart(token, 1)

	w, resp := s.request(http.MethodGet, "/v1/admin/customers?search=borrar", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var customers []models.User
	s.decode(resp.Data, &customers)
	s.Require().Len(customers, 1)

	w, _ = s.request(http.MethodDelete, "/v1/admin/customers/"+customers[0].ID.String(), nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)

	w, resp = s.request(http.MethodGet, "/v1/admin/dashboard/stats", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var payload struct {
		Stats models.DashboardStats `json:"stats"`
	}
	s.decode(resp.Data, &payload)
	s.EqualValues(0, payload.Stats.TotalOrders)
	s.EqualValues(0, payload.Stats.Customers)
	s.EqualValues(1, payload.Stats.Products)
	s.EqualValues(1, payload.Stats.LowStock)

	items, err := s.store.ListCartItems(context.Background(), customers[0].ID)
	s.Require().NoError(err)
	s.Empty(items)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
