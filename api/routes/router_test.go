package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	authsvc "github.com/angelmondragon/fashionplace-backend/internal/auth"
	"github.com/angelmondragon/fashionplace-backend/internal/cart"
	"github.com/angelmondragon/fashionplace-backend/internal/catalog"
	"github.com/angelmondragon/fashionplace-backend/internal/customers"
	"github.com/angelmondragon/fashionplace-backend/internal/orders"
	"github.com/angelmondragon/fashionplace-backend/internal/payment"
	pkgauth "github.com/angelmondragon/fashionplace-backend/pkg/auth"
	"github.com/angelmondragon/fashionplace-backend/pkg/config"
	"github.com/angelmondragon/fashionplace-backend/pkg/db/models"
	"github.com/angelmondragon/fashionplace-backend/pkg/enums"
	"github.com/angelmondragon/fashionplace-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req authsvc.RegisterRequest, sessionToken string) (*authsvc.AuthResponse, error) {
	return &authsvc.AuthResponse{AccessToken: "stub"}, nil
}

func (stubAuthService) Login(ctx context.Context, req authsvc.LoginRequest, sessionToken string) (*authsvc.AuthResponse, error) {
	return &authsvc.AuthResponse{AccessToken: "stub"}, nil
}

type stubCatalogService struct{}

func (stubCatalogService) ListCategories(ctx context.Context) ([]catalog.CategoryDTO, error) {
	return []catalog.CategoryDTO{}, nil
}

func (stubCatalogService) GetCategoryBySlug(ctx context.Context, slug string) (*catalog.CategoryDTO, error) {
	return &catalog.CategoryDTO{}, nil
}

func (stubCatalogService) ListProducts(ctx context.Context, input catalog.ListProductsInput) (*catalog.ProductListResult, error) {
	return &catalog.ProductListResult{}, nil
}

func (stubCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{ID: id}, nil
}

func (stubCatalogService) Featured(ctx context.Context) (*catalog.FeaturedShelves, error) {
	return &catalog.FeaturedShelves{}, nil
}

type stubCartService struct{}

func (stubCartService) ResolveOrCreate(ctx context.Context, identity cart.Identity) (*cart.CartDTO, error) {
	return &cart.CartDTO{ID: uuid.New(), Items: []cart.ItemDTO{}}, nil
}

func (stubCartService) Get(ctx context.Context, cartID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{ID: cartID, Items: []cart.ItemDTO{}}, nil
}

func (stubCartService) Delete(ctx context.Context, cartID uuid.UUID) error {
	return nil
}

func (stubCartService) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*cart.MutationResult, error) {
	return &cart.MutationResult{}, nil
}

func (stubCartService) SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*cart.MutationResult, error) {
	return &cart.MutationResult{}, nil
}

func (stubCartService) UpdateItem(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (*cart.MutationResult, error) {
	return &cart.MutationResult{}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	return nil
}

func (stubCartService) Totals(ctx context.Context, cartID uuid.UUID) (*cart.TotalsDTO, error) {
	return &cart.TotalsDTO{}, nil
}

func (stubCartService) MergeOnAuthenticate(ctx context.Context, sessionToken string, customerID uuid.UUID) error {
	return nil
}

type stubOrdersService struct{}

func (stubOrdersService) Create(ctx context.Context, ownerID uuid.UUID, cartID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: 1, OwnerID: ownerID}, nil
}

func (stubOrdersService) List(ctx context.Context, actor orders.Actor) ([]orders.OrderDTO, error) {
	return []orders.OrderDTO{}, nil
}

func (stubOrdersService) Get(ctx context.Context, orderID int64, actor orders.Actor) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: orderID}, nil
}

func (stubOrdersService) UpdateStatus(ctx context.Context, orderID int64, status enums.OrderStatus, actor orders.Actor) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: orderID, PendingStatus: status}, nil
}

func (stubOrdersService) Delete(ctx context.Context, orderID int64, actor orders.Actor) error {
	return nil
}

type stubPaymentService struct{}

func (stubPaymentService) Capture(ctx context.Context, cartID uuid.UUID, token string) (*payment.ReceiptDTO, error) {
	return &payment.ReceiptDTO{CartID: cartID, ChargeID: "ch_stub", Status: "succeeded"}, nil
}

type stubProfileService struct{}

func (stubProfileService) Create(ctx context.Context, actor customers.Actor, input customers.CreateProfileDTO) (*customers.ProfileDTO, error) {
	return &customers.ProfileDTO{ID: uuid.New(), Username: input.Username}, nil
}

func (stubProfileService) Get(ctx context.Context, profileID uuid.UUID, actor customers.Actor) (*customers.ProfileDTO, error) {
	return &customers.ProfileDTO{ID: profileID}, nil
}

func (stubProfileService) Update(ctx context.Context, profileID uuid.UUID, actor customers.Actor, input customers.UpdateProfileDTO) (*customers.ProfileDTO, error) {
	return &customers.ProfileDTO{ID: profileID}, nil
}

func (stubProfileService) List(ctx context.Context, actor customers.Actor) ([]customers.ProfileDTO, error) {
	return []customers.ProfileDTO{}, nil
}

func (stubProfileService) Delete(ctx context.Context, profileID uuid.UUID, actor customers.Actor) error {
	return nil
}

type stubGuestSessions struct {
	minted string
	valid  map[string]bool
}

func (s *stubGuestSessions) Mint(ctx context.Context) (string, error) {
	if s.minted == "" {
		s.minted = uuid.NewString()
	}
	return s.minted, nil
}

func (s *stubGuestSessions) Validate(ctx context.Context, token string) (bool, error) {
	if s.valid == nil {
		return true, nil
	}
	return s.valid[token], nil
}

type stubCustomerDirectory struct {
	byUser map[uuid.UUID]*models.Customer
}

func (s *stubCustomerDirectory) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error) {
	if customer, ok := s.byUser[userID]; ok {
		return customer, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60},
	}
}

func newTestRouter(cfg *config.Config, sessions *stubGuestSessions, directory *stubCustomerDirectory) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if sessions == nil {
		sessions = &stubGuestSessions{}
	}
	if directory == nil {
		directory = &stubCustomerDirectory{}
	}
	return NewRouter(RouterParams{
		Config:        cfg,
		Logger:        logg,
		DB:            stubPinger{},
		GuestSessions: sessions,
		Customers:     directory,
		Auth:          stubAuthService{},
		Catalog:       stubCatalogService{},
		Cart:          stubCartService{},
		Orders:        stubOrdersService{},
		Payment:       stubPaymentService{},
		Profiles:      stubProfileService{},
	})
}

func TestHealthzResponds(t *testing.T) {
	router := newTestRouter(testConfig(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if env := resp.Header().Get("X-FashionPlace-Env"); env != "test" {
		t.Fatalf("expected env header test got %q", env)
	}
}

func TestCatalogIsPublic(t *testing.T) {
	router := newTestRouter(testConfig(), nil, nil)
	for _, path := range []string{"/api/v1/categories", "/api/v1/products", "/api/v1/products/featured"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestGuestCartCreateMintsSessionToken(t *testing.T) {
	sessions := &stubGuestSessions{}
	router := newTestRouter(testConfig(), sessions, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			SessionToken string `json:"session_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.SessionToken == "" || envelope.Data.SessionToken != sessions.minted {
		t.Fatalf("expected minted session token %q got %q", sessions.minted, envelope.Data.SessionToken)
	}
	if header := resp.Header().Get("X-Session-Token"); header != sessions.minted {
		t.Fatalf("expected session token header got %q", header)
	}
}

func TestCartRejectsUnknownSessionToken(t *testing.T) {
	sessions := &stubGuestSessions{valid: map[string]bool{}}
	router := newTestRouter(testConfig(), sessions, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts", nil)
	req.Header.Set("X-Session-Token", "stale")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for stale session got %d", resp.Code)
	}
}

func TestCartCreateForCustomer(t *testing.T) {
	cfg := testConfig()
	userID := uuid.New()
	directory := &stubCustomerDirectory{byUser: map[uuid.UUID]*models.Customer{
		userID: {ID: uuid.New(), UserID: userID},
	}}
	router := newTestRouter(cfg, nil, directory)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, userID, enums.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if strings.Contains(resp.Body.String(), "session_token") {
		t.Fatalf("customer cart response should not carry a session token: %s", resp.Body.String())
	}
}

func TestOrdersRequireJWT(t *testing.T) {
	router := newTestRouter(testConfig(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestOrdersListWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New(), enums.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestProfilesRequireJWT(t *testing.T) {
	router := newTestRouter(testConfig(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPaymentCaptureRouted(t *testing.T) {
	router := newTestRouter(testConfig(), nil, nil)
	body := `{"payment_token":"tok_visa"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/"+uuid.NewString(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "ch_stub") {
		t.Fatalf("expected receipt in response got %s", resp.Body.String())
	}
}

func buildToken(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
