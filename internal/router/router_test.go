package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lumina_shop/internal/controller"
	"lumina_shop/internal/middleware"
	"lumina_shop/internal/model"
	"lumina_shop/internal/repository"
	"lumina_shop/internal/service"
	"lumina_shop/pkg/seed"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 测试辅助 ====================

type stubGenerator struct {
	reply string
}

func (g *stubGenerator) Generate(ctx context.Context, req service.GenerateRequest) (string, error) {
	return g.reply, nil
}
func (g *stubGenerator) Transport() string { return "stub" }
func (g *stubGenerator) Model() string     { return "stub-model" }

type testServer struct {
	engine    *gin.Engine
	uploadDir string
}

type apiResp struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Warning string          `json:"warning"`
	Data    json.RawMessage `json:"data"`
}

func setupServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1) // :memory: 每个连接是独立的库
	require.NoError(t, db.AutoMigrate(&model.AICallLog{}))
	aiLogRepo := repository.NewAICallLogRepository(db)

	c, err := seed.LoadCatalog()
	require.NoError(t, err)
	catalog, err := service.NewCatalogService(c, nil)
	require.NoError(t, err)
	table, err := seed.LoadTranslations()
	require.NoError(t, err)
	locale := service.NewLocaleService(table, service.DefaultExchangeRate)

	shoppers := service.NewShopperService(repository.NewRedisStateRepository(rdb, 0), time.Minute, nil)
	checkout := service.NewCheckoutService(0, nil)
	assistant := service.NewAssistantService(&stubGenerator{reply: `{"response":"Try the controller","recommended_ids":[25]}`}, aiLogRepo, nil)
	chats := service.NewChatService(assistant, catalog)

	uploadDir := t.TempDir()
	storage, err := service.NewStorageProvider(&service.StorageConfig{
		Provider: "local",
		LocalDir: uploadDir,
		BaseURL:  "http://localhost/uploads",
	})
	require.NoError(t, err)

	middleware.SetJWTConfig(&middleware.JWTConfig{SecretKey: "router-test-secret"})
	hash, err := service.HashPassword("secret")
	require.NoError(t, err)
	admin := service.NewAdminService("admin", hash, nil)

	r := gin.New()
	InitRoutes(r, Controllers{
		Storefront: controller.NewStorefrontController(catalog, shoppers, locale, nil),
		Shopper:    controller.NewShopperController(catalog, shoppers, checkout, locale, nil),
		Chat:       controller.NewChatController(chats, catalog, nil),
		Locale:     controller.NewLocaleController(locale),
		Admin:      controller.NewAdminController(admin, catalog, storage, aiLogRepo, nil),
	}, opts)

	return &testServer{engine: r, uploadDir: uploadDir}
}

func (s *testServer) do(t *testing.T, method, path, session string, body interface{}, headers ...string) (*httptest.ResponseRecorder, apiResp) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp apiResp
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

type productItem struct {
	ID           int64  `json:"id"`
	DisplayPrice string `json:"displayPrice"`
}

// ==================== 目录浏览 ====================

func TestRoutes_SessionHeader(t *testing.T) {
	s := setupServer(t, Options{})

	w, _ := s.do(t, http.MethodGet, "/api/categories", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(w.Header().Get(middleware.SessionHeader))
	assert.NoError(t, err)

	session := uuid.NewString()
	w, _ = s.do(t, http.MethodGet, "/api/categories", session, nil)
	assert.Equal(t, session, w.Header().Get(middleware.SessionHeader))
}

func TestRoutes_Products(t *testing.T) {
	s := setupServer(t, Options{})

	w, resp := s.do(t, http.MethodGet, "/api/products?category=phones&sort=price-asc&currency=EGP", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Total  int           `json:"total"`
		Brands []string      `json:"brands"`
		List   []productItem `json:"list"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Equal(t, 4, list.Total)
	assert.Equal(t, []int64{1, 11, 4, 10}, []int64{list.List[0].ID, list.List[1].ID, list.List[2].ID, list.List[3].ID})
	assert.Equal(t, "EGP 6,025.00", list.List[0].DisplayPrice)
	assert.Equal(t, []string{"Apple", "Infinix", "Samsung", "Xiaomi"}, list.Brands)

	w, _ = s.do(t, http.MethodGet, "/api/products?min_price=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = s.do(t, http.MethodGet, "/api/products?min_price=50&max_price=100&brands=JBL,Logitech", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Equal(t, 2, list.Total)
}

func TestRoutes_ProductDetailAndHome(t *testing.T) {
	s := setupServer(t, Options{})
	session := uuid.NewString()

	w, _ := s.do(t, http.MethodGet, "/api/products/9999", session, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp := s.do(t, http.MethodGet, "/api/products/24", session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Product productItem `json:"product"`
		Reviews struct {
			Total int `json:"total"`
		} `json:"reviews"`
		Similar []productItem `json:"similar"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &detail))
	assert.Equal(t, int64(24), detail.Product.ID)
	assert.Equal(t, 5, detail.Reviews.Total)
	require.Len(t, detail.Similar, 1)
	assert.Equal(t, int64(25), detail.Similar[0].ID)

	w, resp = s.do(t, http.MethodGet, "/api/home", session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var home struct {
		Recommended    []productItem `json:"recommended"`
		RecentlyViewed []productItem `json:"recentlyViewed"`
		FlashSales     []productItem `json:"flashSales"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &home))
	require.Len(t, home.RecentlyViewed, 1)
	assert.Equal(t, int64(24), home.RecentlyViewed[0].ID)
	require.Len(t, home.Recommended, 1)
	assert.Equal(t, int64(25), home.Recommended[0].ID)
	assert.Len(t, home.FlashSales, 8)

	w, _ = s.do(t, http.MethodGet, "/api/sellers/nope", session, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/sellers/s2?q=wallet", session, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ==================== 购物流程 ====================

func TestRoutes_CartWishlistCheckout(t *testing.T) {
	s := setupServer(t, Options{})
	session := uuid.NewString()

	w, _ := s.do(t, http.MethodPost, "/api/cart/items", session, map[string]int64{"productId": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.do(t, http.MethodPost, "/api/cart/items", session, map[string]int64{"productId": 1})
	s.do(t, http.MethodPost, "/api/cart/items", session, map[string]int64{"productId": 1})
	w, resp := s.do(t, http.MethodPost, "/api/cart/items", session, map[string]int64{"productId": 3})
	require.Equal(t, http.StatusOK, w.Code)

	var cart struct {
		Count int     `json:"count"`
		Total float64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &cart))
	assert.Equal(t, 3, cart.Count)
	assert.InDelta(t, 256.99, cart.Total, 1e-9)

	_, resp = s.do(t, http.MethodGet, "/api/toast", session, nil)
	var toast model.Toast
	require.NoError(t, json.Unmarshal(resp.Data, &toast))
	assert.True(t, toast.Visible)
	assert.Contains(t, toast.Message, "to cart")

	_, resp = s.do(t, http.MethodDelete, "/api/toast", session, nil)
	require.NoError(t, json.Unmarshal(resp.Data, &toast))
	assert.False(t, toast.Visible)

	_, resp = s.do(t, http.MethodPatch, "/api/cart/items/3", session, map[string]int{"quantity": 0})
	require.NoError(t, json.Unmarshal(resp.Data, &cart))
	assert.Equal(t, 3, cart.Count)

	s.do(t, http.MethodDelete, "/api/cart/items/3", session, nil)

	w, resp = s.do(t, http.MethodPost, "/api/wishlist/8/toggle", session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var toggled struct {
		InWishlist bool `json:"inWishlist"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &toggled))
	assert.True(t, toggled.InWishlist)

	w, _ = s.do(t, http.MethodPost, "/api/checkout", session, map[string]string{"fullName": "Jane"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	details := map[string]string{
		"fullName": "Jane Doe", "phone": "0100", "street": "1 Nile St", "city": "Cairo", "paymentMethod": "cod",
	}
	w, resp = s.do(t, http.MethodPost, "/api/checkout", session, details)
	require.Equal(t, http.StatusCreated, w.Code)
	var order model.Order
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	assert.True(t, strings.HasPrefix(order.ID, "LUM-"))
	assert.Equal(t, model.OrderStatusProcessing, order.Status)
	assert.Equal(t, 241.0, order.Total)

	_, resp = s.do(t, http.MethodGet, "/api/cart", session, nil)
	require.NoError(t, json.Unmarshal(resp.Data, &cart))
	assert.Equal(t, 0, cart.Count)

	_, resp = s.do(t, http.MethodGet, "/api/orders", session, nil)
	var orders []model.Order
	require.NoError(t, json.Unmarshal(resp.Data, &orders))
	assert.Len(t, orders, 1)

	w, _ = s.do(t, http.MethodPost, "/api/checkout", session, details)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 其他会话看不到
	_, resp = s.do(t, http.MethodGet, "/api/orders", uuid.NewString(), nil)
	require.NoError(t, json.Unmarshal(resp.Data, &orders))
	assert.Empty(t, orders)
}

// ==================== 导购对话 ====================

func TestRoutes_Chat(t *testing.T) {
	s := setupServer(t, Options{ChatInterval: time.Hour})
	session := uuid.NewString()

	w, _ := s.do(t, http.MethodPost, "/api/chat", session, map[string]string{"text": "controller?"})
	require.Equal(t, http.StatusOK, w.Code)

	var reply struct {
		Message  model.ChatMessage `json:"message"`
		Products []productItem     `json:"products"`
		Degraded bool              `json:"degraded"`
	}
	_, resp := s.do(t, http.MethodGet, "/api/chat", session, nil)
	var history struct {
		Messages []model.ChatMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	assert.Len(t, history.Messages, 3)

	// 冷却期内再次提问
	w, _ = s.do(t, http.MethodPost, "/api/chat/ask/24", session, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// 其他会话不受影响
	w, resp = s.do(t, http.MethodPost, "/api/chat/ask/24", uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &reply))
	assert.Equal(t, "Try the controller", reply.Message.Text)
	assert.False(t, reply.Degraded)
	require.Len(t, reply.Products, 1)
	assert.Equal(t, int64(25), reply.Products[0].ID)

	_, resp = s.do(t, http.MethodDelete, "/api/chat/pending", session, nil)
	assert.JSONEq(t, `{"cancelled":false}`, string(resp.Data))
}

// ==================== 语言 ====================

func TestRoutes_Locale(t *testing.T) {
	s := setupServer(t, Options{})

	_, resp := s.do(t, http.MethodGet, "/api/locale/price?amount=1234.5", "", nil)
	var price struct {
		Formatted string `json:"formatted"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &price))
	assert.Equal(t, "$1,234.50", price.Formatted)

	_, resp = s.do(t, http.MethodGet, "/api/locale/translate?key=trending&lang=ar", "", nil)
	var tr struct {
		Direction string `json:"direction"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &tr))
	assert.Equal(t, "rtl", tr.Direction)

	w, _ := s.do(t, http.MethodGet, "/api/locale/translate", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ==================== 后台 ====================

func adminLogin(t *testing.T, s *testServer) string {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"username": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	var res service.LoginResult
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	require.NotEmpty(t, res.AccessToken)
	return "Bearer " + res.AccessToken
}

func TestRoutes_AdminAuth(t *testing.T) {
	s := setupServer(t, Options{})

	w, _ := s.do(t, http.MethodGet, "/api/admin/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := adminLogin(t, s)
	w, resp := s.do(t, http.MethodGet, "/api/admin/dashboard", "", nil, "Authorization", token)
	require.Equal(t, http.StatusOK, w.Code)
	var d service.Dashboard
	require.NoError(t, json.Unmarshal(resp.Data, &d))
	assert.Equal(t, 26, d.TotalProducts)
}

func TestRoutes_AdminLoginCooldown(t *testing.T) {
	s := setupServer(t, Options{LoginInterval: time.Hour})

	w, _ := s.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"username": "admin", "password": "secret"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRoutes_AdminCatalog(t *testing.T) {
	s := setupServer(t, Options{})
	token := adminLogin(t, s)
	auth := []string{"Authorization", token}

	// 优惠券
	coupon := map[string]interface{}{"code": "new10", "discountType": "fixed", "value": 10, "expiryDate": "2030-01-01T00:00:00Z"}
	w, _ := s.do(t, http.MethodPost, "/api/admin/coupons", "", coupon, auth...)
	assert.Equal(t, http.StatusCreated, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/admin/coupons", "", coupon, auth...)
	assert.Equal(t, http.StatusConflict, w.Code)
	coupon["code"], coupon["discountType"] = "other", "bogus"
	w, _ = s.do(t, http.MethodPost, "/api/admin/coupons", "", coupon, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 订单状态
	w, _ = s.do(t, http.MethodPatch, "/api/admin/orders/ORD-7722/status", "", map[string]string{"status": "Shipped"}, auth...)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPatch, "/api/admin/orders/ORD-7722/status", "", map[string]string{"status": "shipped"}, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPatch, "/api/admin/orders/ORD-0/status", "", map[string]string{"status": "Shipped"}, auth...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp := s.do(t, http.MethodPost, "/api/admin/orders", "", map[string]interface{}{"customerName": "Dina", "total": 12, "productIds": []int64{22}}, auth...)
	require.Equal(t, http.StatusCreated, w.Code)
	var order model.Order
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	assert.Equal(t, model.OrderStatusProcessing, order.Status)
	assert.Len(t, order.Items, 1)

	// 卖家认证
	w, resp = s.do(t, http.MethodPost, "/api/admin/sellers/s3/verify", "", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	var seller model.Seller
	require.NoError(t, json.Unmarshal(resp.Data, &seller))
	assert.True(t, seller.IsOfficial)

	// 商品
	w, resp = s.do(t, http.MethodPost, "/api/admin/products", "", map[string]interface{}{"title": "Lamp", "price": 20, "category": "home", "image": "lamp.jpg"}, auth...)
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.Product
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, "admin", created.Seller.ID)

	w, _ = s.do(t, http.MethodPut, "/api/admin/products/9999", "", map[string]interface{}{"title": "X", "category": "home"}, auth...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/admin/products/1", "", nil, auth...)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/products/1", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = s.do(t, http.MethodGet, "/api/admin/ai/usage?days=3", "", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"days":3`)
}

func TestRoutes_AdminUploadImage(t *testing.T) {
	s := setupServer(t, Options{})
	token := adminLogin(t, s)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, _ = fw.Write(png)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/products/24/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp apiResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var up struct {
		URL     string        `json:"url"`
		Product model.Product `json:"product"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &up))
	assert.True(t, strings.HasPrefix(up.URL, "http://localhost/uploads/"))
	assert.True(t, strings.HasSuffix(up.URL, ".png"))
	assert.Equal(t, up.URL, up.Product.Images[len(up.Product.Images)-1])

	key := strings.TrimPrefix(up.URL, "http://localhost/uploads/")
	_, err = os.Stat(filepath.Join(s.uploadDir, filepath.FromSlash(key)))
	assert.NoError(t, err)
}
