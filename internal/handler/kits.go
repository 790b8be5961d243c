package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kitvault-api/internal/cache"
	"kitvault-api/internal/capability"
	"kitvault-api/internal/model"
	"kitvault-api/internal/service"
	"kitvault-api/pkg/apierror"
	"kitvault-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// KitHandler handles kit catalog and claim HTTP requests.
type KitHandler struct {
	catalog *service.Catalog
	claims  *service.ClaimService

	// debounceCache throttles claim attempts per account; the engine's
	// eligibility chain stays correct even when this is bypassed.
	debounceCache cache.Cache
	debounce      time.Duration

	perPage      int
	allowConsole bool
}

// KitHandlerConfig holds the dependencies for a KitHandler.
type KitHandlerConfig struct {
	Catalog       *service.Catalog
	Claims        *service.ClaimService
	DebounceCache cache.Cache
	Debounce      time.Duration
	PerPage       int
	AllowConsole  bool
}

// NewKitHandler creates a new kit handler.
func NewKitHandler(cfg KitHandlerConfig) *KitHandler {
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 28
	}
	return &KitHandler{
		catalog:       cfg.Catalog,
		claims:        cfg.Claims,
		debounceCache: cfg.DebounceCache,
		debounce:      cfg.Debounce,
		perPage:       perPage,
		allowConsole:  cfg.AllowConsole,
	}
}

// kitView is the externally visible shape of a kit definition.
type kitView struct {
	model.KitDefinition
	HasItems bool `json:"has_items"`
}

func newKitView(kit model.KitDefinition) kitView {
	v := kitView{KitDefinition: kit, HasItems: kit.HasItems()}
	return v
}

// tokenSet answers permission checks from a literal token list.
type tokenSet map[string]bool

func (t tokenSet) Has(accountID, token string) bool { return t[token] }

// List handles GET /api/v1/kits
// Optional query params: page, limit, permissions (comma-separated tokens
// held by the viewing account; filters out kits the account cannot see).
func (h *KitHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var kits []model.KitDefinition
	if raw, ok := q["permissions"]; ok {
		held := tokenSet{}
		for _, part := range strings.Split(strings.Join(raw, ","), ",") {
			if p := strings.TrimSpace(part); p != "" {
				held[p] = true
			}
		}
		kits = h.catalog.Available("", held)
	} else {
		kits = h.catalog.All()
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = h.perPage
	}

	total := len(kits)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	views := make([]kitView, 0, end-start)
	for _, kit := range kits[start:end] {
		views = append(views, newKitView(kit))
	}

	response.JSONWithMeta(w, http.StatusOK, views, page, limit, total)
}

// Names handles GET /api/v1/kits/names
func (h *KitHandler) Names(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.catalog.Names())
}

// Get handles GET /api/v1/kits/{name}
func (h *KitHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	kit, ok := h.catalog.Get(name)
	if !ok {
		response.Error(w, apierror.NotFound("kit not found"))
		return
	}
	response.OK(w, newKitView(kit))
}

// createRequest is a kit creation payload: the name plus the creator's
// captured holdings.
type createRequest struct {
	Name  string       `json:"name"`
	Items []model.Item `json:"items"`
}

// Create handles POST /api/v1/kits
func (h *KitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	result := h.catalog.Create(r.Context(), req.Name, req.Items)
	switch result {
	case model.CreateSuccess:
		kit, _ := h.catalog.Get(req.Name)
		response.Created(w, newKitView(kit))
	case model.CreateInvalidName:
		response.Error(w, apierror.BadRequest("kit name must be 1-32 characters"))
	case model.CreateAlreadyExists:
		response.Error(w, apierror.Conflict("a kit with that name already exists"))
	case model.CreateEmptySource:
		response.Error(w, apierror.BadRequest("no items to capture"))
	default:
		response.Error(w, apierror.InternalError("failed to create kit"))
	}
}

// Delete handles DELETE /api/v1/kits/{name}
func (h *KitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if !h.catalog.Delete(r.Context(), name) {
		response.Error(w, apierror.NotFound("kit not found"))
		return
	}
	response.NoContent(w)
}

// saveItemsRequest replaces a kit's item payload.
type saveItemsRequest struct {
	Items []model.Item `json:"items"`
}

// SaveItems handles PUT /api/v1/kits/{name}/items
func (h *KitHandler) SaveItems(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if _, ok := h.catalog.Get(name); !ok {
		response.Error(w, apierror.NotFound("kit not found"))
		return
	}

	var req saveItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	if !h.catalog.SaveItems(r.Context(), name, req.Items) {
		response.Error(w, apierror.InternalError("failed to save kit items"))
		return
	}
	response.OK(w, map[string]interface{}{"saved": true})
}

// claimRequest carries the claimant identity and their resolved state.
type claimRequest struct {
	Account model.Account `json:"account"`
	capability.Snapshot
}

// claimResponse reports the outcome and, on success, the delivery the game
// server must apply.
type claimResponse struct {
	Result         model.ClaimResult    `json:"result"`
	ClaimCount     int                  `json:"claim_count,omitempty"`
	ChargedDisplay string               `json:"charged_display,omitempty"`
	Delivery       *capability.Delivery `json:"delivery,omitempty"`
}

// Claim handles POST /api/v1/kits/{name}/claim
func (h *KitHandler) Claim(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.Account.ID == "" {
		response.Error(w, apierror.BadRequest("account.id is required"))
		return
	}

	if h.throttled(r, req.Account.ID) {
		response.Error(w, apierror.TooManyRequests("claim attempts too frequent"))
		return
	}

	adapter := capability.New(req.Snapshot, h.allowConsole)
	result := h.claims.Claim(r.Context(), req.Account, name, adapter.Capabilities())

	resp := claimResponse{Result: result}
	if result == model.ClaimSuccess {
		resp.Delivery = &adapter.Delivery
		if adapter.Delivery.Charged > 0 {
			resp.ChargedDisplay = adapter.Capabilities().Currency.Format(adapter.Delivery.Charged)
		}
		if record, err := h.claims.Record(r.Context(), req.Account.ID, name); err == nil && record != nil {
			resp.ClaimCount = record.ClaimCount
		}
	}
	response.OK(w, resp)
}

// statusResponse is the read-only claim preview.
type statusResponse struct {
	Result           model.ClaimResult `json:"result"`
	RemainingMS      int64             `json:"remaining_ms"`
	RemainingDisplay string            `json:"remaining_display"`
}

// Status handles POST /api/v1/kits/{name}/status
// It runs exactly the claim eligibility chain, without side effects.
func (h *KitHandler) Status(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.Account.ID == "" {
		response.Error(w, apierror.BadRequest("account.id is required"))
		return
	}

	adapter := capability.New(req.Snapshot, h.allowConsole)
	result, remaining := h.claims.Status(r.Context(), req.Account, name, adapter.Capabilities())

	display := service.FormatCooldown(remaining)
	if remaining == model.CooldownExhausted {
		display = "claimed"
	}

	response.OK(w, statusResponse{
		Result:           result,
		RemainingMS:      remaining,
		RemainingDisplay: display,
	})
}

// throttled enforces the per-account claim debounce.
func (h *KitHandler) throttled(r *http.Request, accountID string) bool {
	if h.debounceCache == nil || h.debounce <= 0 {
		return false
	}

	key := "claim:" + accountID
	if exists, err := h.debounceCache.Exists(r.Context(), key); err == nil && exists {
		return true
	}
	_ = h.debounceCache.Set(r.Context(), key, []byte{1}, h.debounce)
	return false
}
