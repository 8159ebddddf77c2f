package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/service"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

// Services are the business services behind the REST surface.
type Services struct {
	Games      *service.GameService
	Bets       *service.BetService
	Settlement *service.SettlementService
	Funds      *service.FundsService
	Users      *service.UserService
	Admins     *service.AdminService
}

type Handler struct {
	Services
	tokenAuth *jwtauth.JWTAuth
	port      string
}

func NewHandler(s Services, tokenAuth *jwtauth.JWTAuth, port string) *Handler {
	return &Handler{Services: s, tokenAuth: tokenAuth, port: port}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("encode response: %s", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, code int, message string, data interface{}) {
	h.CreateResponse(w, Response{Message: message, Code: code, Data: data})
}

// fail translates err to its status code. Internal causes are logged, never returned.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	msg := apperr.Message(err)
	if kind == apperr.Internal {
		log.Errorf("%s %s: %s", r.Method, r.URL.Path, err)
	}
	h.CreateResponse(w, Response{
		Message: msg,
		Code:    apperr.HTTPStatus(kind),
		Error:   msg,
		Kind:    string(kind),
	})
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst validatable) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("Request body is required")
		}
		return apperr.Invalid("Invalid request body")
	}
	return dst.Validate()
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "game service is running at port "+h.port, nil)
}
