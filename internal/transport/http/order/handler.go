package order

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/auth"
	"github.com/Additional-Code/bistro/internal/dto"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/presentation/http/response"
	service "github.com/Additional-Code/bistro/internal/service/order"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/bistro/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger.Named("http.orders")}
}

// Register routes with provided Echo instance behind bearer auth.
func Register(e *echo.Echo, h *Handler, tokens *auth.Tokens) {
	g := e.Group("/orders", auth.Middleware(tokens))
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.PUT("/:id", h.update)
	g.PUT("/:id/cancel", h.cancel)
	g.PUT("/:id/status", h.advanceStatus)
}

func (h *Handler) create(c echo.Context) error {
	caller, _ := auth.CallerFrom(c)

	var payload dto.OrderRequest
	if err := c.Bind(&payload); err != nil {
		return h.fail(c, errorbank.InvalidInput("invalid payload", errorbank.WithCause(err)))
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(attribute.String("user.id", caller.UserID)))
	defer span.End()

	order, err := h.svc.Create(ctx, caller, toInput(payload))
	if err != nil {
		return h.fail(c, err)
	}
	return response.New(c).WithStatus(http.StatusCreated).WithData(toDTO(order)).Build()
}

func (h *Handler) list(c echo.Context) error {
	caller, _ := auth.CallerFrom(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list", trace.WithAttributes(attribute.String("user.id", caller.UserID)))
	defer span.End()

	orders, err := h.svc.List(ctx, caller)
	if err != nil {
		return h.fail(c, err)
	}
	return response.New(c).WithCount(len(orders)).WithData(toDTOs(orders)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	caller, _ := auth.CallerFrom(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, caller, id)
	if err != nil {
		return h.fail(c, err)
	}
	return response.New(c).WithData(toDTO(order)).Build()
}

func (h *Handler) update(c echo.Context) error {
	caller, _ := auth.CallerFrom(c)
	id := c.Param("id")

	var payload dto.OrderRequest
	if err := c.Bind(&payload); err != nil {
		return h.fail(c, errorbank.InvalidInput("invalid payload", errorbank.WithCause(err)))
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Update(ctx, caller, id, toInput(payload))
	if err != nil {
		return h.fail(c, err)
	}
	return response.New(c).WithData(toDTO(order)).Build()
}

func (h *Handler) cancel(c echo.Context) error {
	caller, _ := auth.CallerFrom(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancel", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Cancel(ctx, caller, id)
	if err != nil {
		return h.fail(c, err)
	}
	return response.New(c).WithData(toDTO(order)).Build()
}

func (h *Handler) advanceStatus(c echo.Context) error {
	caller, _ := auth.CallerFrom(c)
	id := c.Param("id")

	var payload dto.StatusRequest
	if err := c.Bind(&payload); err != nil {
		return h.fail(c, errorbank.InvalidInput("invalid payload", errorbank.WithCause(err)))
	}
	if err := c.Validate(&payload); err != nil {
		return h.fail(c, err)
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.advanceStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.target_status", payload.Status),
	))
	defer span.End()

	order, err := h.svc.AdvanceStatus(ctx, caller, id, entity.Status(payload.Status))
	if err != nil {
		return h.fail(c, err)
	}
	return response.New(c).WithData(toDTO(order)).Build()
}

func (h *Handler) fail(c echo.Context, err error) error {
	appErr := errorbank.From(err)
	if appErr.Kind() == errorbank.KindInternal {
		h.logger.Error("order request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return response.New(c).WithError(appErr).Build()
}
