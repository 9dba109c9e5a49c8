package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
)

// AdminService is the part of *admin.Session exposed over HTTP.
type AdminService interface {
	ServerInfo(ctx context.Context) (*admin.ServerReport, error)
	ListServices(ctx context.Context) ([]admin.ServiceRef, error)
	ListFolders(ctx context.Context) ([]string, error)
}

// ReportLoader reads a cached report; a nil report means nothing is cached.
type ReportLoader interface {
	LoadReport(ctx context.Context, server string) (*admin.ServerReport, error)
}

// AdminHandler serves read-only views of one ArcGIS Server site.
type AdminHandler struct {
	logger  *zap.Logger
	service AdminService
	reports ReportLoader
	server  string
}

// NewAdminHandler creates a handler for server (host:port).
// reports is optional; without it every report is built live.
func NewAdminHandler(logger *zap.Logger, service AdminService, reports ReportLoader, server string) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		logger:  logger,
		service: service,
		reports: reports,
		server:  server,
	}
}

// GetReport returns the cached server report, building it live on a miss.
func (h *AdminHandler) GetReport(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if h.reports != nil {
		report, err := h.reports.LoadReport(ctx, h.server)
		if err != nil {
			h.logger.Warn("api.report_cache_failed", zap.Error(err))
		} else if report != nil {
			return c.JSON(ReportResponse{Source: "cache", Report: report})
		}
	}

	report, err := h.service.ServerInfo(ctx)
	if err != nil {
		return h.fail(c, "server_info", err)
	}
	return c.JSON(ReportResponse{Source: "live", Report: report})
}

// ListServices returns every non-reserved service as folder//name.type.
func (h *AdminHandler) ListServices(c *fiber.Ctx) error {
	refs, err := h.service.ListServices(c.UserContext())
	if err != nil {
		return h.fail(c, "list_services", err)
	}
	out := make([]ServiceEntry, 0, len(refs))
	for _, r := range refs {
		out = append(out, ServiceEntry{Service: r.String(), Folder: r.Folder, Name: r.Name, Type: r.Type})
	}
	return c.JSON(ServicesResponse{Server: h.server, Services: out})
}

// ListFolders returns the site's folder names.
func (h *AdminHandler) ListFolders(c *fiber.Ctx) error {
	folders, err := h.service.ListFolders(c.UserContext())
	if err != nil {
		return h.fail(c, "list_folders", err)
	}
	return c.JSON(FoldersResponse{Server: h.server, Folders: folders})
}

// fail maps admin errors to HTTP statuses: rejected requests are 422, failed
// sign-ins and unreachable servers are 502.
func (h *AdminHandler) fail(c *fiber.Ctx, op string, err error) error {
	var (
		be      *admin.BusinessError
		authErr *admin.AuthenticationError
		te      *admin.TransportError
	)
	resp := ErrorResponse{Error: err.Error()}
	code := fiber.StatusInternalServerError

	switch {
	case errors.As(err, &be):
		code, resp.Kind, resp.Messages = fiber.StatusUnprocessableEntity, "business", be.Messages
	case errors.As(err, &authErr):
		code, resp.Kind = fiber.StatusBadGateway, "authentication"
	case errors.As(err, &te):
		code, resp.Kind = fiber.StatusBadGateway, "transport"
	}

	h.logger.Error("api."+op+".failed",
		zap.String("server", h.server),
		zap.String("kind", resp.Kind),
		zap.Error(err))
	return c.Status(code).JSON(resp)
}
