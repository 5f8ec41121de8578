package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/cyberpaas/tenantdock/internal/core/domain"
	"github.com/cyberpaas/tenantdock/internal/core/ports"
)

// ProxyHandler routes tenant subdomains (e.g. cyber-42.example.test) to the
// tenant application container's published host port.
type ProxyHandler struct {
	repo   ports.RecordRepository
	prefix string
}

// NewProxyHandler creates a proxy handler claiming only subdomains under the
// given project prefix, so hosts like api.example.test reach the API routes.
func NewProxyHandler(repo ports.RecordRepository, projectPrefix string) *ProxyHandler {
	return &ProxyHandler{repo: repo, prefix: projectPrefix + "-"}
}

// ProxyRequest intercepts requests whose subdomain names a tenant project and
// reverse proxies them; everything else falls through to the API routes.
func (h *ProxyHandler) ProxyRequest(c *fiber.Ctx) error {
	host := c.Hostname()

	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return c.Next()
	}
	subdomain := parts[0]

	if !strings.HasPrefix(subdomain, h.prefix) {
		return c.Next()
	}

	// Hostnames cannot carry underscores, so the project namespace is
	// dash-encoded in the subdomain: cyber-42 -> cyber_42.
	project := strings.ReplaceAll(subdomain, "-", "_")
	appName := project + "_cyber"

	record, err := h.repo.GetByContainerID(c.Context(), appName)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).SendString(fmt.Sprintf("App '%s' not found", subdomain))
		}
		return c.Status(fiber.StatusBadGateway).SendString("Tenant lookup failed")
	}
	if record.Status != domain.StatusRunning || record.Port == 0 {
		return c.Status(fiber.StatusNotFound).SendString(fmt.Sprintf("App '%s' is not running", subdomain))
	}

	targetURL := fmt.Sprintf("http://127.0.0.1:%d", record.Port)
	remote, err := url.Parse(targetURL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Invalid target URL")
	}

	proxy := httputil.NewSingleHostReverseProxy(remote)

	// Rewrite the Host header so the container sees a host it expects.
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = remote.Host
		req.URL.Host = remote.Host
		req.URL.Scheme = remote.Scheme
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(fmt.Sprintf("Proxy Info: target=%s error=%v", targetURL, err)))
	}

	return adaptor.HTTPHandler(proxy)(c)
}
