// Package api serves node provisioning over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bibi40k/azure-vm-bootstrap/configs"
	"github.com/Bibi40k/azure-vm-bootstrap/internal/metrics"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/bootstrap"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/event"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/properties"
)

// Options configure a Server.
type Options struct {
	// Provider names the backend in node references.
	Provider string
	// Defaults are applied to every node before its own properties.
	Defaults map[string]string
	// Nodes holds optional per-node properties, keyed by node name.
	Nodes map[string]map[string]string
	// Observer receives provisioning events in addition to metrics.
	Observer event.Observer
	Logger   *slog.Logger
	// ProvisionTimeout bounds a single POST /nodes/:name.
	ProvisionTimeout time.Duration
	// MetadataTimeout bounds a fresh metadata query.
	MetadataTimeout time.Duration
}

type provisionFunc func(ctx context.Context, ref node.Ref, props properties.Properties, backend bootstrap.Backend, observer event.Observer) (*bootstrap.Node, error)

// Server exposes provisioning over HTTP. Different node names provision
// concurrently; only the node registry is serialised.
type Server struct {
	app       *fiber.App
	backend   bootstrap.Backend
	opts      Options
	observer  event.Observer
	logger    *slog.Logger
	provision provisionFunc

	mu      sync.Mutex
	nodes   map[string]*bootstrap.Node
	pending map[string]bool
}

// New builds a Server with its routes registered.
func New(backend bootstrap.Backend, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ProvisionTimeout <= 0 {
		opts.ProvisionTimeout = configs.Defaults.Timeouts.Provision()
	}
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = configs.Defaults.Timeouts.Metadata()
	}
	s := &Server{
		backend:   backend,
		opts:      opts,
		observer:  event.Multi(metrics.Observer{}, opts.Observer),
		logger:    opts.Logger,
		provision: bootstrap.ProvisionNode,
		nodes:     make(map[string]*bootstrap.Node),
		pending:   make(map[string]bool),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               configs.Defaults.API.ServiceName,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Get("/health", s.healthHandler)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	s.app.Get("/nodes", s.listHandler)
	s.app.Post("/nodes/:name", s.provisionHandler)
	s.app.Get("/nodes/:name", s.showHandler)
	s.app.Get("/nodes/:name/image", s.imageHandler)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("Starting API server", "addr", addr, "provider", s.opts.Provider)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"service":  configs.Defaults.API.ServiceName,
		"provider": s.opts.Provider,
	})
}

func (s *Server) listHandler(c *fiber.Ctx) error {
	s.mu.Lock()
	out := make([]NodeSummary, 0, len(s.nodes))
	for name, n := range s.nodes {
		md := n.InitialMetadata()
		out = append(out, NodeSummary{
			Name:      name,
			ID:        md.ID,
			Status:    md.Status,
			PublicIP:  md.PublicAddress(),
			Image:     n.ResolvedImageName(),
			RequestID: n.Request().ID(),
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return c.JSON(ListResponse{Success: true, Nodes: out})
}

func (s *Server) provisionHandler(c *fiber.Ctx) error {
	name := c.Params("name")
	overrides := map[string]string{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&overrides); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(Response{
				Error: "Invalid request format: " + err.Error(),
				Kind:  node.KindConfiguration,
			})
		}
	}

	if err := s.reserve(name); err != nil {
		return c.Status(fiber.StatusConflict).JSON(Response{Error: err.Error()})
	}

	props := properties.New(s.opts.Defaults).With(s.opts.Nodes[name]).With(overrides)
	ref := node.Ref{Name: name, Provider: s.opts.Provider}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.opts.ProvisionTimeout)
	defer cancel()
	n, err := s.provision(ctx, ref, props, s.backend, s.observer)
	s.release(name, n)
	if err != nil {
		s.logger.Error("Provisioning failed", "node", name, "error", err)
		return s.errorResponse(c, err)
	}

	md := n.InitialMetadata()
	s.logger.Info("Node provisioned", "node", name, "image", n.ResolvedImageName(), "public_ip", md.PublicAddress())
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success:   true,
		Message:   fmt.Sprintf("Node %q successfully provisioned", name),
		Node:      &md,
		Image:     n.ResolvedImageName(),
		RequestID: n.Request().ID(),
	})
}

func (s *Server) showHandler(c *fiber.Ctx) error {
	n, err := s.lookup(c.Params("name"))
	if err != nil {
		return s.errorResponse(c, err)
	}

	md := n.InitialMetadata()
	if c.QueryBool("fresh") {
		ctx, cancel := context.WithTimeout(c.UserContext(), s.opts.MetadataTimeout)
		defer cancel()
		md, err = n.FreshMetadata(ctx)
		if err != nil {
			return s.errorResponse(c, err)
		}
	}
	return c.JSON(Response{Success: true, Node: &md, Image: n.ResolvedImageName(), RequestID: n.Request().ID()})
}

func (s *Server) imageHandler(c *fiber.Ctx) error {
	n, err := s.lookup(c.Params("name"))
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(Response{Success: true, Image: n.ResolvedImageName()})
}

func (s *Server) lookup(name string) (*bootstrap.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[name]
	if !ok {
		return nil, errors.NotFoundf("node %q", name)
	}
	return n, nil
}

func (s *Server) reserve(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[name]; ok {
		return fmt.Errorf("node %q already exists", name)
	}
	if s.pending[name] {
		return fmt.Errorf("node %q is being provisioned", name)
	}
	s.pending[name] = true
	return nil
}

// release clears the pending mark and registers n when provisioning
// succeeded.
func (s *Server) release(name string, n *bootstrap.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, name)
	if n != nil {
		s.nodes[name] = n
	}
}

func (s *Server) errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(Response{Error: err.Error(), Kind: node.KindOf(err)})
}

func statusFor(err error) int {
	switch node.KindOf(err) {
	case node.KindConfiguration:
		return http.StatusBadRequest
	case node.KindNotFound:
		return http.StatusNotFound
	case node.KindProvisioning:
		return http.StatusBadGateway
	}
	if errors.Is(err, errors.NotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, errors.NotValid) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
