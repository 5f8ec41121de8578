package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cyberpaas/tenantdock/internal/adapters/metrics"
	"github.com/cyberpaas/tenantdock/internal/config"
	"github.com/cyberpaas/tenantdock/internal/core/domain"
	"github.com/cyberpaas/tenantdock/internal/core/ports"
)

const dataDir = "/var/lib/postgresql/data"

// Provisioner stands up the per-tenant application+database container pair.
// Same-tenant calls are serialized in-process; cross-process serialization is
// the caller's responsibility.
type Provisioner struct {
	runtime ports.ContainerRuntime
	builder ports.ImageBuilder
	repo    ports.RecordRepository
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	tenants map[int64]*sync.Mutex
}

// NewProvisioner wires the orchestrator with its injected dependencies.
func NewProvisioner(runtime ports.ContainerRuntime, builder ports.ImageBuilder, repo ports.RecordRepository, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Provisioner {
	return &Provisioner{
		runtime: runtime,
		builder: builder,
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		tenants: map[int64]*sync.Mutex{},
	}
}

// TenantConfigFor derives the deterministic per-tenant identifiers.
func (p *Provisioner) TenantConfigFor(tenantID int64) domain.TenantConfig {
	return domain.DeriveTenantConfig(tenantID, p.cfg.BasePort, p.cfg.ProjectPrefix)
}

// CreateTenantEnvironment provisions the tenant's network, volume, database
// container and application container in strict order and persists both
// records in one transaction. It returns the application container's
// runtime-assigned name. The first failing step aborts the remainder and is
// reported as a *domain.ProvisionError; resources created by earlier steps
// are not rolled back.
func (p *Provisioner) CreateTenantEnvironment(ctx context.Context, tenantID int64, plan string) (string, error) {
	unlock := p.lockTenant(tenantID)
	defer unlock()

	started := time.Now()
	opID := uuid.NewString()
	logger := p.logger.With("op_id", opID, "tenant_id", tenantID, "plan", plan)

	name, err := p.provision(ctx, tenantID, plan, logger)
	p.metrics.ProvisionDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		p.metrics.ProvisionsTotal.WithLabelValues("error").Inc()
		logger.Error("provisioning failed", "error", err)
		return "", err
	}
	p.metrics.ProvisionsTotal.WithLabelValues("success").Inc()
	logger.Info("tenant environment provisioned", "container", name, "duration", time.Since(started))
	return name, nil
}

func (p *Provisioner) provision(ctx context.Context, tenantID int64, plan string, logger *slog.Logger) (string, error) {
	tc := p.TenantConfigFor(tenantID)

	if err := p.runtime.EnsureNetwork(ctx, tc.NetworkName(), p.cfg.NetworkDriver); err != nil {
		return "", &domain.ProvisionError{Step: "ensure network", Err: err}
	}

	if err := p.runtime.RemoveContainerIfExists(ctx, tc.DBContainerName()); err != nil {
		return "", &domain.ProvisionError{Step: "remove stale db container", Err: err}
	}

	if err := p.runtime.EnsureVolume(ctx, tc.VolumeName()); err != nil {
		return "", &domain.ProvisionError{Step: "ensure volume", Err: err}
	}

	if _, err := p.runtime.RunContainer(ctx, p.dbSpec(tc)); err != nil {
		return "", &domain.ProvisionError{Step: "run db container", Err: err}
	}
	logger.Info("database container deployed", "container", tc.DBContainerName())

	if err := p.ensureImage(ctx, tc, logger); err != nil {
		return "", &domain.ProvisionError{Step: "ensure image", Err: err}
	}

	if err := p.runtime.RemoveContainerIfExists(ctx, tc.AppContainerName()); err != nil {
		return "", &domain.ProvisionError{Step: "remove stale app container", Err: err}
	}

	appName, err := p.runtime.RunContainer(ctx, p.appSpec(tc))
	if err != nil {
		return "", &domain.ProvisionError{Step: "run app container", Err: err}
	}
	logger.Info("application container deployed", "container", appName, "port", tc.Port)

	app := &domain.ContainerRecord{
		UserID:      tenantID,
		ContainerID: appName,
		Port:        tc.Port,
		DBName:      tc.DBName,
		Plan:        plan,
		Status:      domain.StatusRunning,
	}
	db := &domain.ContainerRecord{
		UserID:      tenantID,
		ContainerID: tc.DBContainerName(),
		Port:        p.cfg.DBPort,
		DBName:      tc.DBName,
		Plan:        plan,
		Status:      domain.StatusRunning,
	}
	if err := p.repo.CreatePair(ctx, app, db); err != nil {
		return "", &domain.ProvisionError{Step: "persist records", Err: err}
	}

	return appName, nil
}

func (p *Provisioner) ensureImage(ctx context.Context, tc domain.TenantConfig, logger *slog.Logger) error {
	exists, err := p.runtime.ImageExists(ctx, tc.ImageTag())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if p.cfg.BuildRepoURL != "" {
		logger.Info("building application image from repo", "tag", tc.ImageTag(), "repo", p.cfg.BuildRepoURL)
		_, err = p.builder.BuildFromRepo(ctx, p.cfg.BuildRepoURL, p.cfg.Dockerfile, tc.ImageTag())
		return err
	}
	logger.Info("building application image", "tag", tc.ImageTag())
	_, err = p.builder.BuildImage(ctx, p.cfg.BuildContextDir, p.cfg.Dockerfile, tc.ImageTag())
	return err
}

func (p *Provisioner) dbSpec(tc domain.TenantConfig) domain.ContainerSpec {
	return domain.ContainerSpec{
		Image:   p.cfg.PostgresImage,
		Name:    tc.DBContainerName(),
		Network: tc.NetworkName(),
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=" + p.cfg.TenantDBPassword,
			"POSTGRES_DB=" + tc.DBName,
		},
		// Ephemeral host port; the database is addressed over the tenant
		// network by the application.
		Ports:         []domain.PortBinding{{ContainerPort: p.cfg.DBPort}},
		Binds:         map[string]string{tc.VolumeName(): dataDir},
		RestartPolicy: p.cfg.RestartPolicy,
		Pull:          true,
	}
}

func (p *Provisioner) appSpec(tc domain.TenantConfig) domain.ContainerSpec {
	dbHost := tc.DBContainerName()
	dbURL := fmt.Sprintf(p.cfg.TenantDBURLTemplate, p.cfg.TenantDBPassword, dbHost, tc.DBName)
	return domain.ContainerSpec{
		Image:   tc.ImageTag(),
		Name:    tc.AppContainerName(),
		Network: tc.NetworkName(),
		Env: []string{
			"DATABASE_URL=" + dbURL,
			"POSTGRES_HOST=" + dbHost,
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=" + p.cfg.TenantDBPassword,
			"POSTGRES_DB=" + tc.DBName,
		},
		Ports:         []domain.PortBinding{{ContainerPort: p.cfg.AppPort, HostPort: tc.Port}},
		RestartPolicy: p.cfg.RestartPolicy,
	}
}

// lockTenant serializes provisioning per tenant: the remove-then-create steps
// race against themselves for the same resource names.
func (p *Provisioner) lockTenant(tenantID int64) func() {
	p.mu.Lock()
	m, ok := p.tenants[tenantID]
	if !ok {
		m = &sync.Mutex{}
		p.tenants[tenantID] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
