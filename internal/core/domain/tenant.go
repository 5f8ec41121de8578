package domain

import "fmt"

// TenantConfig holds the deterministic per-tenant identifiers every resource
// name is derived from. The arithmetic port derivation caps safe concurrent
// tenants to the usable port range and can collide with system ports for
// large identifiers; callers accepting arbitrary tenant ids must bound them.
type TenantConfig struct {
	TenantID    int64
	Port        int
	DBName      string
	ProjectName string
}

// DeriveTenantConfig computes the tenant's port, database name and project
// namespace. It is pure and total for any tenant id.
func DeriveTenantConfig(tenantID int64, basePort int, prefix string) TenantConfig {
	return TenantConfig{
		TenantID:    tenantID,
		Port:        basePort + int(tenantID),
		DBName:      fmt.Sprintf("db_%d", tenantID),
		ProjectName: fmt.Sprintf("%s_%d", prefix, tenantID),
	}
}

// NetworkName is the per-tenant bridge network.
func (c TenantConfig) NetworkName() string { return c.ProjectName + "_network" }

// VolumeName is the per-tenant database data volume.
func (c TenantConfig) VolumeName() string { return c.ProjectName + "_postgres_data" }

// DBContainerName is the tenant's database container name.
func (c TenantConfig) DBContainerName() string { return c.ProjectName + "_postgres" }

// AppContainerName is the tenant's application container name.
func (c TenantConfig) AppContainerName() string { return c.ProjectName + "_cyber" }

// ImageTag is the tenant's application image reference.
func (c TenantConfig) ImageTag() string { return c.ProjectName + "_cyber:latest" }
