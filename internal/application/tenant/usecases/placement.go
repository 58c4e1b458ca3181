package usecases

import (
	"stratum/internal/application/tenant/dto"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/shared/config"
	"stratum/internal/shared/errors"
)

// PlacementPlanner maps a requested isolation tier to a concrete
// connection target. Shared and schema tenants land on the configured
// fleet locations; dedicated tenants bring their own endpoint because
// provisioning a dedicated server happens outside this service.
type PlacementPlanner struct {
	cfg config.PlacementConfig
}

// NewPlacementPlanner creates a placement planner.
func NewPlacementPlanner(cfg config.PlacementConfig) *PlacementPlanner {
	return &PlacementPlanner{cfg: cfg}
}

// Plan returns the connection target for a tenant of the given tier.
func (p *PlacementPlanner) Plan(tier domainTenant.IsolationTier, slug string, dedicated *dto.TargetRequest) (domainTenant.ConnectionTarget, error) {
	switch tier {
	case domainTenant.TierShared:
		return domainTenant.NewConnectionTarget(
			domainTenant.TierShared,
			p.cfg.Shared.Host,
			p.cfg.Shared.Port,
			p.cfg.Shared.Database,
			"",
		)
	case domainTenant.TierSchema:
		return domainTenant.NewConnectionTarget(
			domainTenant.TierSchema,
			p.cfg.Schema.Host,
			p.cfg.Schema.Port,
			p.cfg.Schema.Database,
			p.cfg.SchemaPrefix+slug,
		)
	case domainTenant.TierDedicated:
		if dedicated == nil {
			return domainTenant.ConnectionTarget{}, errors.NewValidationError("dedicated tier requires an explicit target")
		}
		return domainTenant.NewConnectionTarget(
			domainTenant.TierDedicated,
			dedicated.Host,
			dedicated.Port,
			dedicated.Database,
			"",
		)
	default:
		return domainTenant.ConnectionTarget{}, errors.NewValidationError("unknown isolation tier", tier.String())
	}
}
