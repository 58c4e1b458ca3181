package usecases

import (
	"stratum/internal/application/tenant/dto"
	"stratum/internal/domain/migration"
	domainTenant "stratum/internal/domain/tenant"
)

func toTargetResponse(target domainTenant.ConnectionTarget) dto.TargetResponse {
	return dto.TargetResponse{
		Tier:     target.Tier().String(),
		Host:     target.Host(),
		Port:     target.Port(),
		Database: target.Database(),
		Schema:   target.SchemaName(),
	}
}

func toTenantResponse(t *domainTenant.Tenant) *dto.TenantResponse {
	resp := &dto.TenantResponse{
		ID:              t.SID(),
		Name:            t.Name(),
		Slug:            t.Slug(),
		Tier:            t.Tier().String(),
		Status:          t.Status().String(),
		ActiveTarget:    toTargetResponse(t.ActiveTarget()),
		Plan:            t.Plan(),
		MaxUsers:        t.MaxUsers(),
		MaxStorageBytes: t.MaxStorageBytes(),
		ComplianceFlags: t.ComplianceFlags(),
		CreatedAt:       t.CreatedAt(),
		UpdatedAt:       t.UpdatedAt(),
	}
	if pending := t.PendingTarget(); pending != nil {
		pr := toTargetResponse(*pending)
		resp.PendingTarget = &pr
	}
	return resp
}

func toMigrationJobResponse(job *migration.Job) *dto.MigrationJobResponse {
	return &dto.MigrationJobResponse{
		ID:            job.SID(),
		CorrelationID: job.CorrelationID().String(),
		TenantID:      job.TenantSID(),
		Source:        toTargetResponse(job.Source()),
		Destination:   toTargetResponse(job.Destination()),
		State:         job.State().String(),
		FailureReason: job.FailureReason(),
		RowsCopied:    job.RowsCopied(),
		Attempt:       job.Attempt(),
		StartedAt:     job.StartedAt(),
		CompletedAt:   job.CompletedAt(),
		CreatedAt:     job.CreatedAt(),
		UpdatedAt:     job.UpdatedAt(),
	}
}
