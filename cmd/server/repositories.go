package main

import (
	"github.com/asklokesh/FireLater-sub015/internal/infra/postgres"
	"github.com/asklokesh/FireLater-sub015/internal/infra/redis"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// Repositories holds all repository instances.
type Repositories struct {
	Tenant       *postgres.TenantRepository
	Request      *postgres.RequestRepository
	Rule         workflowrule.Repository
	ExecutionLog *postgres.ExecutionLogRepository
	SLA          *postgres.SLARepository
	Report       *postgres.ReportRepository
	ReportSource *postgres.ReportSource
	HealthScore  *postgres.HealthScoreStore
	Mutator      *postgres.EntityMutator
	Provisioner  *postgres.SchemaProvisioner
}

// NewRepositories creates all repository instances. The workflow rule
// repository is wrapped in the Redis read-through cache because the engine
// fetches the active rule set on every domain event.
func NewRepositories(db *postgres.DB, redisClient *redis.Client, log *logger.Logger) *Repositories {
	return &Repositories{
		Tenant:       postgres.NewTenantRepository(db),
		Request:      postgres.NewRequestRepository(db),
		Rule:         redis.NewRuleCache(postgres.NewWorkflowRuleRepository(db), redisClient, log),
		ExecutionLog: postgres.NewExecutionLogRepository(db),
		SLA:          postgres.NewSLARepository(db),
		Report:       postgres.NewReportRepository(db),
		ReportSource: postgres.NewReportSource(db),
		HealthScore:  postgres.NewHealthScoreStore(db),
		Mutator:      postgres.NewEntityMutator(db),
		Provisioner:  postgres.NewSchemaProvisioner(db),
	}
}
