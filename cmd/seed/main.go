// Command seed provisions tenants with demo rules, SLA policies and
// scheduled reports from a YAML fixture file. Development and demo
// environments only.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/asklokesh/FireLater-sub015/internal/app"
	"github.com/asklokesh/FireLater-sub015/internal/config"
	"github.com/asklokesh/FireLater-sub015/internal/infra/postgres"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/report"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/sla"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

type fixtureFile struct {
	Tenants []tenantFixture `yaml:"tenants"`
}

type tenantFixture struct {
	Slug     string          `yaml:"slug"`
	Name     string          `yaml:"name"`
	Rules    []ruleFixture   `yaml:"rules"`
	Policies []policyFixture `yaml:"sla_policies"`
	Reports  []reportFixture `yaml:"reports"`
}

type ruleFixture struct {
	Name           string                   `yaml:"name"`
	EntityType     string                   `yaml:"entity_type"`
	TriggerType    string                   `yaml:"trigger_type"`
	Conditions     []workflowrule.Condition `yaml:"conditions"`
	Actions        []workflowrule.Action    `yaml:"actions"`
	ExecutionOrder int                      `yaml:"execution_order"`
	StopOnMatch    bool                     `yaml:"stop_on_match"`
}

type policyFixture struct {
	Name                string          `yaml:"name"`
	EntityType          string          `yaml:"entity_type"`
	WarningThresholdPct int             `yaml:"warning_threshold_pct"`
	Targets             []targetFixture `yaml:"targets"`
}

type targetFixture struct {
	Priority          string `yaml:"priority"`
	ResponseMinutes   int    `yaml:"response_minutes"`
	ResolutionMinutes int    `yaml:"resolution_minutes"`
}

type reportFixture struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`
	Cron       string   `yaml:"cron"`
	Recipients []string `yaml:"recipients"`
}

func main() {
	fixturePath := flag.String("file", "seed/fixtures.yaml", "Path to YAML fixture file")
	flag.Parse()

	if err := run(*fixturePath); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("seed completed")
}

func run(fixturePath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: "text"})

	raw, err := os.ReadFile(fixturePath)
	if err != nil {
		return fmt.Errorf("read fixture file: %w", err)
	}
	var fixtures fixtureFile
	if err := yaml.Unmarshal(raw, &fixtures); err != nil {
		return fmt.Errorf("parse fixture file: %w", err)
	}

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	provisioner := postgres.NewSchemaProvisioner(db)
	if err := provisioner.EnsureDirectory(ctx); err != nil {
		return fmt.Errorf("ensure tenant directory: %w", err)
	}

	tenantRepo := postgres.NewTenantRepository(db)
	ruleRepo := postgres.NewWorkflowRuleRepository(db)
	slaRepo := postgres.NewSLARepository(db)
	reportRepo := postgres.NewReportRepository(db)
	tenants := app.NewTenantService(tenantRepo, provisioner, log)

	for _, tf := range fixtures.Tenants {
		t, err := tenants.Provision(ctx, tf.Slug, tf.Name)
		if err != nil {
			return fmt.Errorf("provision tenant %s: %w", tf.Slug, err)
		}
		fmt.Printf("tenant %s provisioned\n", t.Slug)

		for _, rf := range tf.Rules {
			rule, err := workflowrule.NewRule(t.Slug, rf.Name,
				workflowrule.EntityType(rf.EntityType), workflowrule.TriggerType(rf.TriggerType))
			if err != nil {
				return fmt.Errorf("rule %s: %w", rf.Name, err)
			}
			rule.Conditions = rf.Conditions
			rule.Actions = rf.Actions
			rule.ExecutionOrder = rf.ExecutionOrder
			rule.StopOnMatch = rf.StopOnMatch
			if err := rule.Validate(); err != nil {
				return fmt.Errorf("rule %s: %w", rf.Name, err)
			}
			if err := ruleRepo.Create(ctx, t.Slug, rule); err != nil {
				return fmt.Errorf("create rule %s: %w", rf.Name, err)
			}
			fmt.Printf("  rule %s\n", rf.Name)
		}

		for _, pf := range tf.Policies {
			policy, err := sla.NewPolicy(t.Slug, pf.Name, pf.EntityType)
			if err != nil {
				return fmt.Errorf("policy %s: %w", pf.Name, err)
			}
			if pf.WarningThresholdPct > 0 {
				policy.WarningThresholdPct = pf.WarningThresholdPct
			}
			for _, target := range pf.Targets {
				err := policy.SetTarget(sla.Target{
					Priority:          sla.Priority(target.Priority),
					ResponseMinutes:   target.ResponseMinutes,
					ResolutionMinutes: target.ResolutionMinutes,
				})
				if err != nil {
					return fmt.Errorf("policy %s target %s: %w", pf.Name, target.Priority, err)
				}
			}
			if err := slaRepo.Create(ctx, t.Slug, policy); err != nil {
				return fmt.Errorf("create policy %s: %w", pf.Name, err)
			}
			fmt.Printf("  sla policy %s\n", pf.Name)
		}

		for _, rf := range tf.Reports {
			rep, err := report.NewScheduledReport(t.Slug, rf.Name, report.Kind(rf.Kind), rf.Cron, rf.Recipients)
			if err != nil {
				return fmt.Errorf("report %s: %w", rf.Name, err)
			}
			if err := reportRepo.Create(ctx, t.Slug, rep); err != nil {
				return fmt.Errorf("create report %s: %w", rf.Name, err)
			}
			fmt.Printf("  report %s (next run %s)\n", rf.Name, rep.NextRunAt.Format(time.RFC3339))
		}
	}

	return nil
}
