package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var flagTenantName string

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenants",
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mustClient()
		data, err := client.Get("/api/v1/tenants")
		if err != nil {
			return err
		}

		var tenants []TenantResponse
		if err := unmarshal(data, &tenants); err != nil {
			return err
		}

		render(tenants, func() {
			rows := make([][]string, 0, len(tenants))
			for _, tn := range tenants {
				rows = append(rows, []string{tn.Slug, tn.Name, yesNo(tn.IsActive), localTime(tn.CreatedAt)})
			}
			printTable([]string{"SLUG", "NAME", "ACTIVE", "CREATED"}, rows)
		})
		return nil
	},
}

var tenantCreateCmd = &cobra.Command{
	Use:   "create <slug>",
	Short: "Provision a new tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := flagTenantName
		if name == "" {
			name = args[0]
		}

		client := mustClient()
		data, err := client.Post("/api/v1/tenants", map[string]string{
			"slug": args[0],
			"name": name,
		})
		if err != nil {
			return err
		}

		var t TenantResponse
		if err := unmarshal(data, &t); err != nil {
			return err
		}
		fmt.Printf("tenant %s provisioned\n", t.Slug)
		return nil
	},
}

var tenantDeactivateCmd = &cobra.Command{
	Use:   "deactivate <slug>",
	Short: "Deactivate a tenant, excluding it from sweeps and scheduling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mustClient()
		if _, err := client.Delete("/api/v1/tenants/" + url.PathEscape(args[0])); err != nil {
			return err
		}
		fmt.Printf("tenant %s deactivated\n", args[0])
		return nil
	},
}

var tenantHealthCmd = &cobra.Command{
	Use:   "health <slug>",
	Short: "Show a tenant's latest health score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mustClient()
		data, err := client.Get("/api/v1/tenants/" + url.PathEscape(args[0]) + "/health-score")
		if err != nil {
			return err
		}

		var score struct {
			TenantSlug       string `json:"tenant_slug"`
			Score            int    `json:"score"`
			OpenRequests     int    `json:"open_requests"`
			PendingApprovals int    `json:"pending_approvals"`
			BreachedSLAs     int    `json:"breached_slas"`
			ComputedAt       string `json:"computed_at"`
		}
		if err := unmarshal(data, &score); err != nil {
			return err
		}

		render(score, func() {
			fmt.Printf("Tenant:            %s\n", score.TenantSlug)
			fmt.Printf("Score:             %d\n", score.Score)
			fmt.Printf("Open requests:     %d\n", score.OpenRequests)
			fmt.Printf("Pending approvals: %d\n", score.PendingApprovals)
			fmt.Printf("Breached SLAs:     %d\n", score.BreachedSLAs)
			fmt.Printf("Computed at:       %s\n", localTime(score.ComputedAt))
		})
		return nil
	},
}

func init() {
	tenantCreateCmd.Flags().StringVar(&flagTenantName, "name", "", "Display name (defaults to the slug)")

	tenantCmd.AddCommand(tenantListCmd)
	tenantCmd.AddCommand(tenantCreateCmd)
	tenantCmd.AddCommand(tenantDeactivateCmd)
	tenantCmd.AddCommand(tenantHealthCmd)
}
