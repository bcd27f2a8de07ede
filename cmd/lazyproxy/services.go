package main

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/lazyproxy/pkg/cli"
	"mercator-hq/lazyproxy/pkg/config"
	"mercator-hq/lazyproxy/pkg/orchestrator"
)

// servicesTimeout bounds the orchestrator listing.
const servicesTimeout = 30 * time.Second

var servicesFlags struct {
	output   string
	lazyOnly bool
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the services of the compose project",
	Long: `List the services of the compose project with their state and labels.

LAZY marks services the reaper manages (label lazy=true by default).
PROTECTED marks services never stopped as a dependency (label never_remove).

Examples:
  # Aligned table
  lazyproxy services

  # Only services managed by the reaper, as JSON
  lazyproxy services --lazy --output json`,
	RunE: listServices,
}

func init() {
	rootCmd.AddCommand(servicesCmd)

	servicesCmd.Flags().StringVarP(&servicesFlags.output, "output", "o", "text", "output format: text, json, csv")
	servicesCmd.Flags().BoolVar(&servicesFlags.lazyOnly, "lazy", false, "only list services carrying the lazy label")
}

func listServices(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(servicesFlags.output)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	orch, err := newOrchestrator(cfg)
	if err != nil {
		return cli.NewCommandError("services", err)
	}
	defer orch.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), servicesTimeout)
	defer cancel()

	services, err := orch.ListServices(ctx)
	if err != nil {
		return cli.NewCommandError("services", err)
	}

	table := servicesTable(services, cfg.Orchestrator, servicesFlags.lazyOnly)
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table)
}

type serviceRecord struct {
	Name        string             `json:"name"`
	State       orchestrator.State `json:"state"`
	Lazy        bool               `json:"lazy"`
	Protected   bool               `json:"protected"`
	ContainerID string             `json:"container_id,omitempty"`
	DependsOn   []string           `json:"depends_on,omitempty"`
}

func servicesTable(services []orchestrator.Service, cfg config.OrchestratorConfig, lazyOnly bool) cli.Table {
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })

	table := cli.Table{Headers: []string{"SERVICE", "STATE", "LAZY", "PROTECTED", "CONTAINER", "DEPENDS_ON"}}
	records := make([]serviceRecord, 0, len(services))

	for _, svc := range services {
		rec := serviceRecord{
			Name:        svc.Name,
			State:       svc.State,
			Lazy:        svc.HasTrueLabel(cfg.LazyLabel),
			Protected:   svc.Protected(cfg.ProtectLabel),
			ContainerID: svc.ContainerID,
			DependsOn:   svc.DependsOn,
		}
		if lazyOnly && !rec.Lazy {
			continue
		}
		records = append(records, rec)

		deps := strings.Join(rec.DependsOn, ",")
		if deps == "" {
			deps = "-"
		}
		container := rec.ContainerID
		if container == "" {
			container = "-"
		}
		table.Rows = append(table.Rows, []string{
			rec.Name,
			string(rec.State),
			strconv.FormatBool(rec.Lazy),
			strconv.FormatBool(rec.Protected),
			container,
			deps,
		})
	}

	table.Records = records
	return table
}
