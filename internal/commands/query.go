package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hiroakis/host-management-app/models"
	"github.com/hiroakis/host-management-app/pkg/client"
)

var (
	// Query flags
	queryServer string
	queryFormat string
	queryUsed   bool
	queryUnused bool
	queryRole   string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a running srvadm server",
	Long:  `Read the inventory through the HTTP API of a running srvadm server`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return checkFormat(queryFormat)
	},
}

var queryIPsCmd = &cobra.Command{
	Use:   "ips",
	Short: "List IP addresses",
	Long: `List registered IP addresses with optional filtering.

Examples:
  srvadm query ips
  srvadm query ips --unused --format csv
  srvadm query ips --role web`,
	Args: cobra.NoArgs,
	RunE: runQueryIPs,
}

var queryRolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List role names",
	Args:  cobra.NoArgs,
	RunE:  runQueryRoles,
}

var queryHostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List hosts with their IP and roles",
	Args:  cobra.NoArgs,
	RunE:  runQueryHosts,
}

var queryHostCmd = &cobra.Command{
	Use:   "host [name]",
	Short: "Look up a host by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryHost,
}

var queryIPCmd = &cobra.Command{
	Use:   "ip [addr]",
	Short: "Look up the host bound to an IP",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryIP,
}

var queryRoleCmd = &cobra.Command{
	Use:   "role [name]",
	Short: "List the hosts holding a role",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryRole,
}

var queryHostsFileCmd = &cobra.Command{
	Use:   "hosts-file [role]",
	Short: "Print the hosts holding a role as /etc/hosts lines",
	Long: `Print "ip<TAB>host_name" lines for every host holding the role.

Examples:
  srvadm query hosts-file web >> /etc/hosts`,
	Args: cobra.ExactArgs(1),
	RunE: runQueryHostsFile,
}

var queryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show inventory counts",
	Args:  cobra.NoArgs,
	RunE:  runQueryStats,
}

func init() {
	queryCmd.AddCommand(queryIPsCmd)
	queryCmd.AddCommand(queryRolesCmd)
	queryCmd.AddCommand(queryHostsCmd)
	queryCmd.AddCommand(queryHostCmd)
	queryCmd.AddCommand(queryIPCmd)
	queryCmd.AddCommand(queryRoleCmd)
	queryCmd.AddCommand(queryHostsFileCmd)
	queryCmd.AddCommand(queryStatsCmd)

	queryCmd.PersistentFlags().StringVar(&queryServer, "server", "", "server URL (default: client.server_url)")
	queryCmd.PersistentFlags().StringVar(&queryFormat, "format", formatTable, "output format (table, json, csv, space)")

	queryIPsCmd.Flags().BoolVar(&queryUsed, "used", false, "only addresses bound to a host")
	queryIPsCmd.Flags().BoolVar(&queryUnused, "unused", false, "only free addresses")
	queryIPsCmd.Flags().StringVar(&queryRole, "role", "", "only addresses of hosts holding this role")
	queryIPsCmd.MarkFlagsMutuallyExclusive("used", "unused", "role")
}

func newClient() (*client.Client, error) {
	server := queryServer
	if server == "" {
		server = cfg.Client.ServerURL
	}

	opts := []client.Option{}
	if cfg.Client.Timeout > 0 {
		opts = append(opts, client.WithTimeout(cfg.Client.Timeout))
	}
	return client.New(server, opts...)
}

func runQueryIPs(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	ips, err := c.ListIPs(cmd.Context(), client.IPFilter{Used: queryUsed, Unused: queryUnused, Role: queryRole})
	if err != nil {
		return fmt.Errorf("failed to list ips: %w", err)
	}
	return writeList(cmd.OutOrStdout(), queryFormat, "IP", ips)
}

func runQueryRoles(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	roles, err := c.ListRoles(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list roles: %w", err)
	}
	return writeList(cmd.OutOrStdout(), queryFormat, "ROLE", roles)
}

func runQueryHosts(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	hosts, err := c.Hosts(cmd.Context())
	if err != nil && !client.IsNotFound(err) {
		return fmt.Errorf("failed to list hosts: %w", err)
	}
	return writeHosts(cmd.OutOrStdout(), queryFormat, hosts)
}

func runQueryHost(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	host, err := c.Host(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to look up host %s: %w", args[0], err)
	}
	return writeHosts(cmd.OutOrStdout(), queryFormat, []models.HostRecord{*host})
}

func runQueryIP(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	host, err := c.HostByIP(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to look up ip %s: %w", args[0], err)
	}
	return writeHosts(cmd.OutOrStdout(), queryFormat, []models.HostRecord{*host})
}

func runQueryRole(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	hosts, err := c.HostsByRole(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to look up role %s: %w", args[0], err)
	}
	return writeHosts(cmd.OutOrStdout(), queryFormat, hosts)
}

func runQueryHostsFile(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	out, err := c.HostsOutput(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to render hosts for role %s: %w", args[0], err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

func runQueryStats(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	stats, err := c.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	if queryFormat == formatJSON {
		return writeJSON(cmd.OutOrStdout(), stats)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "IPs:\t%d\n", stats.IPs)
	fmt.Fprintf(tw, "  used:\t%d\n", stats.UsedIPs)
	fmt.Fprintf(tw, "  unused:\t%d\n", stats.UnusedIPs)
	fmt.Fprintf(tw, "Roles:\t%d\n", stats.Roles)
	fmt.Fprintf(tw, "Hosts:\t%d\n", stats.Hosts)
	fmt.Fprintf(tw, "Role assignments:\t%d\n", stats.RoleMaps)
	return tw.Flush()
}
