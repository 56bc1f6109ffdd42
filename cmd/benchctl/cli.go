package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"text/tabwriter"

	api "github.com/nixpig/benchworker/api/v1"
	"github.com/nixpig/benchworker/internal/tlsconfig"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
)

// TODO: Inject version at build time.
const version = "0.0.1"

const resultSeparator = "-------------------------------------"

type config struct {
	serverHostname string
	serverPort     string
	caCertPath     string
	certPath       string
	keyPath        string
}

type cli struct {
	client api.SlotServiceClient
	conn   *grpc.ClientConn
}

func newCLI() *cli {
	return &cli{}
}

func (c *cli) rootCmd() *cobra.Command {
	cfg := &config{}

	command := &cobra.Command{
		Use:          "benchctl",
		Short:        "CLI for running network benchmarks on a benchd server",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			tlsConfig, err := tlsconfig.SetupTLS(&tlsconfig.Config{
				CertPath:   cfg.certPath,
				KeyPath:    cfg.keyPath,
				CACertPath: cfg.caCertPath,
				ServerName: cfg.serverHostname,
			})
			if err != nil {
				return err
			}

			c.conn, err = grpc.NewClient(
				net.JoinHostPort(
					cfg.serverHostname,
					cfg.serverPort,
				),
				grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)),
			)
			if err != nil {
				return err
			}

			c.client = api.NewSlotServiceClient(c.conn)

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.conn == nil {
				return nil
			}

			// Connection needs to remain open for duration of any child commands.
			return c.conn.Close()
		},
	}

	command.AddCommand(
		c.startCmd(),
		c.statusCmd(),
		c.killCmd(),
		c.resultCmd(),
	)

	command.CompletionOptions.HiddenDefaultCmd = true

	command.PersistentFlags().StringVar(
		&cfg.serverHostname,
		"server-hostname",
		"localhost",
		"Server hostname",
	)

	command.PersistentFlags().StringVar(
		&cfg.serverPort,
		"server-port",
		"8443",
		"Server port",
	)

	command.PersistentFlags().StringVar(
		&cfg.certPath,
		"cert-path",
		"certs/client-operator.crt",
		"Path to client TLS certificate",
	)

	command.PersistentFlags().StringVar(
		&cfg.keyPath,
		"key-path",
		"certs/client-operator.key",
		"Path to client TLS private key",
	)

	command.PersistentFlags().StringVar(
		&cfg.caCertPath,
		"ca-cert-path",
		"certs/ca.crt",
		"Path to CA certificate for mTLS",
	)

	return command
}

func (c *cli) startCmd() *cobra.Command {
	var background bool

	command := &cobra.Command{
		Use:   "start [flags] KIND [JOB_ARGS]",
		Short: "Start a job on the first idle slot",
		Example: "  benchctl start bench -s --one-off\n" +
			"  benchctl start --background bench -c 10.0.0.1 -t 5",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.StartJob(
				cmd.Context(),
				&api.StartJobRequest{
					Args:       args,
					Background: background,
				},
			)
			if err != nil {
				return mapError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", resp.SlotID)

			return nil
		},
	}

	command.Flags().BoolVar(
		&background,
		"background",
		false,
		"Keep the job's output on the server until retrieved with 'result'",
	)

	// Stop parsing args after first position so that flags passed to the job
	// are not interpreted by the benchctl CLI and are passed as-is,
	// e.g. `-c` is an argument to `bench` _not_ to `benchctl start`:
	//	`benchctl start bench -c 10.0.0.1`
	command.Flags().SetInterspersed(false)

	return command
}

func (c *cli) statusCmd() *cobra.Command {
	command := &cobra.Command{
		Use:     "status",
		Short:   "Show the status of every slot",
		Example: "  benchctl status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.Status(cmd.Context(), &api.StatusRequest{})
			if err != nil {
				return mapError(err)
			}

			// TODO: Only output headers if TTY. Or could add a flag like --plain or
			// --skip-headers to hide headers.
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

			fmt.Fprintf(w, "SLOT\tSTATE\tMODE\tRESULTS\tEXIT CODE\tCOMMAND\t\n")
			for _, s := range resp.Slots {
				fmt.Fprintf(
					w,
					"%d\t%s\t%s\t%t\t%s\t%s\t\n",
					s.SlotID,
					s.State,
					mapMode(s.Background),
					s.HasResults,
					mapExitCode(s.ExitCode),
					s.Command,
				)
			}

			w.Flush()

			return nil
		},
	}

	return command
}

func (c *cli) killCmd() *cobra.Command {
	command := &cobra.Command{
		Use:     "kill [flags] [SLOT]",
		Short:   "Kill the job on a slot, or on every slot",
		Example: "  benchctl kill 1\n  benchctl kill",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if _, err := c.client.KillAll(
					cmd.Context(),
					&api.KillAllRequest{},
				); err != nil {
					return mapError(err)
				}

				return nil
			}

			id, err := parseSlotID(args[0])
			if err != nil {
				return err
			}

			if _, err := c.client.KillJob(
				cmd.Context(),
				&api.KillJobRequest{SlotID: id},
			); err != nil {
				return mapError(err)
			}

			return nil
		},
	}

	return command
}

func (c *cli) resultCmd() *cobra.Command {
	command := &cobra.Command{
		Use:     "result [flags] SLOT",
		Short:   "Print the results of a background job",
		Example: "  benchctl result 2",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSlotID(args[0])
			if err != nil {
				return err
			}

			resp, err := c.client.JobResult(
				cmd.Context(),
				&api.JobResultRequest{SlotID: id},
			)
			if err != nil {
				return mapError(err)
			}

			out := cmd.OutOrStdout()

			if !resp.Available {
				fmt.Fprintf(out, "No results for slot #%d\n", id)
				return nil
			}

			fmt.Fprintf(out, "slot #%d results:\n", id)
			fmt.Fprintln(out, resultSeparator)
			fmt.Fprint(out, resp.Text)
			fmt.Fprintln(out, resultSeparator)

			if resp.Discarded {
				fmt.Fprintf(out, "Note: results of slot #%d were deleted.\n", id)
			}

			return nil
		},
	}

	return command
}

func parseSlotID(arg string) (int32, error) {
	id, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid slot '%s'", arg)
	}

	return int32(id), nil
}

// mapError translates gRPC errors to human-readable messages.
func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.PermissionDenied:
		return errors.New("permission denied")
	case codes.Unauthenticated:
		return errors.New("not authenticated")
	case codes.Unavailable:
		return errors.New("server unavailable")
	default:
		return fmt.Errorf("%s", st.Message())
	}
}

func mapMode(background bool) string {
	if background {
		return "Background"
	}

	return "Foreground"
}

func mapExitCode(code int32) string {
	if code < 0 {
		return "-"
	}

	return strconv.Itoa(int(code))
}
