package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"infradash/internal/ports"
)

func newPortsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "Inspect and allocate service ports",
	}

	var start, end int
	generate := &cobra.Command{
		Use:   "generate <hostId>",
		Short: "Print the first free port on a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(e *env) error {
				alloc := newAllocator(e)
				s, en := start, end
				if s == 0 {
					s = e.cfg.Ports.RangeStart
				}
				if en == 0 {
					en = e.cfg.Ports.RangeEnd
				}
				port, err := alloc.GenerateUniquePort(cmd.Context(), args[0], s, en)
				if err != nil {
					return err
				}
				fmt.Fprintln(e.out, port)
				return nil
			})
		},
	}
	generate.Flags().IntVar(&start, "start", 0, "First port to consider (default from config)")
	generate.Flags().IntVar(&end, "end", 0, "Last port to consider (default from config)")

	check := &cobra.Command{
		Use:   "check <hostId> <port>",
		Short: "Report whether a port is free on a host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid port %q", args[1])
			}
			return opts.withStore(cmd, func(e *env) error {
				ok, err := newAllocator(e).IsPortAvailable(cmd.Context(), args[0], port)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintf(e.out, "%d available\n", port)
				} else {
					fmt.Fprintf(e.out, "%d in use\n", port)
				}
				return nil
			})
		},
	}

	used := &cobra.Command{
		Use:   "used <hostId>",
		Short: "List the ports in use on a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(e *env) error {
				list, err := newAllocator(e).UsedPorts(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, p := range list {
					fmt.Fprintln(e.out, p)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(generate, check, used)
	return cmd
}

func newAllocator(e *env) *ports.Allocator {
	return ports.New(e.store.Services(),
		ports.WithReserved(e.cfg.Ports.Reserved...),
		ports.WithDefaultRange(e.cfg.Ports.RangeStart, e.cfg.Ports.RangeEnd),
	)
}
