// Command kvmir-cli is a reference RESP client for kvmir-server, adapted
// from the teacher's cmd/client-example down to the single-node
// respclient (see DESIGN.md for the consistent-hashing functionality
// dropped per spec's Non-goals).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvmir/kvmir/pkg/respclient"
)

const dialTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string

	root := &cobra.Command{
		Use:   "kvmir-cli",
		Short: "Talk to a kvmir server over RESP",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:6379", "kvmir server address")

	root.AddCommand(
		getCmd(&addr),
		setCmd(&addr),
		delCmd(&addr),
		existsCmd(&addr),
		incrCmd(&addr),
		pingCmd(&addr),
	)
	return root
}

func dial(addr string) (*respclient.Client, error) {
	return respclient.Dial(addr, dialTimeout)
}

func getCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get ",
		Short: "Retrieve a key's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()

			v, found, err := c.Get(args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("not found")
				return nil
			}
			fmt.Println(v)
			return nil
		},
	}
}

func setCmd(addr *string) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "set  ",
		Short: "Store a key's value, with an optional TTL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Set(args[0], args[1], ttl)
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "expiry duration, e.g. 30s (0 means no expiry)")
	return cmd
}

func delCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "del ",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Del(args[0])
		},
	}
}

func existsCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "exists ",
		Short: "Check whether a key is present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()

			ok, err := c.Exists(args[0])
			if err != nil {
				return err
			}
			if ok {
				fmt.Println(1)
			} else {
				fmt.Println(0)
			}
			return nil
		},
	}
}

func incrCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "incr ",
		Short: "Increment a counter key, creating it at 1 if absent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Incr(args[0])
		},
	}
}

func pingCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check server liveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Ping()
		},
	}
}
