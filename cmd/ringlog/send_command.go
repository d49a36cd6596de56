package main

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const sendTimeout = 10 * time.Second

func newSendCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "send LINE",
		Short: "Send one record to the line server and print the log it returns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(addr)
			if target == "" {
				target = dialAddress(ctx.configValue().Server.Bind)
			}
			return sendLine(cmd.OutOrStdout(), target, args[0])
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Line server address (defaults to server.bind)")
	return cmd
}

func sendLine(out io.Writer, addr, line string) error {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	conn, err := net.DialTimeout("tcp", addr, sendTimeout)
	if err != nil {
		return fmt.Errorf("connect to line server %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(sendTimeout))

	if _, err := io.WriteString(conn, line); err != nil {
		return fmt.Errorf("send record: %w", err)
	}
	if _, err := io.Copy(out, conn); err != nil {
		return fmt.Errorf("receive log: %w", err)
	}
	return nil
}

// dialAddress turns a listen address into one a client can dial.
func dialAddress(bind string) string {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
