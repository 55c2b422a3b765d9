package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vodmill/internal/api"
	"vodmill/internal/jobstate"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var addressFlag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the daemon is working on",
		RunE: func(cmd *cobra.Command, args []string) error {
			address := strings.TrimSpace(addressFlag)
			if address == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				address = dialableAddress(cfg.Paths.StatusBind)
			}

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get("http://" + address + "/status")
			if err != nil {
				return fmt.Errorf("daemon unreachable at %s: %w", address, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status request failed: %s", resp.Status)
			}

			var payload api.StatusPayload
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderStatus(payload, colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addressFlag, "address", "", "Daemon status address (host:port)")
	return cmd
}

// dialableAddress converts a listen bind into something a client can
// connect to; wildcard hosts become loopback.
func dialableAddress(bind string) string {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return bind
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func renderStatus(payload api.StatusPayload, colorize bool) []string {
	lines := renderSectionHeader("Job Status", colorize)

	kind := statusInfo
	switch payload.Stage {
	case jobstate.StageIdle:
		kind = statusOK
	case jobstate.StageFailed:
		kind = statusError
	}
	lines = append(lines, renderStatusLine("Stage", kind, payload.Stage, colorize))

	if payload.FileName != nil {
		lines = append(lines, renderStatusLine("File", statusInfo, *payload.FileName, colorize))
	}
	if payload.JobID != nil {
		lines = append(lines, renderStatusLine("Job", statusInfo, *payload.JobID, colorize))
	}
	if payload.Stage != jobstate.StageIdle {
		lines = append(lines, renderStatusLine("Progress", statusInfo, strconv.Itoa(payload.Percent)+"%", colorize))
	}
	if payload.ErrorMessage != nil {
		lines = append(lines, renderStatusLine("Error", statusError, *payload.ErrorMessage, colorize))
	}
	lines = append(lines, renderStatusLine("As of", statusInfo, payload.Timestamp, colorize))
	return lines
}
