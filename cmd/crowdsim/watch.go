package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/talgya/crowdsense/internal/api"
)

func watchCmd() *cobra.Command {
	var (
		event        string
		minCertainty float64
	)
	cmd := &cobra.Command{
		Use:   "watch [ws-url]",
		Short: "Follow a running simulation's recognitions over its stream",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := "ws://localhost:8080/api/v1/stream"
			if len(args) == 1 {
				url = args[0]
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return watch(ctx, cmd, url, event, minCertainty)
		},
	}
	cmd.Flags().StringVar(&event, "event", "", "only show recognitions of this event")
	cmd.Flags().Float64Var(&minCertainty, "min-certainty", 0, "hide recognitions below this certainty (0-100)")
	return cmd
}

func watch(ctx context.Context, cmd *cobra.Command, url, event string, minCertainty float64) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	out := cmd.OutOrStdout()
	for {
		var msg api.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		switch msg.Type {
		case "hello":
			if st := msg.Status; st != nil {
				fmt.Fprintf(out, "connected at cycle %d: %d agents, %d live events\n", st.Cycle, st.Agents, st.LiveEvents)
			}
		case "cycle":
			if msg.Report == nil {
				continue
			}
			for _, r := range msg.Report.Recognitions {
				if (event != "" && r.Event != event) || r.Certainty < minCertainty {
					continue
				}
				fmt.Fprintf(out, "cycle %-6d agent %-5d %-10s %5.1f%%  (%d/%d properties)\n",
					r.Cycle, r.Agent, r.Event, r.Certainty, r.Matched, r.Expected)
			}
		}
	}
}
