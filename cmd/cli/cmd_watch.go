package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	synchub "petrocore/internal/sync"
)

var watchOpts struct {
	addr string
	raw  bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the catalog change feed",
	Long: `Watch connects to the api-server's TCP change feed and prints one line per
created, updated, deleted or imported event. It reconnects until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		for {
			err := followFeed(ctx, watchOpts.addr, watchOpts.raw)
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("feed disconnected", zap.String("addr", watchOpts.addr), zap.Error(err))
			fmt.Fprintln(os.Stderr, "disconnected, retrying...")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	},
}

func followFeed(ctx context.Context, addr string, raw bool) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		if raw {
			fmt.Println(string(line))
			continue
		}
		var ev synchub.SpecimenEvent
		if err := json.Unmarshal(line, &ev); err != nil || ev.Type == "" {
			// welcome line or something we do not know
			fmt.Println(string(line))
			continue
		}
		fmt.Println(formatEvent(ev))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return net.ErrClosed
}

func formatEvent(ev synchub.SpecimenEvent) string {
	at := ev.At.Local().Format("15:04:05")
	if ev.Type == synchub.EventImported {
		return fmt.Sprintf("%s  %-18s %d records", at, ev.Type, ev.Count)
	}
	label := ev.Code
	if label == "" {
		label = ev.ID
	}
	return fmt.Sprintf("%s  %-18s %s %s", at, ev.Type, ev.Kind, label)
}

func init() {
	watchCmd.Flags().StringVar(&watchOpts.addr, "addr", envOr("PETRO_SYNC_ADDR", "127.0.0.1:7070"), "TCP change feed address")
	watchCmd.Flags().BoolVar(&watchOpts.raw, "raw", false, "print events as JSON lines")
}
