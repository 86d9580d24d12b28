// iquizctl is a small operator tool for the iquiz server: create a room,
// join one from the terminal, or watch a waiting room live.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qazaqedu/iquiz-server/internal/client"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:           "iquizctl",
		Short:         "Control and watch iquiz rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "iquiz server base URL")

	root.AddCommand(newCreateCmd(), newJoinCmd(), newWatchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "iquizctl: %v\n", err)
		os.Exit(1)
	}
}

func newCreateCmd() *cobra.Command {
	var hostName, hostAvatar string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new room and print its code and host token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			body := map[string]string{"host_name": hostName, "host_avatar": hostAvatar}

			var resp struct {
				RoomID    string `json:"roomId"`
				HostToken string `json:"hostToken"`
			}
			if err := postJSON(cmd.Context(), "/api/iquiz/create", body, &resp); err != nil {
				return err
			}

			fmt.Printf("room:  %s\n", resp.RoomID)
			fmt.Printf("token: %s\n", resp.HostToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&hostName, "host-name", "", "display name of the host")
	cmd.Flags().StringVar(&hostAvatar, "host-avatar", "", "avatar URL of the host")
	return cmd
}

func newJoinCmd() *cobra.Command {
	var name, avatar string

	cmd := &cobra.Command{
		Use:   "join ROOM_CODE",
		Short: "Join a room as a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			body := map[string]string{"room_code": args[0], "name": name, "avatar": avatar}

			var resp struct {
				PlayerID string `json:"playerId"`
				RoomID   string `json:"roomId"`
				Name     string `json:"name"`
			}
			if err := postJSON(cmd.Context(), "/api/iquiz/join", body, &resp); err != nil {
				return err
			}

			fmt.Printf("joined room %s as %s (player %s)\n", resp.RoomID, resp.Name, resp.PlayerID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "player display name (required)")
	cmd.Flags().StringVar(&avatar, "avatar", "", "player avatar URL")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch ROOM_ID",
		Short: "Watch a waiting room live until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session, err := client.New(client.Options{
				BaseURL: serverURL,
				RoomID:  args[0],
				OnPlayers: func(players []client.Player) {
					fmt.Printf("players (%d):", len(players))
					for _, p := range players {
						fmt.Printf(" %s", p.Name)
					}
					fmt.Println()
				},
				OnConnection: func(online bool) {
					if online {
						fmt.Println("[online]")
					} else {
						fmt.Println("[offline]")
					}
				},
				OnRoomStatus: func(status string) {
					fmt.Printf("[room %s]\n", status)
				},
			})
			if err != nil {
				return err
			}
			defer session.Close()

			fmt.Printf("watching room %s on %s (Ctrl+C to exit)\n", args[0], serverURL)
			if err := session.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

func postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(serverURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpc := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("request %s failed: %s", path, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
