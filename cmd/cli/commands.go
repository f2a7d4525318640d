package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shampsdev/gopadel-sub001/internal/identity"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd, metricsCmd, membersCmd, tokenCmd, eventsCmd, registrationCmd, waitlistCmd, payCmd, leaderboardCmd)

	tokenCmd.Flags().String("secret", "", "AUTH_SECRET of the server")
	tokenCmd.Flags().Bool("admin", false, "Issue an admin token")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")

	createEventCmd.Flags().String("name", "", "Event name")
	createEventCmd.Flags().String("type", "tournament", "tournament, game or training")
	createEventCmd.Flags().Int("max-users", 4, "Number of slots")
	createEventCmd.Flags().String("price", "0", "Price, 0 for free events")
	createEventCmd.Flags().Float64("rank-min", 0, "Lowest allowed rank")
	createEventCmd.Flags().Float64("rank-max", 10, "Highest allowed rank (exclusive)")
	eventsCmd.AddCommand(listEventsCmd, getEventCmd, createEventCmd, cancelEventCmd)

	registrationCmd.AddCommand(
		eventAction("register", "Register for an event", http.MethodPost, "/registrations"),
		eventAction("cancel", "Cancel your registration", http.MethodPost, "/registrations/cancel"),
		eventAction("reactivate", "Reactivate a cancelled registration", http.MethodPost, "/registrations/reactivate"),
		eventAction("list", "List an event's registrations", http.MethodGet, "/registrations"),
		organizerAction("approve", "Approve an invited user"),
		organizerAction("reject", "Reject an invited user"),
		&cobra.Command{
			Use:   "mine",
			Short: "List your registrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return performRequest(http.MethodGet, "/users/me/registrations", nil)
			},
		},
	)

	waitlistCmd.AddCommand(
		eventAction("join", "Join a full event's waitlist", http.MethodPost, "/waitlist"),
		eventAction("leave", "Leave the waitlist", http.MethodDelete, "/waitlist"),
		eventAction("list", "Show the waitlist and your position", http.MethodGet, "/waitlist"),
		eventAction("promote", "Promote the head of the waitlist", http.MethodPost, "/waitlist/promote"),
	)

	leaderboardCmd.AddCommand(eventAction("get", "Show an event's podium", http.MethodGet, "/leaderboard"))
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health", nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics", nil)
	},
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List club members by rank",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/members", nil)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <user id>",
	Short: "Sign an API token locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		admin, _ := cmd.Flags().GetBool("admin")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if secret == "" {
			return fmt.Errorf("--secret is required")
		}
		tok, err := identity.Sign(secret, args[0], admin, ttl)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Manage events",
}

var listEventsCmd = &cobra.Command{
	Use:   "list",
	Short: "List events",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/events", nil)
	},
}

var getEventCmd = &cobra.Command{
	Use:   "get <event id>",
	Short: "Show an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/events/"+args[0], nil)
	},
}

var createEventCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an event you organize",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		typ, _ := flags.GetString("type")
		maxUsers, _ := flags.GetInt("max-users")
		price, _ := flags.GetString("price")
		lo, _ := flags.GetFloat64("rank-min")
		hi, _ := flags.GetFloat64("rank-max")
		return performRequest(http.MethodPost, "/events", map[string]any{
			"name":     name,
			"type":     typ,
			"maxUsers": maxUsers,
			"price":    price,
			"rankMin":  lo,
			"rankMax":  hi,
		})
	},
}

var cancelEventCmd = &cobra.Command{
	Use:   "cancel <event id>",
	Short: "Cancel an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodDelete, "/events/"+args[0], nil)
	},
}

var registrationCmd = &cobra.Command{
	Use:     "registration",
	Aliases: []string{"reg"},
	Short:   "Manage registrations",
}

var waitlistCmd = &cobra.Command{
	Use:   "waitlist",
	Short: "Manage event waitlists",
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Read event leaderboards",
}

var payCmd = &cobra.Command{
	Use:   "pay <event id>",
	Short: "Start a payment for your pending registration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/tournaments/"+args[0]+"/payment", nil)
	},
}

// eventAction builds a command calling /events/{id}<suffix>.
func eventAction(use, short, method, suffix string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <event id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return performRequest(method, "/events/"+args[0]+suffix, nil)
		},
	}
}

func organizerAction(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <event id> <user id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return performRequest(http.MethodPost, "/events/"+args[0]+"/registrations/"+args[1]+"/"+action, nil)
		},
	}
}

func performRequest(method, endpoint string, payload any) error {
	url := host + endpoint
	fmt.Printf("Making %s request to %s\n", method, url)

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-Api-Token", token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	var pretty bytes.Buffer
	if json.Indent(&pretty, respBody, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(respBody))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server answered %s", strconv.Itoa(resp.StatusCode))
	}
	return nil
}
