package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/rehberapp/rehber-go/internal/transfer"
	"github.com/rehberapp/rehber-go/internal/transferclient"
)

// transferCommand runs a MEBBIS transfer from the terminal: it starts
// the job over the REST API and follows the websocket progress until the
// transfer reaches a terminal status. Ctrl-C requests a cooperative
// cancel instead of abandoning the job.
func transferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Run a MEBBIS transfer for the given counseling sessions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "Base URL of the rehber server",
				Value: "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Usage:    "Account to log in with",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Password for the account",
				Required: true,
			},
			&cli.Int64SliceFlag{
				Name:     "session",
				Usage:    "Counseling session id to transfer (repeatable)",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "only-unsynced",
				Usage: "Skip sessions already flagged as synced",
			},
		},
		Action: runTransfer,
	}
}

func runTransfer(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("server")

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	httpClient := &http.Client{Jar: jar}

	if err := login(ctx, httpClient, baseURL, cmd.String("username"), cmd.String("password")); err != nil {
		return err
	}

	done := make(chan struct{})
	coord := transferclient.New(transferclient.Options{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
		OnEvent:    progressPrinter(done),
		OnConn: func(state transferclient.ConnState, attempt int) {
			switch state {
			case transferclient.ConnReconnecting:
				logger.Warn("progress socket lost, reconnecting", "attempt", attempt)
			case transferclient.ConnLost:
				logger.Error("cannot reach the progress socket; the transfer continues on the server")
				close(done)
			}
		},
	})
	defer coord.ResetTransfer()

	req := transferclient.StartRequest{SessionIDs: cmd.Int64Slice("session")}
	req.Filters.OnlyUnsynced = cmd.Bool("only-unsynced")

	resp, err := coord.StartTransfer(ctx, req)
	if err != nil {
		return err
	}
	logger.Info("transfer started", "transferId", resp.TransferID, "sessions", resp.TotalSessions)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	for {
		select {
		case <-interrupt:
			logger.Warn("cancel requested, waiting for the current session to finish")
			if err := coord.CancelTransfer(ctx); err != nil {
				return err
			}
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// login authenticates against the server; the session cookie lands in
// the client's jar.
func login(ctx context.Context, client *http.Client, baseURL, username, password string) error {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/api/users/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	return nil
}

// progressPrinter logs each progress event and closes done once the
// transfer reaches a terminal status.
func progressPrinter(done chan struct{}) transferclient.EventHandler {
	finish := func() {
		select {
		case <-done:
		default:
			close(done)
		}
	}

	return func(event string, payload json.RawMessage) {
		switch event {
		case transfer.MsgStatus:
			var msg struct {
				Status  transfer.Status `json:"status"`
				Message string          `json:"message"`
			}
			json.Unmarshal(payload, &msg)
			logger.Info("status", "status", msg.Status, "message", msg.Message)
			if msg.Status == transfer.StatusCancelled {
				finish()
			}
		case transfer.MsgAuthChallenge:
			logger.Info("complete the MEBBIS login to continue", "challenge", string(payload))
		case transfer.MsgSessionStart:
			var item transfer.Item
			json.Unmarshal(payload, &item)
			logger.Info("transferring session", "student", item.StudentName, "topic", item.Topic)
		case transfer.MsgSessionCompleted:
			logger.Info("session transferred", "detail", string(payload))
		case transfer.MsgSessionFailed:
			logger.Warn("session failed", "detail", string(payload))
		case transfer.MsgProgress:
			var progress transfer.Progress
			json.Unmarshal(payload, &progress)
			logger.Info("progress", "completed", progress.Completed, "failed", progress.Failed, "total", progress.Total)
		case transfer.MsgTransferCompleted:
			var summary transfer.Summary
			json.Unmarshal(payload, &summary)
			logger.Info("transfer completed", "successful", summary.Successful, "failed", summary.Failed)
			finish()
		case transfer.MsgTransferError:
			logger.Error("transfer failed", "detail", string(payload))
			finish()
		}
	}
}
